package provider

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// GlobalCode is the pseudo-country listing providers that serve everywhere.
const GlobalCode = "GLOBAL"

// Registry holds the provider list loaded once at startup. Readers wait on the
// Ready channel instead of polling.
type Registry struct {
	load   func() []Config
	logger *zap.Logger

	once      sync.Once
	ready     chan struct{}
	providers []Config
}

// NewRegistry creates a registry that loads providers from path when started.
func NewRegistry(path string, logger *zap.Logger) *Registry {
	return &Registry{
		load:   func() []Config { return Load(path, logger) },
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// NewStaticRegistry creates a registry that is already ready with the given
// providers.
func NewStaticRegistry(providers []Config, logger *zap.Logger) *Registry {
	r := &Registry{
		load:   func() []Config { return providers },
		logger: logger,
		ready:  make(chan struct{}),
	}
	r.Start(context.Background())
	<-r.ready
	return r
}

// Start loads the providers in the background. Calling it more than once has
// no effect.
func (r *Registry) Start(ctx context.Context) {
	r.once.Do(func() {
		go func() {
			defer close(r.ready)
			r.providers = r.load()
			r.logger.Info("provider registry ready", zap.Int("providers", len(r.providers)))
		}()
	})
}

// Ready is closed once the providers have been loaded.
func (r *Registry) Ready() <-chan struct{} {
	return r.ready
}

// Wait blocks until the registry is ready or ctx is done.
func (r *Registry) Wait(ctx context.Context) ([]Config, error) {
	select {
	case <-r.ready:
		return r.providers, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Providers returns the loaded providers, or nil if loading has not finished.
func (r *Registry) Providers() []Config {
	select {
	case <-r.ready:
		return r.providers
	default:
		return nil
	}
}

// SelectForCountry returns the enabled providers that are global or list the
// country, in their configured order.
func SelectForCountry(providers []Config, country string) []Config {
	var selected []Config
	for _, p := range providers {
		if p.Serves(country) {
			selected = append(selected, p)
		}
	}
	return selected
}

type Country struct {
	Code      string            `json:"code"`
	Name      string            `json:"name"`
	Flag      string            `json:"flag"`
	Providers []CountryProvider `json:"providers"`
}

type CountryProvider struct {
	Name  string `json:"name"`
	Type  Type   `json:"type"`
	Scope string `json:"scope"`
}

const (
	ScopeGlobal  = "global"
	ScopeCountry = "country"
)

var countryDetails = map[string]struct{ name, flag string }{
	"BD": {"Bangladesh", "🇧🇩"},
	"US": {"United States", "🇺🇸"},
	"UK": {"United Kingdom", "🇬🇧"},
	"CA": {"Canada", "🇨🇦"},
	"DE": {"Germany", "🇩🇪"},
}

// Countries lists the servable countries: GLOBAL first, then every country named
// by an enabled provider in first-seen order. Each entry lists the providers a
// search for that country would consult.
func (r *Registry) Countries() []Country {
	return Countries(r.Providers())
}

func Countries(providers []Config) []Country {
	var global []CountryProvider
	for _, p := range providers {
		if p.Enabled && p.IsGlobal() {
			global = append(global, CountryProvider{Name: p.Name, Type: p.Type, Scope: ScopeGlobal})
		}
	}

	countries := []Country{{
		Code:      GlobalCode,
		Name:      "Global",
		Flag:      "🌍",
		Providers: global,
	}}

	seen := map[string]int{GlobalCode: 0}
	for _, p := range providers {
		if !p.Enabled {
			continue
		}
		for _, code := range p.Countries {
			code = strings.ToUpper(code)
			idx, ok := seen[code]
			if !ok {
				name, flag := code, "🏳️"
				if d, known := countryDetails[code]; known {
					name, flag = d.name, d.flag
				}
				countries = append(countries, Country{
					Code:      code,
					Name:      name,
					Flag:      flag,
					Providers: append([]CountryProvider(nil), global...),
				})
				idx = len(countries) - 1
				seen[code] = idx
			}
			countries[idx].Providers = append(countries[idx].Providers,
				CountryProvider{Name: p.Name, Type: p.Type, Scope: ScopeCountry})
		}
	}
	return countries
}
