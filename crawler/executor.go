package crawler

import (
	"context"
	"fmt"

	"dealhunter/models"
	"dealhunter/provider"
)

// Stage names the step at which a provider execution failed.
type Stage string

const (
	StageConfig  Stage = "config"
	StageRequest Stage = "request"
	StageDecode  Stage = "decode"
	StageRender  Stage = "render"
	StageWait    Stage = "wait"
	StageExtract Stage = "extract"
	StagePanic   Stage = "panic"
)

// ProviderError is a failure scoped to a single provider.
type ProviderError struct {
	Provider string
	Stage    Stage
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Stage, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func providerErr(name string, stage Stage, err error) *ProviderError {
	return &ProviderError{Provider: name, Stage: stage, Err: err}
}

// Result is the outcome of one provider execution. Products is empty whenever
// Err is set.
type Result struct {
	Provider string
	Products []models.Product
	Err      error
}

// Executor fetches and normalizes listings from one provider.
type Executor interface {
	Execute(ctx context.Context, cfg provider.Config, keywords string) Result
}

// Dispatcher routes a provider to the executor for its type.
type Dispatcher struct {
	api     Executor
	scraper Executor
}

func NewDispatcher(api, scraper Executor) *Dispatcher {
	return &Dispatcher{api: api, scraper: scraper}
}

func (d *Dispatcher) Execute(ctx context.Context, cfg provider.Config, keywords string) Result {
	switch cfg.Type {
	case provider.TypeAPI:
		return d.api.Execute(ctx, cfg, keywords)
	case provider.TypeScraper:
		return d.scraper.Execute(ctx, cfg, keywords)
	default:
		return Result{
			Provider: cfg.Name,
			Err:      providerErr(cfg.Name, StageConfig, fmt.Errorf("no executor for type %q", cfg.Type)),
		}
	}
}
