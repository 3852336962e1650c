package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"dealhunter/models"
	"dealhunter/provider"
)

// KeywordsPlaceholder is replaced with the search keywords in provider templates.
const KeywordsPlaceholder = "__KEYWORDS__"

const maxResponseBytes = 10 << 20

var envPlaceholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

var (
	amountKeys   = []string{"__value__", "value", "amount"}
	currencyKeys = []string{"@currencyId", "currencyId", "currency", "currencyCode"}
)

// APIExecutor queries JSON REST providers and maps their items through the
// provider's declarative path mapper.
type APIExecutor struct {
	client *http.Client
	logger *zap.Logger
	getenv func(string) string

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewAPIExecutor(client *http.Client, logger *zap.Logger) *APIExecutor {
	return &APIExecutor{
		client:   client,
		logger:   logger,
		getenv:   os.Getenv,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (e *APIExecutor) Execute(ctx context.Context, cfg provider.Config, keywords string) Result {
	logger := GetContextLogger(ctx, e.logger).With(zap.String("provider", cfg.Name))
	if cfg.API == nil {
		return Result{Provider: cfg.Name, Err: providerErr(cfg.Name, StageConfig, errors.New("missing api config"))}
	}
	api := cfg.API

	if limiter := e.limiter(cfg.Name, api.RateLimit); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return Result{Provider: cfg.Name, Err: providerErr(cfg.Name, StageRequest, err)}
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, api.Timeout)
	defer cancel()

	req, err := e.buildRequest(reqCtx, api, keywords)
	if err != nil {
		return Result{Provider: cfg.Name, Err: providerErr(cfg.Name, StageRequest, err)}
	}

	logger.Info("calling provider api", zap.String("method", req.Method), zap.String("url", req.URL.Redacted()))

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{Provider: cfg.Name, Err: providerErr(cfg.Name, StageRequest, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{Provider: cfg.Name, Err: providerErr(cfg.Name, StageRequest, fmt.Errorf("read body: %w", err))}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{Provider: cfg.Name, Err: providerErr(cfg.Name, StageRequest,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 256)))}
	}

	products, err := MapItems(body, cfg.Name, api)
	if err != nil {
		logger.Warn("provider response does not match mapper",
			zap.String("items_path", api.Mapper.ItemsPath), zap.Error(err))
		return Result{Provider: cfg.Name, Err: providerErr(cfg.Name, StageDecode, err)}
	}

	logger.Info("provider api returned items", zap.Int("count", len(products)))
	return Result{Provider: cfg.Name, Products: products}
}

func (e *APIExecutor) buildRequest(ctx context.Context, api *provider.APIConfig, keywords string) (*http.Request, error) {
	endpoint := e.substitute(api.URL, escapeKeywords(keywords))
	params := make(map[string]string, len(api.Params))
	for k, v := range api.Params {
		params[k] = e.substitute(v, keywords)
	}

	var req *http.Request
	var err error
	switch api.Method {
	case http.MethodPost:
		payload, mErr := json.Marshal(params)
		if mErr != nil {
			return nil, fmt.Errorf("encode params: %w", mErr)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
	default:
		u, pErr := url.Parse(endpoint)
		if pErr != nil {
			return nil, fmt.Errorf("parse api url: %w", pErr)
		}
		q := u.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
	}

	req.Header.Set("Accept", "application/json")
	for k, v := range api.Headers {
		req.Header.Set(k, e.substitute(v, keywords))
	}
	return req, nil
}

// substitute fills the keywords placeholder and ${NAME} credential references.
func (e *APIExecutor) substitute(s, keywords string) string {
	s = strings.ReplaceAll(s, KeywordsPlaceholder, keywords)
	return envPlaceholder.ReplaceAllStringFunc(s, func(m string) string {
		return e.getenv(envPlaceholder.FindStringSubmatch(m)[1])
	})
}

func (e *APIExecutor) limiter(name string, perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.limiters[name]
	if !ok {
		l = rate.NewLimiter(rate.Limit(perSecond), 1)
		e.limiters[name] = l
	}
	return l
}

// MapItems extracts the item list at the mapper's items path and maps every
// item's fields, keeping at most MaxResults items.
func MapItems(body []byte, providerName string, api *provider.APIConfig) ([]models.Product, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("response is not valid JSON")
	}

	items := gjson.GetBytes(body, toGJSONPath(api.Mapper.ItemsPath))
	if !items.IsArray() {
		return nil, fmt.Errorf("items path %q resolved to %s, want array", api.Mapper.ItemsPath, describe(items))
	}

	raw := items.Array()
	if api.MaxResults > 0 && len(raw) > api.MaxResults {
		raw = raw[:api.MaxResults]
	}

	products := make([]models.Product, 0, len(raw))
	for _, item := range raw {
		p := models.Product{Source: providerName}
		for field, path := range api.Mapper.Fields {
			setField(&p, field, fieldValue(item.Get(toGJSONPath(path))))
		}
		p.ItemID = prefixItemID(providerName, p.ItemID)
		products = append(products, p)
	}
	return products, nil
}

// fieldValue flattens a mapped value into a display string. Single-element
// arrays are unwrapped and amount+currency objects are joined.
func fieldValue(v gjson.Result) string {
	for v.IsArray() {
		arr := v.Array()
		if len(arr) != 1 {
			if len(arr) == 0 {
				return ""
			}
			return v.Raw
		}
		v = arr[0]
	}

	if v.IsObject() {
		amount, ok := objectKey(v, amountKeys)
		if !ok {
			return ""
		}
		code, _ := objectKey(v, currencyKeys)
		return strings.TrimSpace(fieldValue(amount) + " " + fieldValue(code))
	}
	if !v.Exists() || v.Type == gjson.Null {
		return ""
	}
	return v.String()
}

func objectKey(obj gjson.Result, keys []string) (gjson.Result, bool) {
	m := obj.Map()
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return gjson.Result{}, false
}

// toGJSONPath rewrites a lodash-style path such as "a[0].b" into gjson syntax.
func toGJSONPath(path string) string {
	var b strings.Builder
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch c {
		case '[':
			if b.Len() > 0 {
				b.WriteByte('.')
			}
		case ']':
		case '@', '*', '?', '#', '|', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func describe(r gjson.Result) string {
	if !r.Exists() {
		return "nothing"
	}
	switch {
	case r.IsObject():
		return "object"
	case r.Type == gjson.String:
		return "string"
	case r.Type == gjson.Number:
		return "number"
	default:
		return r.Type.String()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
