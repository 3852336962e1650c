package insight

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"dealhunter/models"
)

const (
	defaultSummary  = "Here's the deal: Multiple options available with varying prices and features."
	fallbackSummary = "Here's the deal: Found several options - check the listings for the best fit for your needs."
)

var (
	codeFence     = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	summaryMatch  = regexp.MustCompile(`(?i)Here's the deal:[^\n\r"]*`)
	bestIDMatch   = regexp.MustCompile(`"bestChoiceId"\s*:\s*"([^"]+)"`)
	secondIDMatch = regexp.MustCompile(`"secondBestId"\s*:\s*"([^"]+)"`)
)

type Config struct {
	// Provider is "googleai" or "openai".
	Provider    string
	APIKey      string
	Model       string
	Temperature float64
}

// NewModel builds the language model for cfg. It returns nil when no API key is
// configured, which disables AI features.
func NewModel(ctx context.Context, cfg Config) (llms.Model, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}

	switch strings.ToLower(cfg.Provider) {
	case "", "googleai", "gemini":
		model := cfg.Model
		if model == "" {
			model = "gemini-1.5-flash"
		}
		llm, err := googleai.New(ctx, googleai.WithAPIKey(cfg.APIKey), googleai.WithDefaultModel(model))
		if err != nil {
			return nil, fmt.Errorf("create googleai model: %w", err)
		}
		return llm, nil
	case "openai":
		opts := []openai.Option{openai.WithToken(cfg.APIKey)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

// LLMAdapter implements Adapter on top of a langchaingo model.
type LLMAdapter struct {
	model       llms.Model
	temperature float64
	logger      *zap.Logger
}

func NewLLMAdapter(model llms.Model, temperature float64, logger *zap.Logger) *LLMAdapter {
	return &LLMAdapter{
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

func (a *LLMAdapter) ExtractName(ctx context.Context, raw string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, a.model, buildExtractNamePrompt(raw),
		llms.WithTemperature(a.temperature))
	if err != nil {
		return "", fmt.Errorf("extract product name: %w", err)
	}

	name := strings.Trim(strings.TrimSpace(out), `"'`)
	if name == "" {
		return "", errors.New("extract product name: empty response")
	}
	a.logger.Info("extracted product name", zap.String("input", raw), zap.String("name", name))
	return name, nil
}

func (a *LLMAdapter) Rank(ctx context.Context, products []models.Product, query string) (Insight, error) {
	if len(products) == 0 {
		return Insight{Summary: NoListingsSummary}, nil
	}

	prompt, err := buildRankPrompt(products, query)
	if err != nil {
		return Insight{}, err
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, a.model, prompt, llms.WithTemperature(a.temperature))
	if err != nil {
		return Insight{}, fmt.Errorf("rank products: %w", err)
	}

	insight, ok := parseInsight(out)
	if !ok {
		a.logger.Warn("model response is not JSON, extracting fields from text", zap.Int("length", len(out)))
	}
	if insight.Summary == "" {
		if ok {
			insight.Summary = defaultSummary
		} else {
			insight.Summary = fallbackSummary
		}
	}
	if insight.BestChoiceID == "" {
		insight.BestChoiceID = products[0].ItemID
	}
	if insight.SecondBestID == "" && len(products) > 1 {
		insight.SecondBestID = products[1].ItemID
	}
	return insight, nil
}

// parseInsight decodes the model's JSON answer. When the text is not valid JSON
// the fields are pulled out with regular expressions and ok is false.
func parseInsight(text string) (insight Insight, ok bool) {
	text = strings.TrimSpace(text)
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	var resp struct {
		Summary      string  `json:"summary"`
		BestChoiceID *string `json:"bestChoiceId"`
		SecondBestID *string `json:"secondBestId"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err == nil {
		insight.Summary = resp.Summary
		insight.BestChoiceID = deref(resp.BestChoiceID)
		insight.SecondBestID = deref(resp.SecondBestID)
		return insight, true
	}

	insight.Summary = strings.TrimSpace(summaryMatch.FindString(text))
	if m := bestIDMatch.FindStringSubmatch(text); m != nil {
		insight.BestChoiceID = m[1]
	}
	if m := secondIDMatch.FindStringSubmatch(text); m != nil {
		insight.SecondBestID = m[1]
	}
	return insight, false
}

func deref(s *string) string {
	if s == nil || *s == "null" {
		return ""
	}
	return *s
}
