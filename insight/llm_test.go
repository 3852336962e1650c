package insight

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"dealhunter/models"
)

type stubModel struct {
	reply   string
	err     error
	prompts []string
}

func (m *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				m.prompts = append(m.prompts, text.Text)
			}
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

var page = []models.Product{
	{ItemID: "ebay-1", Title: "ASUS Gaming Laptop X", Price: "$1,299.00", Source: "eBay", OriginalSearchTerm: "cheap gaming laptop", RefinedSearchTerm: "gaming laptop"},
	{ItemID: "daraz-2", Title: "Lenovo Gaming Laptop", Price: "$999.00", Source: "Daraz", OriginalSearchTerm: "cheap gaming laptop", RefinedSearchTerm: "gaming laptop"},
	{ItemID: "ebay-3", Title: "HP Laptop", Price: "$499.00", Source: "eBay", OriginalSearchTerm: "cheap gaming laptop", RefinedSearchTerm: "gaming laptop"},
}

func TestLLMAdapter_ExtractName(t *testing.T) {
	model := &stubModel{reply: "  \"iPhone 15\"\n"}
	adapter := NewLLMAdapter(model, 0.2, zap.NewNop())

	name, err := adapter.ExtractName(context.Background(), "I want to buy a cheap iPhone 15")
	require.NoError(t, err)
	assert.Equal(t, "iPhone 15", name)
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], `"I want to buy a cheap iPhone 15"`)
}

func TestLLMAdapter_ExtractNameFailure(t *testing.T) {
	adapter := NewLLMAdapter(&stubModel{err: errors.New("quota")}, 0.2, zap.NewNop())
	_, err := adapter.ExtractName(context.Background(), "laptop")
	assert.Error(t, err)

	adapter = NewLLMAdapter(&stubModel{reply: "   "}, 0.2, zap.NewNop())
	_, err = adapter.ExtractName(context.Background(), "laptop")
	assert.Error(t, err)
}

func TestLLMAdapter_Rank(t *testing.T) {
	testCases := []struct {
		name     string
		reply    string
		expected Insight
	}{
		{
			name:  "PlainJSON",
			reply: `{"summary": "Here's the deal: the Lenovo wins.", "bestChoiceId": "daraz-2", "secondBestId": "ebay-3"}`,
			expected: Insight{
				Summary:      "Here's the deal: the Lenovo wins.",
				BestChoiceID: "daraz-2",
				SecondBestID: "ebay-3",
			},
		},
		{
			name:  "FencedJSONWithNullSecond",
			reply: "```json\n{\"summary\": \"Here's the deal: one clear pick.\", \"bestChoiceId\": \"ebay-3\", \"secondBestId\": null}\n```",
			expected: Insight{
				Summary:      "Here's the deal: one clear pick.",
				BestChoiceID: "ebay-3",
				SecondBestID: "daraz-2",
			},
		},
		{
			name:  "ProseWithEmbeddedFields",
			reply: "Sure!\nHere's the deal: the HP is cheapest.\n\"bestChoiceId\": \"ebay-3\", \"secondBestId\": \"daraz-2\"",
			expected: Insight{
				Summary:      "Here's the deal: the HP is cheapest.",
				BestChoiceID: "ebay-3",
				SecondBestID: "daraz-2",
			},
		},
		{
			name:  "UnusableText",
			reply: "I cannot help with that.",
			expected: Insight{
				Summary:      fallbackSummary,
				BestChoiceID: "ebay-1",
				SecondBestID: "daraz-2",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			adapter := NewLLMAdapter(&stubModel{reply: tc.reply}, 0.2, zap.NewNop())

			insight, err := adapter.Rank(context.Background(), page, "gaming laptop")
			require.NoError(t, err)
			assert.Equal(t, tc.expected, insight)
		})
	}
}

func TestLLMAdapter_RankPrompt(t *testing.T) {
	model := &stubModel{reply: `{"summary": "Here's the deal: ok", "bestChoiceId": "ebay-1"}`}
	adapter := NewLLMAdapter(model, 0.2, zap.NewNop())

	_, err := adapter.Rank(context.Background(), page, "gaming laptop")
	require.NoError(t, err)

	require.Len(t, model.prompts, 1)
	prompt := model.prompts[0]
	assert.True(t, strings.HasPrefix(prompt, `You are "Deal Hunter AI"`))
	assert.Contains(t, prompt, `User originally searched: "cheap gaming laptop"`)
	assert.Contains(t, prompt, `Refined to specific product: "gaming laptop"`)
	assert.Contains(t, prompt, `"itemId": "daraz-2"`)
}

func TestLLMAdapter_RankEmptyPageSkipsModel(t *testing.T) {
	model := &stubModel{}
	adapter := NewLLMAdapter(model, 0.2, zap.NewNop())

	insight, err := adapter.Rank(context.Background(), nil, "laptop")
	require.NoError(t, err)
	assert.Equal(t, Insight{Summary: NoListingsSummary}, insight)
	assert.Empty(t, model.prompts)
}

func TestLLMAdapter_RankFailure(t *testing.T) {
	adapter := NewLLMAdapter(&stubModel{err: errors.New("unavailable")}, 0.2, zap.NewNop())

	_, err := adapter.Rank(context.Background(), page, "laptop")
	assert.Error(t, err)
}

func TestNewModel_DisabledWithoutKey(t *testing.T) {
	model, err := NewModel(context.Background(), Config{Provider: "googleai"})
	require.NoError(t, err)
	assert.Nil(t, model)
}
