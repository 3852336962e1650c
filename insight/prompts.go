package insight

import (
	"fmt"

	"github.com/goccy/go-json"

	"dealhunter/models"
)

const extractNamePrompt = `You are a product search expert. Analyze the user's search input and extract the most specific, searchable product name.

User input: %q

Your task:
1. Extract the core product name from the user's query
2. Remove unnecessary words like "cheap", "best", "buy", "online", etc.
3. Keep brand names and model numbers if present
4. Make it suitable for e-commerce search engines
5. Return ONLY the refined product name, nothing else

Examples:
- "I want to buy a cheap iPhone 15" -> "iPhone 15"
- "best gaming laptop under 1000" -> "gaming laptop"
- "Samsung Galaxy S24 Ultra review" -> "Samsung Galaxy S24 Ultra"
- "where can I find Nike Air Max shoes" -> "Nike Air Max shoes"

Respond with only the refined product name:`

const rankPrompt = `You are "Deal Hunter AI", an expert at analyzing product listings to find the best value deals.

SEARCH CONTEXT:
%s

PRODUCT DATA:
%s

ANALYSIS TASKS:
1. Provide a concise, helpful summary (max 2-3 sentences) starting with "Here's the deal:"
2. Consider price, product quality indicators (title details), and source reliability
3. Pick the BEST overall value product and return its exact "itemId" as "bestChoiceId"
4. Pick a SECOND best option and return its exact "itemId" as "secondBestId" (if applicable)
5. Focus on value for money, not just lowest price

RESPONSE FORMAT (must be valid JSON):
{
  "summary": "Here's the deal: [Your analysis of the best options available]",
  "bestChoiceId": "exact_item_id_here",
  "secondBestId": "exact_item_id_here_or_null"
}`

type promptProduct struct {
	ItemID string `json:"itemId"`
	Title  string `json:"title"`
	Price  string `json:"price"`
	Source string `json:"source"`
}

func buildExtractNamePrompt(raw string) string {
	return fmt.Sprintf(extractNamePrompt, raw)
}

func buildRankPrompt(products []models.Product, query string) (string, error) {
	slim := make([]promptProduct, len(products))
	for i, p := range products {
		slim[i] = promptProduct{ItemID: p.ItemID, Title: p.Title, Price: p.Price, Source: p.Source}
	}
	data, err := json.MarshalIndent(slim, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode products: %w", err)
	}

	original, refined := query, query
	if len(products) > 0 {
		if products[0].OriginalSearchTerm != "" {
			original = products[0].OriginalSearchTerm
		}
		if products[0].RefinedSearchTerm != "" {
			refined = products[0].RefinedSearchTerm
		}
	}

	searchContext := fmt.Sprintf("- User searched for: %q", query)
	if original != refined {
		searchContext = fmt.Sprintf("- User originally searched: %q\n- Refined to specific product: %q", original, refined)
	}

	return fmt.Sprintf(rankPrompt, searchContext, data), nil
}
