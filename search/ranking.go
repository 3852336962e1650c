package search

import (
	"fmt"
	"sort"

	"dealhunter/insight"
	"dealhunter/models"
)

const signInSummary = "Sign in to get AI-powered deal insights. Highlighted items are the lowest-priced listings on this page."

// fallbackPicks chooses the cheapest and second-cheapest items on the page.
// Items without a parsed price are ignored unless nothing on the page has one.
// Ties keep page order.
func fallbackPicks(products []models.Product) (best, second string) {
	var candidates []int
	for i, p := range products {
		if p.PriceNumeric > 0 {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		for i := range products {
			candidates = append(candidates, i)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return products[candidates[i]].PriceNumeric < products[candidates[j]].PriceNumeric
	})

	if len(candidates) > 0 {
		best = products[candidates[0]].ItemID
	}
	if len(candidates) > 1 {
		second = products[candidates[1]].ItemID
	}
	return best, second
}

func fallbackInsight(products []models.Product, query string) insight.Insight {
	best, second := fallbackPicks(products)
	summary := insight.NoListingsSummary
	if p, ok := findProduct(products, best); ok {
		summary = fmt.Sprintf("Here's the deal: %s from %s has the lowest price (%s) among %d listings for %q.",
			p.Title, p.Source, p.Price, len(products), query)
	}
	return insight.Insight{Summary: summary, BestChoiceID: best, SecondBestID: second}
}

// reconcile keeps the model's picks that refer to items on the page and fills
// the rest from the price fallback.
func reconcile(ai insight.Insight, products []models.Product) insight.Insight {
	fbBest, fbSecond := fallbackPicks(products)

	best := ai.BestChoiceID
	if _, ok := findProduct(products, best); !ok {
		best = fbBest
	}

	second := ai.SecondBestID
	if _, ok := findProduct(products, second); !ok || second == best {
		second = ""
		for _, id := range []string{fbBest, fbSecond} {
			if id != "" && id != best {
				second = id
				break
			}
		}
	}

	return insight.Insight{Summary: ai.Summary, BestChoiceID: best, SecondBestID: second}
}

func findProduct(products []models.Product, id string) (models.Product, bool) {
	if id == "" {
		return models.Product{}, false
	}
	for _, p := range products {
		if p.ItemID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// applyLabels marks the highlighted items on the page.
func applyLabels(products []models.Product, best, second string) {
	for i := range products {
		switch {
		case best != "" && products[i].ItemID == best:
			products[i].Label = models.LabelBestChoice
		case second != "" && products[i].ItemID == second:
			products[i].Label = models.LabelSecondBest
		default:
			products[i].Label = models.LabelNone
		}
	}
}
