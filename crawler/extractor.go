package crawler

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dealhunter/models"
	"dealhunter/provider"
)

// ExtractCards reads up to MaxResults product cards from rendered HTML. A card
// is kept only when its itemId, title and price were all found; dropped counts
// the cards that were not.
func ExtractCards(htmlContent, providerName string, cfg *provider.ScraperConfig) (products []models.Product, dropped int, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, 0, fmt.Errorf("parse html: %w", err)
	}

	doc.Find(cfg.CardSelector).EachWithBreak(func(i int, card *goquery.Selection) bool {
		if cfg.MaxResults > 0 && i >= cfg.MaxResults {
			return false
		}

		p := models.Product{Source: providerName}
		for field, sel := range cfg.Mapper.Fields {
			if value, ok := extractField(card, sel); ok {
				setField(&p, field, value)
			}
		}

		if p.ItemID == "" || p.Title == "" || p.Price == "" {
			dropped++
			return true
		}

		p.ItemID = prefixItemID(providerName, p.ItemID)
		p.ViewItemURL = resolveURL(cfg.BaseURL, p.ViewItemURL)
		p.GalleryURL = resolveURL(cfg.BaseURL, p.GalleryURL)
		products = append(products, p)
		return true
	})

	return products, dropped, nil
}

func extractField(card *goquery.Selection, sel provider.FieldSelector) (string, bool) {
	element := card
	if sel.Selector != "" {
		element = card.Find(sel.Selector).First()
	}
	if element.Length() == 0 {
		return "", false
	}

	var value string
	if sel.Attribute != "" {
		attr, ok := element.Attr(sel.Attribute)
		if !ok {
			return "", false
		}
		value = attr
	} else {
		value = element.Text()
	}

	value = strings.TrimSpace(value)
	return value, value != ""
}
