package crawler

import (
	"net/url"
	"strings"

	"dealhunter/models"
)

// Field names shared by API and scraper mappers.
const (
	FieldItemID      = "itemId"
	FieldTitle       = "title"
	FieldPrice       = "price"
	FieldGalleryURL  = "galleryURL"
	FieldViewItemURL = "viewItemURL"
)

func setField(p *models.Product, field, value string) {
	switch field {
	case FieldItemID:
		p.ItemID = value
	case FieldTitle:
		p.Title = value
	case FieldPrice:
		p.Price = value
	case FieldGalleryURL:
		p.GalleryURL = value
	case FieldViewItemURL:
		p.ViewItemURL = value
	}
}

// prefixItemID namespaces a raw id with the lower-cased provider name.
func prefixItemID(providerName, rawID string) string {
	return strings.ToLower(providerName) + "-" + rawID
}

// resolveURL makes ref absolute against base. Absolute refs and unparseable
// input are returned unchanged.
func resolveURL(base, ref string) string {
	if ref == "" || base == "" || strings.HasPrefix(ref, "http") {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

// escapeKeywords encodes keywords for a URL template, with spaces as %20.
func escapeKeywords(keywords string) string {
	return strings.ReplaceAll(url.QueryEscape(keywords), "+", "%20")
}
