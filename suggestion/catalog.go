package suggestion

// Category groups related search phrases.
type Category struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// Catalog is the curated suggestion data. Trending is refreshed from recent
// searches; Popular and Categories are static.
type Catalog struct {
	Trending   []string   `json:"trending"`
	Popular    []string   `json:"popular"`
	Categories []Category `json:"categories"`
}

func defaultCatalog() Catalog {
	return Catalog{
		Trending: []string{
			"wireless headphones",
			"gaming laptop",
			"smartphone under 500",
			"bluetooth speaker",
			"mechanical keyboard",
			"fitness tracker",
			"coffee maker",
			"air fryer",
			"smart watch",
			"laptop bag",
		},
		Popular: []string{
			"iPhone",
			"Samsung Galaxy",
			"MacBook",
			"AirPods",
			"iPad",
			"PlayStation",
			"Xbox",
			"Nintendo Switch",
			"Canon camera",
			"Sony headphones",
		},
		Categories: []Category{
			{Name: "Electronics", Items: []string{"smartphone", "laptop", "tablet", "headphones", "camera", "smart tv"}},
			{Name: "Gaming", Items: []string{"gaming laptop", "gaming mouse", "gaming keyboard", "gaming chair", "PS5", "Xbox"}},
			{Name: "Fashion", Items: []string{"shoes", "jacket", "watch", "sunglasses", "backpack", "wallet"}},
			{Name: "Home", Items: []string{"coffee maker", "air fryer", "vacuum cleaner", "smart bulb", "speaker"}},
			{Name: "Sports", Items: []string{"fitness tracker", "yoga mat", "dumbbells", "running shoes", "bicycle"}},
		},
	}
}

// Entry is one recorded search.
type Entry struct {
	Query     string `json:"query"`
	Timestamp int64  `json:"timestamp"`
	UserID    string `json:"userId,omitempty"`
}

// History is the recorded search log, newest first, plus a per-query counter.
type History struct {
	Searches        []Entry        `json:"searches"`
	PopularSearches map[string]int `json:"popularSearches"`
}
