package crawler

import (
	"time"
)

type CrawlerConfig struct {
	UserAgent string
	// ProxyURL routes outbound provider traffic, e.g. socks5://127.0.0.1:9050.
	ProxyURL       string
	RequestTimeout time.Duration
	Headless       bool
	// ExecPath overrides the Chrome binary used by the browser renderer.
	ExecPath string
}

// DefaultConfig returns a default crawler configuration
func DefaultConfig() *CrawlerConfig {
	return &CrawlerConfig{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		RequestTimeout: 30 * time.Second,
		Headless:       true,
	}
}
