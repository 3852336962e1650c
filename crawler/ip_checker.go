package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var DefaultIPCheckServices = []string{
	"https://api.ipify.org",
	"https://httpbin.org/ip",
	"https://icanhazip.com",
}

// PublicIP reports the address provider traffic leaves from, trying each
// service in turn. It returns "unknown" when none answers.
func PublicIP(ctx context.Context, client *http.Client, services []string, logger *zap.Logger) string {
	for _, service := range services {
		ip, err := checkService(ctx, client, service)
		if err != nil {
			logger.Warn("ip check failed",
				zap.String("service", service),
				zap.Error(err))
			continue
		}

		if ip != "" {
			logger.Info("ip check successful",
				zap.String("ip", ip),
				zap.String("service", service))
			return ip
		}
	}

	logger.Warn("could not determine public ip")
	return "unknown"
}

func checkService(ctx context.Context, client *http.Client, service string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, service, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "DealHunter/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}
	return parseIPResponse(body), nil
}

// parseIPResponse accepts plain-text bodies and JSON bodies carrying an
// "origin" or "ip" field.
func parseIPResponse(body []byte) string {
	if gjson.ValidBytes(body) {
		res := gjson.ParseBytes(body)
		for _, key := range []string{"origin", "ip"} {
			if v := res.Get(key); v.Exists() {
				return strings.TrimSpace(v.String())
			}
		}
	}
	return strings.TrimSpace(string(body))
}
