package provider

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Load reads provider definitions from a YAML or JSON file. It never fails:
// an unreadable file yields no providers, and an invalid entry is skipped.
// Both are logged.
func Load(path string, logger *zap.Logger) []Config {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("failed to read provider file", zap.String("path", path), zap.Error(err))
		return nil
	}

	providers, err := Parse(data, logger)
	if err != nil {
		logger.Error("failed to parse provider file", zap.String("path", path), zap.Error(err))
		return nil
	}

	logger.Info("providers loaded", zap.String("path", path), zap.Int("count", len(providers)))
	return providers
}

// Parse decodes a list of provider definitions, skipping entries that cannot be
// decoded. An error is returned only when the document is not a list.
func Parse(data []byte, logger *zap.Logger) ([]Config, error) {
	var nodes []yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("decode provider list: %w", err)
	}

	providers := make([]Config, 0, len(nodes))
	for i := range nodes {
		var cfg Config
		if err := nodes[i].Decode(&cfg); err != nil {
			var unknown *UnknownTypeError
			if errors.As(err, &unknown) {
				logger.Warn("skipping provider with unknown type",
					zap.String("provider", unknown.Name),
					zap.String("type", unknown.Type))
				continue
			}
			logger.Warn("skipping invalid provider", zap.Int("index", i), zap.Error(err))
			continue
		}
		providers = append(providers, cfg)
	}
	return providers, nil
}
