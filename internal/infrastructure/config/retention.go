package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bibbank/churn-service/internal/domain/service"
)

// LoadRetention reads the retention playbook settings from a YAML file.
// Keys absent from the file keep their defaults; an empty path returns the
// defaults unchanged.
func LoadRetention(path string) (service.RetentionConfig, error) {
	cfg := service.DefaultRetentionConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read retention config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config: parse retention config %s: %w", path, err)
	}
	if err := validateRetention(cfg); err != nil {
		return cfg, fmt.Errorf("config: retention config %s: %w", path, err)
	}
	return cfg, nil
}

func validateRetention(cfg service.RetentionConfig) error {
	switch {
	case cfg.ExpectedLifetimeYears < 1:
		return errors.New("expected_lifetime_years must be at least 1")
	case cfg.DiscountRate < 0:
		return errors.New("discount_rate must not be negative")
	case cfg.RetentionSuccessRate < 0 || cfg.RetentionSuccessRate > 1:
		return errors.New("retention_success_rate must be in [0,1]")
	case cfg.CampaignCostPerCustomer < 0:
		return errors.New("campaign_cost_per_customer must not be negative")
	}
	return nil
}
