package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Sections of config.local.yaml that replace the base configuration wholesale.
const (
	keyAPIKey   = "api_key"
	keyAdminQQs = "admin_qqs"
	keyOneBot   = "onebot"
	keyCooldown = "cooldown"
	keyLogging  = "logging"
)

//nolint:gochecknoglobals // Compile-time constant lookup table.
var knownTopLevelKeys = map[string]bool{
	keyAPIKey:   true,
	keyAdminQQs: true,
	keyOneBot:   true,
	keyCooldown: true,
	keyLogging:  true,
}

// ShallowMergeYAML loads a YAML file and merges its top-level keys onto
// target. A key present in the overlay replaces the whole section; keys
// absent from it, and keys outside the known sections, are left alone.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading overlay file %s: %w", overlayPath, err)
	}

	var overlay map[string]any
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing overlay YAML from %s: %w", overlayPath, err)
	}

	for key, value := range overlay {
		if !knownTopLevelKeys[key] {
			continue
		}

		sectionBytes, marshalErr := yaml.Marshal(value)
		if marshalErr != nil {
			return fmt.Errorf("re-marshalling overlay section %q: %w", key, marshalErr)
		}

		if err = unmarshalSection(target, key, sectionBytes); err != nil {
			return fmt.Errorf("applying overlay section %q: %w", key, err)
		}
	}

	return nil
}

// unmarshalSection decodes into a fresh value so maps are replaced rather
// than merged.
func unmarshalSection(target *Config, key string, data []byte) error {
	switch key {
	case keyAPIKey:
		var v string
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.APIKey = v
	case keyAdminQQs:
		var v map[string]string
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.AdminQQs = v
	case keyOneBot:
		var v OneBotConfig
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.OneBot = v
	case keyCooldown:
		var v CooldownConfig
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Cooldown = v
	case keyLogging:
		var v LoggingConfig
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Logging = v
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
