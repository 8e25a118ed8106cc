// Package config provides configuration utilities for the application.
package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/caderno-vivo/caderno/internal/refine"
)

// LoadRefinerConfig loads the AI refiner configuration from Viper and
// environment variables. Precedence:
// 1. Viper configuration (from config file or CADERNO_ env vars)
// 2. Direct environment variables (OPENAI_API_KEY, OPENAI_MODEL)
func LoadRefinerConfig() refine.Config {
	var cfg refine.Config

	if v := viper.GetString("refiner.api_key"); v != "" {
		cfg.APIKey = v
	}
	if v := viper.GetString("refiner.model"); v != "" {
		cfg.Model = v
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = os.Getenv("OPENAI_MODEL")
	}

	return cfg
}

// RefinerEnabled reports whether auto-refinement should run at all. The
// refiner.enabled key defaults to true so that setting an API key is the
// only step needed to turn the feature on.
func RefinerEnabled() bool {
	if !viper.IsSet("refiner.enabled") {
		return true
	}
	return viper.GetBool("refiner.enabled")
}
