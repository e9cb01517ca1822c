// Package config loads the process configuration entirely from the
// environment via viper, with no required config file.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds every setting the slide-generation service reads at boot.
type Config struct {
	FoundryProjectEndpoint string `mapstructure:"foundry_project_endpoint"`
	FoundryAPIVersion      string `mapstructure:"foundry_api_version"`
	ModelDeploymentName    string `mapstructure:"model_deployment_name"`
	FoundryHTTPTimeoutSecs int    `mapstructure:"foundry_http_timeout_seconds"`

	SeedDataDir string `mapstructure:"seed_data_dir"`

	StateStore     string `mapstructure:"state_store"`
	StateLocalPath string `mapstructure:"state_local_path"`
	RedisAddr      string `mapstructure:"redis_addr"`
	RedisPassword  string `mapstructure:"redis_password"`
	RedisDB        int    `mapstructure:"redis_db"`

	JobDataDir string `mapstructure:"job_data_dir"`

	AllowHTMLDownload  bool   `mapstructure:"allow_html_download"`
	HTMLDownloadAPIKey string `mapstructure:"html_download_api_key"`

	CORSAllowedOrigins []string `mapstructure:"-"`

	ListenAddr string `mapstructure:"listen_addr"`
}

// Validate checks the required-field and range rules from the
// configuration contract.
func (c Config) Validate() error {
	if strings.TrimSpace(c.FoundryProjectEndpoint) == "" {
		return fmt.Errorf("FOUNDRY_PROJECT_ENDPOINT is required")
	}
	if strings.TrimSpace(c.ModelDeploymentName) == "" {
		return fmt.Errorf("MODEL_DEPLOYMENT_NAME is required")
	}
	if c.FoundryHTTPTimeoutSecs < 10 || c.FoundryHTTPTimeoutSecs > 600 {
		return fmt.Errorf("FOUNDRY_HTTP_TIMEOUT_SECONDS must be between 10 and 600, got %d", c.FoundryHTTPTimeoutSecs)
	}
	return nil
}

// Load reads configuration from the environment, applying the defaults
// from the configuration contract. It does not require a config file on
// disk; every setting is sourced from an env var of the same name as its
// mapstructure tag, upper-cased.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("foundry_api_version", "2025-11-15-preview")
	v.SetDefault("foundry_http_timeout_seconds", 600)
	v.SetDefault("seed_data_dir", "seed-data")
	v.SetDefault("state_store", "local")
	v.SetDefault("state_local_path", "data/state.json")
	v.SetDefault("redis_db", 0)
	v.SetDefault("job_data_dir", "data/jobs")
	v.SetDefault("allow_html_download", false)
	v.SetDefault("listen_addr", ":8080")

	v.AutomaticEnv()
	for _, key := range []string{
		"foundry_project_endpoint", "foundry_api_version", "model_deployment_name",
		"foundry_http_timeout_seconds", "seed_data_dir", "state_store", "state_local_path",
		"redis_addr", "redis_password", "redis_db", "job_data_dir",
		"allow_html_download", "html_download_api_key", "cors_allowed_origins", "listen_addr",
	} {
		_ = v.BindEnv(key, strings.ToUpper(key))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	origins := v.GetString("cors_allowed_origins")
	if strings.TrimSpace(origins) == "" {
		cfg.CORSAllowedOrigins = []string{"http://localhost:5173"}
	} else {
		var parsed []string
		for _, o := range strings.Split(origins, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				parsed = append(parsed, o)
			}
		}
		cfg.CORSAllowedOrigins = parsed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
