package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string                       `json:"log_level" yaml:"log_level"`
	Engine   EngineConfig                 `json:"engine" yaml:"engine"`
	Buffer   BufferConfig                 `json:"buffer" yaml:"buffer"`
	Backends map[string]ObjectStoreConfig `json:"backends" yaml:"backends"`
	TestData TestDataConfig               `json:"test_data" yaml:"test_data"`
	OTLP     OTLPConfig                   `json:"otlp" yaml:"otlp"`
}

type EngineConfig struct {
	MaxRetries    int           `json:"max_retries" yaml:"max_retries"`
	RetryInterval time.Duration `json:"retry_interval" yaml:"retry_interval"`
}

type BufferConfig struct {
	Size int `json:"size" yaml:"size"`
}

// ObjectStoreConfig selects and configures one object-store client.
type ObjectStoreConfig struct {
	Type     string      `json:"type" yaml:"type"`
	Bucket   string      `json:"bucket" yaml:"bucket"`
	LocalDir string      `json:"local_dir" yaml:"local_dir"`
	S3       S3Config    `json:"s3" yaml:"s3"`
	Swift    SwiftConfig `json:"swift" yaml:"swift"`
}

type S3Config struct {
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	UseSSL          bool   `json:"use_ssl" yaml:"use_ssl"`
}

type SwiftConfig struct {
	AuthURL     string `json:"auth_url" yaml:"auth_url"`
	UserName    string `json:"user_name" yaml:"user_name"`
	APIKey      string `json:"api_key" yaml:"api_key"`
	Tenant      string `json:"tenant" yaml:"tenant"`
	Domain      string `json:"domain" yaml:"domain"`
	Region      string `json:"region" yaml:"region"`
	AuthVersion int    `json:"auth_version" yaml:"auth_version"`
}

// Live reports whether the backend points at a real endpoint rather than an
// in-process stand-in.
func (c ObjectStoreConfig) Live() bool {
	switch c.Type {
	case "", "memory":
		return false
	case "local":
		return c.LocalDir != ""
	case "swift", "swift2d":
		return c.Swift.AuthURL != ""
	default:
		return c.S3.Endpoint != "" || c.S3.Region != ""
	}
}

type TestDataConfig struct {
	Dir string `json:"dir" yaml:"dir"`
}

type OTLPConfig struct {
	Endpoint    string            `json:"endpoint" yaml:"endpoint"`
	Protocol    string            `json:"protocol" yaml:"protocol"`
	ServiceName string            `json:"service_name" yaml:"service_name"`
	Insecure    bool              `json:"insecure" yaml:"insecure"`
	Headers     map[string]string `json:"headers" yaml:"headers"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	content := []byte(SubstituteEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		// Try JSON if YAML fails
		if err := json.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file (tried YAML and JSON): %w", err)
		}
	}

	return &cfg, nil
}

// Load reads the file named by OSTEST_CONFIG when set, then applies
// OSTEST_* environment overrides. A missing OSTEST_CONFIG yields an empty,
// env-only configuration.
func Load() (*Config, error) {
	cfg := &Config{}
	if path := os.Getenv("OSTEST_CONFIG"); path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	ApplyEnv(cfg)
	return cfg, nil
}

// ApplyEnv overlays environment variables on cfg. Environment wins.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("OSTEST_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("OSTEST_DATA_DIR"); v != "" {
		cfg.TestData.Dir = v
	}
	if v := os.Getenv("OSTEST_OTLP_ENDPOINT"); v != "" {
		cfg.OTLP.Endpoint = v
	}

	for _, backend := range []string{"COS", "S3A", "SWIFT2D"} {
		b, ok := cfg.Backends[backend]
		changed := false
		set := func(dst *string, key string) {
			if v := os.Getenv("OSTEST_" + backend + "_" + key); v != "" {
				*dst = v
				changed = true
			}
		}

		set(&b.Type, "TYPE")
		set(&b.Bucket, "BUCKET")
		if backend == "SWIFT2D" {
			set(&b.Swift.AuthURL, "AUTH_URL")
			set(&b.Swift.UserName, "USER")
			set(&b.Swift.APIKey, "API_KEY")
			set(&b.Swift.Tenant, "TENANT")
			set(&b.Swift.Domain, "DOMAIN")
			set(&b.Swift.Region, "REGION")
			if changed && b.Type == "" {
				b.Type = "swift"
			}
		} else {
			set(&b.S3.Endpoint, "ENDPOINT")
			set(&b.S3.Region, "REGION")
			set(&b.S3.AccessKeyID, "ACCESS_KEY")
			set(&b.S3.SecretAccessKey, "SECRET_KEY")
			if changed && b.Type == "" {
				b.Type = strings.ToLower(backend)
			}
		}

		if changed || ok {
			if cfg.Backends == nil {
				cfg.Backends = make(map[string]ObjectStoreConfig)
			}
			cfg.Backends[backend] = b
		}
	}
}
