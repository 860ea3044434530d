package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server" validate:"required"`
	AI      AIConfig      `yaml:"ai" validate:"required"`
	GitHub  GitHubConfig  `yaml:"github"`
	Hosting HostingConfig `yaml:"hosting"`
	Store   StoreConfig   `yaml:"store"`
	Limits  Limits        `yaml:"limits" validate:"required"`
}

type ServerConfig struct {
	Addr          string `yaml:"addr" validate:"required"`
	AllowedOrigin string `yaml:"allowed_origin"`
}

type AIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model" validate:"required"`
	BaseURL string `yaml:"base_url" validate:"required,url"`
	Timeout int    `yaml:"timeout" validate:"required,min=10,max=3600"`
}

type GitHubConfig struct {
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
}

type HostingConfig struct {
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

// Load reads the optional YAML config file, overlays credentials from the
// environment, applies defaults, and validates the result. A missing config
// file is not an error; credentials are checked lazily by the operations
// that need them so the server can start partially configured.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := configPath(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func configPath() string {
	if path := os.Getenv("SITEFORGE_CONFIG"); path != "" {
		return path
	}
	return "siteforge.yaml"
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          ":8080",
			AllowedOrigin: "*",
		},
		AI: AIConfig{
			Model:   "gemini-2.0-flash",
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Timeout: 120,
		},
		GitHub: GitHubConfig{
			BaseURL: "https://api.github.com",
		},
		Hosting: HostingConfig{
			BaseURL: "https://api.vercel.com",
		},
		Store: StoreConfig{
			Path: "siteforge.db",
		},
		Limits: DefaultLimits(),
	}
}

// applyEnv overlays environment variables onto the config. Environment wins
// over the file for credentials so tokens never need to live on disk.
func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		c.GitHub.Token = v
	}
	if v := os.Getenv("VERCEL_TOKEN"); v != "" {
		c.Hosting.Token = v
	}
	if v := os.Getenv("SITEFORGE_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.GitHub.BaseURL == "" {
		c.GitHub.BaseURL = "https://api.github.com"
	}
	if c.Hosting.BaseURL == "" {
		c.Hosting.BaseURL = "https://api.vercel.com"
	}
	if c.Store.Path == "" {
		c.Store.Path = "siteforge.db"
	}
	if c.Limits.MaxEditFiles == 0 {
		c.Limits = DefaultLimits()
	}
}

func (c *Config) validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// AITimeout returns the generative client timeout as a duration.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.Timeout) * time.Second
}
