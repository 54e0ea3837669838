package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const insecureJWTSecret = "supersecretkey"

type Config struct {
	Client  ClientConfig  `yaml:",inline"`
	Sandbox SandboxConfig `yaml:"sandbox"`
}

// ClientConfig drives the REST gateway client, the session store and the poller.
type ClientConfig struct {
	BaseURL                 string        `yaml:"base_url"`
	Timeout                 time.Duration `yaml:"timeout"`
	PollInterval            time.Duration `yaml:"poll_interval"`
	SessionPath             string        `yaml:"session_path"`
	Retries                 int           `yaml:"retries"`
	Backoff                 time.Duration `yaml:"backoff"`
	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitReset            time.Duration `yaml:"circuit_reset"`
	LogLevel                string        `yaml:"log_level"`
}

// SandboxConfig configures the local REST collaborator.
type SandboxConfig struct {
	Addr          string        `yaml:"addr"`
	DatabasePath  string        `yaml:"database_path"`
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenDuration time.Duration `yaml:"token_duration"`
	Workers       int           `yaml:"workers"`
	ResumeDir     string        `yaml:"resume_dir"`
}

// LoadConfig builds a Config from defaults, an optional .env file, ATS_*
// environment variables and finally the YAML file at path, if any.
func LoadConfig(path string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	cfg := &Config{
		Client: ClientConfig{
			BaseURL:                 getEnv("ATS_BASE_URL", "http://localhost:8000/api"),
			Timeout:                 getDuration("ATS_TIMEOUT", 15*time.Second),
			PollInterval:            getDuration("ATS_POLL_INTERVAL", 30*time.Second),
			SessionPath:             getEnv("ATS_SESSION_PATH", "ats-session.db"),
			Retries:                 getInt("ATS_RETRIES", 2),
			Backoff:                 getDuration("ATS_BACKOFF", 200*time.Millisecond),
			CircuitFailureThreshold: getInt("ATS_CIRCUIT_FAILURE_THRESHOLD", 5),
			CircuitReset:            getDuration("ATS_CIRCUIT_RESET", 30*time.Second),
			LogLevel:                getEnv("ATS_LOG_LEVEL", "info"),
		},
		Sandbox: SandboxConfig{
			Addr:          getEnv("ATS_SANDBOX_ADDR", ":8000"),
			DatabasePath:  getEnv("ATS_SANDBOX_DATABASE_PATH", "ats-sandbox.db"),
			JWTSecret:     getEnv("ATS_JWT_SECRET", insecureJWTSecret),
			TokenDuration: getDuration("ATS_TOKEN_DURATION", 24*time.Hour),
			Workers:       getInt("ATS_SANDBOX_WORKERS", 2),
			ResumeDir:     getEnv("ATS_SANDBOX_RESUME_DIR", "resumes"),
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	return cfg, nil
}

// Validate fills zero client settings with defaults and rejects unusable
// values. The insecure default JWT secret is accepted only when ATS_ENV is
// "development".
func (c *Config) Validate() error {
	if err := c.Client.Validate(); err != nil {
		return err
	}

	if c.Sandbox.JWTSecret == "" {
		return errors.New("sandbox.jwt_secret is required")
	}
	if c.Sandbox.JWTSecret == insecureJWTSecret && os.Getenv("ATS_ENV") != "development" {
		return errors.New("sandbox.jwt_secret uses the insecure default; set ATS_JWT_SECRET or ATS_ENV=development")
	}
	if c.Sandbox.TokenDuration <= 0 {
		c.Sandbox.TokenDuration = 24 * time.Hour
	}
	if c.Sandbox.Workers <= 0 {
		c.Sandbox.Workers = 1
	}

	return nil
}

// Validate checks the client settings, filling defaults where zero.
func (c *ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	u, err := url.ParseRequestURI(c.BaseURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid base_url %q", c.BaseURL)
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}
	if c.Backoff <= 0 {
		c.Backoff = 200 * time.Millisecond
	}
	if c.CircuitFailureThreshold <= 0 {
		c.CircuitFailureThreshold = 5
	}
	if c.CircuitReset <= 0 {
		c.CircuitReset = 30 * time.Second
	}
	if c.SessionPath == "" {
		c.SessionPath = "ats-session.db"
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
