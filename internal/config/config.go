package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "HOPPA_CONFIG"
	dotenvFile    = ".env"
)

// Config holds every setting the service needs.
type Config struct {
	Addr     string `yaml:"addr"`
	DiagAddr string `yaml:"diagAddr"`
	LogLevel string `yaml:"logLevel"`
	SiteURL  string `yaml:"siteUrl"`

	Backend    BackendConfig    `yaml:"backend"`
	Revalidate RevalidateConfig `yaml:"revalidate"`
	CDN        CDNConfig        `yaml:"cdn"`
	Cache      CacheConfig      `yaml:"cache"`
	Auth       AuthConfig       `yaml:"auth"`
	Sessions   SessionConfig    `yaml:"sessions"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
}

// BackendConfig points at the REST API that owns blog and forum data.
type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type RevalidateConfig struct {
	Secret string `yaml:"secret"`
}

// CDNConfig enables edge cache purges on revalidation. Empty SiteID disables it.
type CDNConfig struct {
	Endpoint string `yaml:"endpoint"`
	SiteID   string `yaml:"siteId"`
	Token    string `yaml:"token"`
}

// CacheConfig controls the server-side blog page cache.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	FirebaseAPIKey string `yaml:"firebaseApiKey"`
	ProjectID      string `yaml:"projectId"`
	VerifyTokens   bool   `yaml:"verifyTokens"`
	CertsURL       string `yaml:"certsUrl"`
}

// SessionConfig selects the session store; an empty RedisAddr keeps
// sessions in memory.
type SessionConfig struct {
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDb"`
	TTL           time.Duration `yaml:"ttl"`
	CookieName    string        `yaml:"cookieName"`
	SecureCookie  bool          `yaml:"secureCookie"`
}

type AnalyticsConfig struct {
	Enabled       bool            `yaml:"enabled"`
	Platform      string          `yaml:"platform"`
	ConsentCookie string          `yaml:"consentCookie"`
	Timeout       time.Duration   `yaml:"timeout"`
	Amplitude     AmplitudeConfig `yaml:"amplitude"`
	Firebase      FirebaseConfig  `yaml:"firebase"`
}

type AmplitudeConfig struct {
	APIKey   string `yaml:"apiKey"`
	Endpoint string `yaml:"endpoint"`
}

type FirebaseConfig struct {
	MeasurementID string `yaml:"measurementId"`
	APISecret     string `yaml:"apiSecret"`
	Endpoint      string `yaml:"endpoint"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:     ":3333",
		DiagAddr: ":9999",
		LogLevel: "info",
		SiteURL:  "https://hoppa.fit",
		Backend:  BackendConfig{Timeout: 10 * time.Second},
		CDN:      CDNConfig{Endpoint: "https://api.netlify.com/api/v1/purge"},
		Cache:    CacheConfig{TTL: time.Minute},
		Auth: AuthConfig{
			CertsURL: "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com",
		},
		Sessions: SessionConfig{
			TTL:        14 * 24 * time.Hour,
			CookieName: "hoppa_session",
		},
		Analytics: AnalyticsConfig{
			Enabled:       true,
			Platform:      "web",
			ConsentCookie: "hoppa_analytics_consent",
			Timeout:       5 * time.Second,
			Amplitude:     AmplitudeConfig{Endpoint: "https://api2.amplitude.com"},
			Firebase: FirebaseConfig{
				MeasurementID: "G-NWNX10JXF3",
				Endpoint:      "https://www.google-analytics.com/mp/collect",
			},
		},
	}
}

// Load layers defaults, .env, an optional YAML file and the environment.
// path overrides HOPPA_CONFIG when non-empty.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("config: load %s: %w", dotenvFile, err)
	}

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	return cfg, nil
}

// Validate reports settings the service cannot run without.
func (c Config) Validate() error {
	if c.Backend.URL == "" {
		return errors.New("config: backend url (API_URL) is required")
	}
	if c.Auth.VerifyTokens && c.Auth.ProjectID == "" {
		return errors.New("config: auth.projectId is required when verifyTokens is set")
	}

	return nil
}

func (c *Config) applyEnv() {
	setString(&c.Backend.URL, "API_URL")
	setString(&c.Revalidate.Secret, "REVALIDATE_SECRET")
	setString(&c.SiteURL, "SITE_URL")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.CDN.SiteID, "NETLIFY_SITE_ID")
	setString(&c.CDN.Token, "NETLIFY_TOKEN")
	setString(&c.Auth.FirebaseAPIKey, "FIREBASE_API_KEY")
	setString(&c.Auth.ProjectID, "FIREBASE_PROJECT_ID")
	setBool(&c.Auth.VerifyTokens, "VERIFY_ID_TOKENS")
	setString(&c.Sessions.RedisAddr, "REDIS_ADDR")
	setString(&c.Sessions.RedisPassword, "REDIS_PASSWORD")
	setString(&c.Analytics.Amplitude.APIKey, "AMPLITUDE_API_KEY")
	setString(&c.Analytics.Firebase.MeasurementID, "GA_MEASUREMENT_ID")
	setString(&c.Analytics.Firebase.APISecret, "GA_API_SECRET")
	setBool(&c.Analytics.Enabled, "ANALYTICS_ENABLED")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
