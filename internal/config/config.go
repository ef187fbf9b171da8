package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds the complete service configuration.
type Config struct {
	Server   ServerConfig   `toml:"server" yaml:"server"`
	Admin    AdminConfig    `toml:"admin" yaml:"admin"`
	Database DatabaseConfig `toml:"database" yaml:"database"`
	Minio    MinioConfig    `toml:"minio" yaml:"minio"`
	Speech   SpeechConfig   `toml:"speech" yaml:"speech"`
	Google   GoogleConfig   `toml:"google" yaml:"google"`
	Scoring  ScoringConfig  `toml:"scoring" yaml:"scoring"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port string `toml:"port" yaml:"port"`
	Mode string `toml:"mode" yaml:"mode"`
}

// AdminConfig holds the operator login.
type AdminConfig struct {
	Username     string   `toml:"username" yaml:"username"`
	Password     string   `toml:"password" yaml:"password"`
	SessionToken string   `toml:"session_token" yaml:"session_token"`
	SessionTTL   Duration `toml:"session_ttl" yaml:"session_ttl"`
}

// DatabaseConfig selects the SQL driver: postgres, pgx or sqlite3.
type DatabaseConfig struct {
	Driver string `toml:"driver" yaml:"driver"`
	DSN    string `toml:"dsn" yaml:"dsn"`
}

// MinioConfig holds S3-compatible blob store settings.
type MinioConfig struct {
	Endpoint        string   `toml:"endpoint" yaml:"endpoint"`
	AccessKeyID     string   `toml:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string   `toml:"secret_access_key" yaml:"secret_access_key"`
	Bucket          string   `toml:"bucket" yaml:"bucket"`
	UseSSL          bool     `toml:"use_ssl" yaml:"use_ssl"`
	URLExpiry       Duration `toml:"url_expiry" yaml:"url_expiry"`
}

// SpeechConfig holds speech platform credentials and the custom-model workflow defaults.
type SpeechConfig struct {
	Key          string   `toml:"key" yaml:"key"`
	Region       string   `toml:"region" yaml:"region"`
	Endpoint     string   `toml:"endpoint" yaml:"endpoint"`
	APIVersion   string   `toml:"api_version" yaml:"api_version"`
	Locale       string   `toml:"locale" yaml:"locale"`
	EndpointID   string   `toml:"endpoint_id" yaml:"endpoint_id"`
	PollInterval Duration `toml:"poll_interval" yaml:"poll_interval"`
}

// GoogleConfig holds the baseline recogniser settings.
type GoogleConfig struct {
	CredentialsFile string `toml:"credentials_file" yaml:"credentials_file"`
	LanguageCode    string `toml:"language_code" yaml:"language_code"`
}

// ScoringConfig holds comparator defaults.
type ScoringConfig struct {
	Style    string `toml:"style" yaml:"style"`
	Workers  int    `toml:"workers" yaml:"workers"`
	AutoJunk bool   `toml:"auto_junk" yaml:"auto_junk"`
}

// Duration wraps time.Duration for text config formats.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", Mode: "release"},
		Admin: AdminConfig{
			SessionToken: "SUPER_SECRET_MVP_TOKEN",
			SessionTTL:   Duration{time.Hour},
		},
		Database: DatabaseConfig{Driver: "postgres"},
		Minio: MinioConfig{
			Bucket:    "speech-eval",
			URLExpiry: Duration{8 * time.Hour},
		},
		Speech: SpeechConfig{
			APIVersion:   "v3.2",
			Locale:       "en-US",
			PollInterval: Duration{30 * time.Second},
		},
		Google:  GoogleConfig{LanguageCode: "en-US"},
		Scoring: ScoringConfig{Style: "html"},
	}
}

// Load reads the file at path (TOML or YAML by extension) over the defaults
// and then applies environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		path = os.ExpandEnv(path)
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("failed to parse TOML config '%s': %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config '%s': %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config file extension for '%s' (want .toml, .yaml or .yml)", path)
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setDuration(dst *Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Warning: %s is not a valid duration ('%s'). Keeping %s. Error: %v", key, v, dst.Duration, err)
		return
	}
	dst.Duration = d
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.Mode, "GIN_MODE")

	setString(&c.Admin.Username, "ADMIN_USERNAME")
	setString(&c.Admin.Password, "ADMIN_PASSWORD")
	setString(&c.Admin.SessionToken, "ADMIN_SESSION_TOKEN")
	setDuration(&c.Admin.SessionTTL, "ADMIN_SESSION_TTL")

	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.DSN, "DATABASE_URL")

	setString(&c.Minio.Endpoint, "MINIO_ENDPOINT")
	setString(&c.Minio.AccessKeyID, "MINIO_ACCESS_KEY_ID")
	setString(&c.Minio.SecretAccessKey, "MINIO_SECRET_ACCESS_KEY")
	setString(&c.Minio.Bucket, "MINIO_BUCKET_NAME")
	setDuration(&c.Minio.URLExpiry, "MINIO_URL_EXPIRY")
	if v, ok := os.LookupEnv("MINIO_USE_SSL"); ok && v != "" {
		useSSL, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("Warning: MINIO_USE_SSL environment variable is not a valid boolean ('%s'). Defaulting to false. Error: %v", v, err)
			useSSL = false
		}
		c.Minio.UseSSL = useSSL
	}

	setString(&c.Speech.Key, "SPEECH_KEY")
	setString(&c.Speech.Region, "SPEECH_REGION")
	setString(&c.Speech.Endpoint, "SPEECH_ENDPOINT")
	setString(&c.Speech.APIVersion, "SPEECH_API_VERSION")
	setString(&c.Speech.Locale, "SPEECH_LOCALE")
	setString(&c.Speech.EndpointID, "SPEECH_ENDPOINT_ID")
	setDuration(&c.Speech.PollInterval, "SPEECH_POLL_INTERVAL")

	setString(&c.Google.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	setString(&c.Google.LanguageCode, "GOOGLE_LANGUAGE_CODE")

	setString(&c.Scoring.Style, "SCORING_STYLE")
	if v, ok := os.LookupEnv("SCORING_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			log.Printf("Warning: SCORING_WORKERS is not a non-negative integer ('%s'). Using %d.", v, c.Scoring.Workers)
		} else {
			c.Scoring.Workers = n
		}
	}
	if v, ok := os.LookupEnv("SCORING_AUTO_JUNK"); ok && v != "" {
		autoJunk, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("Warning: SCORING_AUTO_JUNK is not a valid boolean ('%s'). Keeping %t.", v, c.Scoring.AutoJunk)
		} else {
			c.Scoring.AutoJunk = autoJunk
		}
	}
}

// Validate rejects settings the service cannot start with and warns about
// optional ones that are missing.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "pgx", "sqlite3":
	default:
		return fmt.Errorf("unsupported database driver '%s' (want postgres, pgx or sqlite3)", c.Database.Driver)
	}
	if c.Admin.Username == "" {
		log.Println("WARNING: ADMIN_USERNAME environment variable not set.")
	}
	if c.Admin.Password == "" {
		log.Println("WARNING: ADMIN_PASSWORD environment variable not set.")
	}
	if c.Speech.Endpoint == "" && c.Speech.Region != "" {
		c.Speech.Endpoint = fmt.Sprintf("https://%s.api.cognitive.microsoft.com", c.Speech.Region)
	}
	if c.Speech.Key == "" {
		log.Println("WARNING: SPEECH_KEY not set. Speech platform routes will fail.")
	}
	return nil
}

// SpeechEnabled reports whether the speech platform client can be built.
func (c *Config) SpeechEnabled() bool {
	return c.Speech.Key != "" && c.Speech.Endpoint != ""
}

// MinioEnabled reports whether the blob store is configured.
func (c *Config) MinioEnabled() bool {
	return c.Minio.Endpoint != "" && c.Minio.AccessKeyID != "" && c.Minio.SecretAccessKey != "" && c.Minio.Bucket != ""
}
