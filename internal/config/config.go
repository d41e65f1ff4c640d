package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// StateDirName is the hidden directory inside the library root that holds
// picvault's private state (thumbnails, stored API key). The scanner
// skips every top-level directory starting with a dot, so the state dir
// is never catalogued.
const StateDirName = ".picvault"

// Config is the process-wide configuration, constructed once at startup
// and passed into every component that needs it.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Library  LibraryConfig  `mapstructure:"library"`
	Database DatabaseConfig `mapstructure:"database"`
	Qdrant   QdrantConfig   `mapstructure:"qdrant"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Tagger   TaggerConfig   `mapstructure:"tagger"`
	Embedder EmbedderConfig `mapstructure:"embedder"`
	Scorer   ScorerConfig   `mapstructure:"scorer"`
	Caption  CaptionConfig  `mapstructure:"caption"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// LibraryConfig describes the content directory the catalog tracks.
type LibraryConfig struct {
	Root             string `mapstructure:"root"`
	ThumbnailMaxSize int    `mapstructure:"thumbnail_max_size"`
	PaletteSize      int    `mapstructure:"palette_size"`
}

// StateDir returns the hidden state directory inside the library root.
func (c *LibraryConfig) StateDir() string {
	return filepath.Join(c.Root, StateDirName)
}

// ThumbnailsDir returns the directory that mirrors the library tree with
// generated thumbnails.
func (c *LibraryConfig) ThumbnailsDir() string {
	return filepath.Join(c.StateDir(), "thumbnails")
}

// EnsureStateDirs creates the state and thumbnail directories if missing.
func (c *LibraryConfig) EnsureStateDirs() error {
	if err := os.MkdirAll(c.ThumbnailsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create state directories: %w", err)
	}
	return nil
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

type QdrantConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Collection      string `mapstructure:"collection"`
	APIKey          string `mapstructure:"api_key"`
	UseTLS          bool   `mapstructure:"use_tls"`
	VectorDimension int    `mapstructure:"vector_dimension"`
}

// StorageConfig holds S3-compatible object storage settings for the
// backup command.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	BaseDir   string `mapstructure:"base_dir"`
	PublicURL string `mapstructure:"public_url"`
}

// TaggerConfig points at the auto-tagger model service.
type TaggerConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// EmbedderConfig points at the image feature-extraction service.
type EmbedderConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

// ScorerConfig points at the aesthetic scoring service.
type ScorerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// CaptionConfig points at the optional image captioning service.
type CaptionConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// Load reads configuration from file and environment.
// Precedence: stored API key file < config file < environment variables.
func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.port", 4777)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("library.root", ".")
	v.SetDefault("library.thumbnail_max_size", 400)
	v.SetDefault("library.palette_size", 6)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/picvault.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "picvault")
	v.SetDefault("database.name", "picvault")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "picvault")
	v.SetDefault("qdrant.vector_dimension", 768)
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "picvault")
	v.SetDefault("storage.base_dir", "library")
	v.SetDefault("tagger.base_url", "http://localhost:7860")
	v.SetDefault("tagger.model", "wd-vit-large-tagger-v3")
	v.SetDefault("embedder.base_url", "http://localhost:7861")
	v.SetDefault("embedder.model", "clip-vit-large-patch14")
	v.SetDefault("embedder.dimensions", 768)
	v.SetDefault("scorer.enabled", false)
	v.SetDefault("scorer.base_url", "http://localhost:7862")
	v.SetDefault("scorer.model", "aesthetic-shadow-v2")
	v.SetDefault("caption.enabled", false)
	v.SetDefault("caption.base_url", "https://api.openai.com/v1")
	v.SetDefault("caption.model", "gpt-4o-mini")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("library.root", "PICVAULT_ROOT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.path", "DB_PATH")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("qdrant.host", "QDRANT_HOST")
	v.BindEnv("qdrant.port", "QDRANT_PORT")
	v.BindEnv("qdrant.api_key", "QDRANT_API_KEY")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("tagger.base_url", "TAGGER_BASE_URL")
	v.BindEnv("tagger.api_key", "TAGGER_API_KEY")
	v.BindEnv("embedder.base_url", "EMBEDDER_BASE_URL")
	v.BindEnv("embedder.api_key", "EMBEDDER_API_KEY")
	v.BindEnv("scorer.base_url", "SCORER_BASE_URL")
	v.BindEnv("caption.api_key", "OPENAI_API_KEY")
	v.BindEnv("caption.base_url", "OPENAI_BASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.loadStoredAPIKey()

	return &cfg, nil
}

// loadStoredAPIKey reads an API key stored inside the library state dir.
// A key from config or environment wins over the stored file.
func (c *Config) loadStoredAPIKey() {
	if c.Caption.APIKey != "" {
		return
	}
	keyFile := filepath.Join(c.Library.StateDir(), "API_KEY")
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return
	}
	c.Caption.APIKey = strings.TrimSpace(string(data))
}
