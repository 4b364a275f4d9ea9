package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Recognized client kinds. Each selects a Limits profile; unknown kinds fall
// back to the widget profile (the tightest one).
const (
	ClientWidget    = "widget"
	ClientAssistant = "assistant"
)

// Config holds all configuration for the operations portal.
type Config struct {
	General   GeneralConfig           `mapstructure:"general"`
	Server    ServerConfig            `mapstructure:"server"`
	Box       BoxConfig               `mapstructure:"box"`
	Storage   StorageConfig           `mapstructure:"storage"`
	Retrieval RetrievalConfig         `mapstructure:"retrieval"`
	Limits    map[string]LimitsConfig `mapstructure:"limits"`
	Telemetry TelemetryConfig         `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// BoxConfig contains the document-repository provider settings. RootFolderID
// is the authorization boundary: no call is ever issued for an entity outside
// that subtree.
type BoxConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Token        string        `mapstructure:"token"`
	RootFolderID string        `mapstructure:"root_folder_id"`
	PageSize     int           `mapstructure:"page_size"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

func (b BoxConfig) Validate() error {
	if strings.TrimSpace(b.RootFolderID) == "" {
		return fmt.Errorf("box.root_folder_id is required")
	}
	if b.PageSize <= 0 {
		return fmt.Errorf("box.page_size must be > 0")
	}
	return nil
}

// Configured reports whether the provider client can be built at all. An
// unconfigured provider degrades to empty results rather than failing.
func (b BoxConfig) Configured() bool {
	return strings.TrimSpace(b.BaseURL) != "" && strings.TrimSpace(b.Token) != ""
}

// StorageConfig contains storage settings for the shared cache tier.
type StorageConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

func (r RedisConfig) Addr() string { return fmt.Sprintf("%s:%s", r.Host, r.Port) }

// RetrievalConfig contains pipeline knobs shared across client kinds.
type RetrievalConfig struct {
	ChunkSearchURL    string        `mapstructure:"chunk_search_url"`
	ChunkSearchAPIKey string        `mapstructure:"chunk_search_api_key"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	MaxFileBytes      int64         `mapstructure:"max_file_bytes"`
	SharedCacheTTL    time.Duration `mapstructure:"shared_cache_ttl"`
	LocalCacheTTL     time.Duration `mapstructure:"local_cache_ttl"`
	FolderCacheTTL    time.Duration `mapstructure:"folder_cache_ttl"`
	OCREnabled        bool          `mapstructure:"ocr_enabled"`
	OCRLanguages      []string      `mapstructure:"ocr_languages"`
	OCRMaxPages       int           `mapstructure:"ocr_max_pages"`
}

func (r RetrievalConfig) Validate() error {
	if r.MaxFileBytes <= 0 {
		return fmt.Errorf("retrieval.max_file_bytes must be > 0")
	}
	if r.RequestTimeout <= 0 {
		return fmt.Errorf("retrieval.request_timeout must be > 0")
	}
	if r.SharedCacheTTL <= 0 || r.LocalCacheTTL <= 0 || r.FolderCacheTTL <= 0 {
		return fmt.Errorf("retrieval cache TTLs must be > 0")
	}
	return nil
}

// LimitsConfig is a per-client-kind resource profile. These are the only
// externally tunable knobs of the pipeline.
type LimitsConfig struct {
	MaxFiles      int `mapstructure:"max_files"`
	MaxDepth      int `mapstructure:"max_depth"`
	MaxScan       int `mapstructure:"max_scan"`
	MaxTotalChars int `mapstructure:"max_total_chars"`
	PerDocChars   int `mapstructure:"per_doc_chars"`
	TopK          int `mapstructure:"top_k"`
}

func (l LimitsConfig) Validate() error {
	if l.MaxFiles <= 0 || l.MaxDepth <= 0 || l.MaxScan <= 0 ||
		l.MaxTotalChars <= 0 || l.PerDocChars <= 0 || l.TopK <= 0 {
		return fmt.Errorf("all limit values must be > 0")
	}
	// Over-provision the ranking pool: scanning fewer candidates than the
	// number of files we may return makes ranking pointless.
	if l.MaxScan < l.MaxFiles {
		return fmt.Errorf("max_scan (%d) must be >= max_files (%d)", l.MaxScan, l.MaxFiles)
	}
	return nil
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ValidateLimits checks every configured profile and requires the two shipped
// client kinds to be present.
func ValidateLimits(limits map[string]LimitsConfig) error {
	for _, kind := range []string{ClientWidget, ClientAssistant} {
		if _, ok := limits[kind]; !ok {
			return fmt.Errorf("limits.%s profile is required", kind)
		}
	}
	for kind, l := range limits {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("limits.%s: %w", kind, err)
		}
	}
	return nil
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("json")   // REQUIRED if the config file does not have the extension in the name

	viper.SetDefault("server.address", ":10020")
	viper.SetDefault("box.base_url", "https://api.box.com/2.0")
	viper.SetDefault("box.page_size", 200)
	viper.SetDefault("box.timeout", 15*time.Second)
	viper.SetDefault("box.max_retries", 2)
	viper.SetDefault("retrieval.request_timeout", 45*time.Second)
	viper.SetDefault("retrieval.max_file_bytes", int64(5*1024*1024))
	viper.SetDefault("retrieval.shared_cache_ttl", 24*time.Hour)
	viper.SetDefault("retrieval.local_cache_ttl", 4*time.Hour)
	viper.SetDefault("retrieval.folder_cache_ttl", 2*time.Minute)
	viper.SetDefault("retrieval.ocr_enabled", true)
	viper.SetDefault("retrieval.ocr_languages", []string{"eng"})
	viper.SetDefault("retrieval.ocr_max_pages", 20)

	// Two shipped profiles: a low-friction widget context and the full
	// assistant context.
	viper.SetDefault("limits.widget.max_files", 3)
	viper.SetDefault("limits.widget.max_depth", 1)
	viper.SetDefault("limits.widget.max_scan", 30)
	viper.SetDefault("limits.widget.max_total_chars", 24000)
	viper.SetDefault("limits.widget.per_doc_chars", 8000)
	viper.SetDefault("limits.widget.top_k", 4)
	viper.SetDefault("limits.assistant.max_files", 8)
	viper.SetDefault("limits.assistant.max_depth", 3)
	viper.SetDefault("limits.assistant.max_scan", 200)
	viper.SetDefault("limits.assistant.max_total_chars", 120000)
	viper.SetDefault("limits.assistant.per_doc_chars", 20000)
	viper.SetDefault("limits.assistant.top_k", 12)

	if path == "" {
		viper.AddConfigPath("./app/config") // path to look for the config file in
		viper.AddConfigPath("./config")     // path to look for the config file in
		viper.AddConfigPath(".")            // optionally look for config in the working directory
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)                                // bin/
		viper.AddConfigPath(filepath.Join(exeDir, ".."))           // repo root
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config")) // repo root/config
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("OPSPORTAL")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv() // read in environment variables that match (OPSPORTAL_*)

	err := viper.ReadInConfig() // Find and read the config file
	if err != nil {             // Handle errors reading the config file
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	// unmarshal config
	var config Config

	if err = viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.Box.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Redis.Validate(); err != nil {
		panic(err)
	}
	if err := config.Retrieval.Validate(); err != nil {
		panic(err)
	}
	if err := ValidateLimits(config.Limits); err != nil {
		panic(err)
	}
	return &config
}
