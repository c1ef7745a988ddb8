package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/batch"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/database"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/grounding"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/hostpage"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/storage"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Log       LogConfig
	Browser   BrowserConfig
	Bridge    BridgeConfig
	Batch     BatchConfig
	Grounding GroundingConfig
	Overview  OverviewConfig
	Storage   StorageConfig
	Settings  SettingsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Addr is the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver       string
	Path         string
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
	LogQueries   bool
}

func (c DatabaseConfig) toDatabase() database.Config {
	return database.Config{
		Driver:       c.Driver,
		Path:         c.Path,
		Host:         c.Host,
		Port:         c.Port,
		User:         c.User,
		Password:     c.Password,
		Database:     c.Database,
		MaxOpenConns: c.MaxOpenConns,
		MaxIdleConns: c.MaxIdleConns,
		LogQueries:   c.LogQueries,
	}
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// BrowserConfig controls the driven browser.
type BrowserConfig struct {
	ControlURL  string
	Bin         string
	Headless    bool
	UserDataDir string
	LoadTimeout time.Duration
	SearchURL   string
	// Hijack replays chat traffic through the Go interceptor instead of
	// reading bodies over the devtools protocol.
	Hijack bool
}

func (c BrowserConfig) toHostPage() hostpage.Config {
	return hostpage.Config{
		ControlURL:  c.ControlURL,
		Bin:         c.Bin,
		Headless:    c.Headless,
		UserDataDir: c.UserDataDir,
		LoadTimeout: c.LoadTimeout,
	}
}

// BridgeConfig holds the page bridge settings.
type BridgeConfig struct {
	HashKey        string
	BlockKey       string
	Buffer         int
	AllowedOrigins []string
	// Endpoint is the URL pages post to. Derived from the server address
	// when empty.
	Endpoint string
}

// BatchConfig holds batch timings; selectors keep their defaults.
type BatchConfig struct {
	FreshURL            string
	ConversationPattern string
	InputAttempts       int
	InputDelay          time.Duration
	FreshPageAttempts   int
	NavigationDelay     time.Duration
	ResponseStartDelay  time.Duration
	CompletionPoll      time.Duration
	CompletionTimeout   time.Duration
	SettleDelay         time.Duration
}

func (c BatchConfig) toBatch() batch.Config {
	cfg := batch.DefaultConfig()
	cfg.FreshURL = c.FreshURL
	cfg.ConversationPattern = c.ConversationPattern
	cfg.InputAttempts = c.InputAttempts
	cfg.InputDelay = c.InputDelay
	cfg.FreshPageAttempts = c.FreshPageAttempts
	cfg.NavigationDelay = c.NavigationDelay
	cfg.ResponseStartDelay = c.ResponseStartDelay
	cfg.CompletionPoll = c.CompletionPoll
	cfg.CompletionTimeout = c.CompletionTimeout
	cfg.SettleDelay = c.SettleDelay
	return cfg
}

// GroundingConfig selects the Gemini models.
type GroundingConfig struct {
	OverviewModel string
	AIModeModel   string
	BaseURL       string
}

func (c GroundingConfig) toGrounding() grounding.Config {
	cfg := grounding.DefaultConfig()
	cfg.OverviewModel = c.OverviewModel
	cfg.AIModeModel = c.AIModeModel
	cfg.BaseURL = c.BaseURL
	return cfg
}

// OverviewConfig holds search page timings.
type OverviewConfig struct {
	DetectDelay time.Duration
	CheckWait   time.Duration
	BatchDelay  time.Duration
}

// StorageConfig holds blob storage configuration.
type StorageConfig struct {
	Type              string        // "local" or "s3"
	BaseDir           string        // For local: "./exports"
	S3Bucket          string        // For S3: bucket name
	S3Region          string        // For S3: AWS region
	S3Endpoint        string        // For S3-compatible services
	S3UsePathStyle    bool          // Required by most S3-compatible services
	S3AccessKeyID     string        // Optional static credentials
	S3SecretAccessKey string        // Optional static credentials
	S3PresignExpiry   time.Duration // Presigned URL expiration
}

func (c StorageConfig) toStorage() storage.Config {
	return storage.Config{
		Type:            c.Type,
		BaseDir:         c.BaseDir,
		Bucket:          c.S3Bucket,
		Region:          c.S3Region,
		Endpoint:        c.S3Endpoint,
		UsePathStyle:    c.S3UsePathStyle,
		AccessKeyID:     c.S3AccessKeyID,
		SecretAccessKey: c.S3SecretAccessKey,
		PresignExpiry:   c.S3PresignExpiry,
	}
}

// SettingsConfig holds the passphrase stored API keys are encrypted with.
type SettingsConfig struct {
	Secret string
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults
	}

	var config Config

	config.Server.Host = v.GetString("server.host")
	config.Server.Port = v.GetInt("server.port")
	config.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	config.Server.WriteTimeout = v.GetDuration("server.write_timeout")

	config.Database.Driver = v.GetString("database.driver")
	config.Database.Path = v.GetString("database.path")
	config.Database.Host = v.GetString("database.host")
	config.Database.Port = v.GetInt("database.port")
	config.Database.User = v.GetString("database.user")
	config.Database.Password = v.GetString("database.password")
	config.Database.Database = v.GetString("database.database")
	config.Database.MaxOpenConns = v.GetInt("database.max_open_conns")
	config.Database.MaxIdleConns = v.GetInt("database.max_idle_conns")
	config.Database.AutoMigrate = v.GetBool("database.auto_migrate")
	config.Database.LogQueries = v.GetBool("database.log_queries")

	config.Log.Level = v.GetString("log.level")
	config.Log.Format = v.GetString("log.format")

	config.Browser.ControlURL = v.GetString("browser.control_url")
	config.Browser.Bin = v.GetString("browser.bin")
	config.Browser.Headless = v.GetBool("browser.headless")
	config.Browser.UserDataDir = v.GetString("browser.user_data_dir")
	config.Browser.LoadTimeout = v.GetDuration("browser.load_timeout")
	config.Browser.SearchURL = v.GetString("browser.search_url")
	config.Browser.Hijack = v.GetBool("browser.hijack")

	config.Bridge.HashKey = v.GetString("bridge.hash_key")
	config.Bridge.BlockKey = v.GetString("bridge.block_key")
	config.Bridge.Buffer = v.GetInt("bridge.buffer")
	config.Bridge.AllowedOrigins = v.GetStringSlice("bridge.allowed_origins")
	config.Bridge.Endpoint = v.GetString("bridge.endpoint")

	config.Batch.FreshURL = v.GetString("batch.fresh_url")
	config.Batch.ConversationPattern = v.GetString("batch.conversation_pattern")
	config.Batch.InputAttempts = v.GetInt("batch.input_attempts")
	config.Batch.InputDelay = v.GetDuration("batch.input_delay")
	config.Batch.FreshPageAttempts = v.GetInt("batch.fresh_page_attempts")
	config.Batch.NavigationDelay = v.GetDuration("batch.navigation_delay")
	config.Batch.ResponseStartDelay = v.GetDuration("batch.response_start_delay")
	config.Batch.CompletionPoll = v.GetDuration("batch.completion_poll")
	config.Batch.CompletionTimeout = v.GetDuration("batch.completion_timeout")
	config.Batch.SettleDelay = v.GetDuration("batch.settle_delay")

	config.Grounding.OverviewModel = v.GetString("grounding.overview_model")
	config.Grounding.AIModeModel = v.GetString("grounding.ai_mode_model")
	config.Grounding.BaseURL = v.GetString("grounding.base_url")

	config.Overview.DetectDelay = v.GetDuration("overview.detect_delay")
	config.Overview.CheckWait = v.GetDuration("overview.check_wait")
	config.Overview.BatchDelay = v.GetDuration("overview.batch_delay")

	config.Storage.Type = v.GetString("storage.type")
	config.Storage.BaseDir = v.GetString("storage.base_dir")
	config.Storage.S3Bucket = v.GetString("storage.s3_bucket")
	config.Storage.S3Region = v.GetString("storage.s3_region")
	config.Storage.S3Endpoint = v.GetString("storage.s3_endpoint")
	config.Storage.S3UsePathStyle = v.GetBool("storage.s3_use_path_style")
	config.Storage.S3AccessKeyID = v.GetString("storage.s3_access_key_id")
	config.Storage.S3SecretAccessKey = v.GetString("storage.s3_secret_access_key")
	config.Storage.S3PresignExpiry = v.GetDuration("storage.s3_presign_expiry")

	config.Settings.Secret = v.GetString("settings.secret")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	// Search batches answer synchronously.
	v.SetDefault("server.write_timeout", "10m")

	v.SetDefault("database.driver", database.DriverSQLite)
	v.SetDefault("database.path", "./inspector.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "ai_search_inspector")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_queries", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("browser.control_url", "")
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.user_data_dir", "./browser-profile")
	v.SetDefault("browser.load_timeout", "30s")
	v.SetDefault("browser.search_url", "https://www.google.com/")
	v.SetDefault("browser.hijack", false)

	v.SetDefault("bridge.hash_key", "change-this-bridge-hash-key-min-32-chars")
	v.SetDefault("bridge.block_key", "")
	v.SetDefault("bridge.buffer", 256)
	v.SetDefault("bridge.allowed_origins", []string{"https://chatgpt.com", "https://www.google.com"})
	v.SetDefault("bridge.endpoint", "")

	def := batch.DefaultConfig()
	v.SetDefault("batch.fresh_url", def.FreshURL)
	v.SetDefault("batch.conversation_pattern", def.ConversationPattern)
	v.SetDefault("batch.input_attempts", def.InputAttempts)
	v.SetDefault("batch.input_delay", def.InputDelay.String())
	v.SetDefault("batch.fresh_page_attempts", def.FreshPageAttempts)
	v.SetDefault("batch.navigation_delay", def.NavigationDelay.String())
	v.SetDefault("batch.response_start_delay", def.ResponseStartDelay.String())
	v.SetDefault("batch.completion_poll", def.CompletionPoll.String())
	v.SetDefault("batch.completion_timeout", def.CompletionTimeout.String())
	v.SetDefault("batch.settle_delay", def.SettleDelay.String())

	v.SetDefault("grounding.overview_model", grounding.DefaultOverviewModel)
	v.SetDefault("grounding.ai_mode_model", grounding.DefaultAIModeModel)
	v.SetDefault("grounding.base_url", "")

	v.SetDefault("overview.detect_delay", "1s")
	v.SetDefault("overview.check_wait", "3s")
	v.SetDefault("overview.batch_delay", "1s")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_dir", "./exports")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_endpoint", "")
	v.SetDefault("storage.s3_use_path_style", false)
	v.SetDefault("storage.s3_access_key_id", "")
	v.SetDefault("storage.s3_secret_access_key", "")
	v.SetDefault("storage.s3_presign_expiry", "15m")

	v.SetDefault("settings.secret", "change-this-settings-secret")
}

// bridgeEndpoint is where injected page scripts post messages.
func (c *Config) bridgeEndpoint() string {
	if c.Bridge.Endpoint != "" {
		return c.Bridge.Endpoint
	}
	host := c.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d/bridge/messages", host, c.Server.Port)
}
