package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfig holds environment driven configuration values.
// Secrets never have defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	AppPort            string
	APIToken           string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Discord application
	DiscordPublicKey        string
	DiscordAppID            string
	DiscordBotToken         string
	DiscordRegisterCommands bool
	DiscordGuildIDs         []string
	// Object storage (pending submissions, approved pillows, photos)
	StorageMode         string
	StorageEmulatorHost string
	StorageProjectID    string
	PendingBucket       string
	PillowBucket        string
	PhotoBucket         string
	PillowPublicBaseURL string
	MaxUploadMB         int
	// Review workflow
	ReviewTaskTimeout time.Duration
	ReviewClaimTTL    time.Duration
	// Redis for guild settings and review claims
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	SettingsMode  string
	// Review log database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Tracing
	OtelEnabled     bool
	OtelEndpoint    string
	OtelInsecure    bool
	OtelSampleRatio float64
}

// binding ties a config file key to its environment variable and default value.
type binding struct {
	key string
	env string
	def any
}

var bindings = []binding{
	{"app.port", "APP_PORT", "8080"},
	{"app.api_token", "API_TOKEN", nil},
	{"app.rate_limit_per_minute", "RATE_LIMIT_PER_MINUTE", 120},
	{"app.allowed_origins", "ALLOWED_ORIGINS", []string{"*"}},
	{"gin.mode", "GIN_MODE", "release"},
	{"gin.path", "GIN_PATH", "logs/go_gin.log"},
	{"discord.public_key", "DISCORD_PUBLIC_KEY", nil},
	{"discord.app_id", "DISCORD_APP_ID", nil},
	{"discord.bot_token", "DISCORD_BOT_TOKEN", nil},
	{"discord.register_commands", "DISCORD_REGISTER_COMMANDS", false},
	{"discord.guild_ids", "DISCORD_GUILD_IDS", []string{}},
	{"storage.mode", "OBJECT_STORAGE_MODE", "gcs"},
	{"storage.emulator_host", "STORAGE_EMULATOR_HOST", nil},
	{"storage.project_id", "GCP_PROJECT_ID", nil},
	{"storage.pending_bucket", "PENDING_BUCKET", "fry-pillow-submissions"},
	{"storage.pillow_bucket", "PILLOW_BUCKET", "fry-pillows"},
	{"storage.photo_bucket", "PHOTO_BUCKET", "fry-photos"},
	{"storage.pillow_public_base_url", "PILLOW_PUBLIC_BASE_URL", "https://pillows.fry.api.lisekilis.dev"},
	{"storage.max_upload_mb", "MAX_UPLOAD_MB", 10},
	{"review.task_timeout", "REVIEW_TASK_TIMEOUT", "30s"},
	{"review.claim_ttl", "REVIEW_CLAIM_TTL", "60s"},
	{"redis.host", "REDIS_HOST", "127.0.0.1"},
	{"redis.port", "REDIS_PORT", 6379},
	{"redis.db", "REDIS_DB", 0},
	{"redis.password", "REDIS_PASSWORD", nil},
	{"redis.settings_mode", "SETTINGS_MODE", "redis"},
	{"db.driver", "DB_DRIVER", "sqlite"},
	{"db.uri", "DATABASE_URI", nil},
	{"db.host", "DB_HOST", "127.0.0.1"},
	{"db.port", "DB_PORT", "3306"},
	{"db.user", "DB_USER", "root"},
	{"db.password", "DB_PASSWORD", nil},
	{"db.name", "DB_NAME", "frypillows"},
	{"log.level", "LOG_LEVEL", "info"},
	{"log.path", "LOG_PATH", "logs/app.log"},
	{"log.max_size_mb", "LOG_MAX_SIZE_MB", 100},
	{"log.max_backups", "LOG_MAX_BACKUPS", 3},
	{"log.max_age_days", "LOG_MAX_AGE_DAYS", 7},
	{"log.compress", "LOG_COMPRESS", false},
	{"otel.enabled", "OTEL_ENABLED", false},
	{"otel.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT", nil},
	{"otel.insecure", "OTEL_EXPORTER_OTLP_INSECURE", false},
	{"otel.sample_ratio", "OTEL_SAMPLER_RATIO", 0.1},
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// A local .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	v, err := newViper("config")
	if err != nil {
		log.Fatalf("invalid config file: %v", err)
	}
	cfg = fromViper(v)

	if cfg.DiscordPublicKey == "" {
		log.Fatal("DISCORD_PUBLIC_KEY must be set in environment variables")
	}
	if cfg.APIToken == "" {
		log.Fatal("API_TOKEN must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Tests use it to avoid touching the environment.
func Set(c AppConfig) {
	cfg = c
	loaded = true
}

// newViper builds a viper instance with precedence: environment -> config file -> defaults.
// A missing config file is not an error.
func newViper(dir string) (*viper.Viper, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.AddConfigPath(".")
	v.SetConfigName("config")

	for _, b := range bindings {
		if b.def != nil {
			v.SetDefault(b.key, b.def)
		}
		_ = v.BindEnv(b.key, b.env)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}
	return v, nil
}

func fromViper(v *viper.Viper) AppConfig {
	return AppConfig{
		AppPort:                 v.GetString("app.port"),
		APIToken:                v.GetString("app.api_token"),
		RateLimitPerMinute:      v.GetInt("app.rate_limit_per_minute"),
		AllowedOrigins:          listValue(v, "app.allowed_origins"),
		GinMode:                 v.GetString("gin.mode"),
		GinPath:                 v.GetString("gin.path"),
		DiscordPublicKey:        strings.TrimSpace(v.GetString("discord.public_key")),
		DiscordAppID:            v.GetString("discord.app_id"),
		DiscordBotToken:         v.GetString("discord.bot_token"),
		DiscordRegisterCommands: v.GetBool("discord.register_commands"),
		DiscordGuildIDs:         listValue(v, "discord.guild_ids"),
		StorageMode:             strings.ToLower(v.GetString("storage.mode")),
		StorageEmulatorHost:     v.GetString("storage.emulator_host"),
		StorageProjectID:        v.GetString("storage.project_id"),
		PendingBucket:           v.GetString("storage.pending_bucket"),
		PillowBucket:            v.GetString("storage.pillow_bucket"),
		PhotoBucket:             v.GetString("storage.photo_bucket"),
		PillowPublicBaseURL:     strings.TrimRight(v.GetString("storage.pillow_public_base_url"), "/"),
		MaxUploadMB:             v.GetInt("storage.max_upload_mb"),
		ReviewTaskTimeout:       v.GetDuration("review.task_timeout"),
		ReviewClaimTTL:          v.GetDuration("review.claim_ttl"),
		RedisHost:               v.GetString("redis.host"),
		RedisPort:               v.GetInt("redis.port"),
		RedisDB:                 v.GetInt("redis.db"),
		RedisPassword:           v.GetString("redis.password"),
		SettingsMode:            strings.ToLower(v.GetString("redis.settings_mode")),
		DBDriver:                strings.ToLower(v.GetString("db.driver")),
		DatabaseURI:             v.GetString("db.uri"),
		DBHost:                  v.GetString("db.host"),
		DBPort:                  v.GetString("db.port"),
		DBUser:                  v.GetString("db.user"),
		DBPassword:              v.GetString("db.password"),
		DBName:                  v.GetString("db.name"),
		LogLevel:                v.GetString("log.level"),
		LogPath:                 v.GetString("log.path"),
		LogMaxSizeMB:            v.GetInt("log.max_size_mb"),
		LogMaxBackups:           v.GetInt("log.max_backups"),
		LogMaxAgeDays:           v.GetInt("log.max_age_days"),
		LogCompress:             v.GetBool("log.compress"),
		OtelEnabled:             v.GetBool("otel.enabled"),
		OtelEndpoint:            v.GetString("otel.endpoint"),
		OtelInsecure:            v.GetBool("otel.insecure"),
		OtelSampleRatio:         v.GetFloat64("otel.sample_ratio"),
	}
}

// listValue accepts both YAML lists and comma separated environment values.
func listValue(v *viper.Viper, key string) []string {
	raw := strings.Join(v.GetStringSlice(key), ",")
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
