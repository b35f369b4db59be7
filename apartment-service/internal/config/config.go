package config

import (
	"time"

	"github.com/manyalawy/nawy/apartment-service/internal/indexer"
	"github.com/manyalawy/nawy/apartment-service/internal/search"
	pkgconfig "github.com/manyalawy/nawy/pkg/config"
	"github.com/manyalawy/nawy/pkg/pubsub"
	"github.com/manyalawy/nawy/pkg/storage"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Search   SearchConfig
	Sync     SyncConfig
	Cache    CacheConfig
	JWT      JWTConfig
	Storage  storage.Config
	Upload   UploadConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

// SearchConfig selects the search engine. Meilisearch without an API key and
// Elasticsearch without addresses are treated as not configured.
type SearchConfig struct {
	Driver          string             `mapstructure:"driver"` // "meilisearch", "elasticsearch"
	Meilisearch     search.MeiliConfig `mapstructure:"meilisearch"`
	Elasticsearch   search.ESConfig    `mapstructure:"elasticsearch"`
	Timeout         time.Duration      `mapstructure:"timeout"`
	QueryTimeout    time.Duration      `mapstructure:"query_timeout"`
	BatchSize       int                `mapstructure:"batch_size"`
	ReprobeInterval time.Duration      `mapstructure:"reprobe_interval"` // 0 disables
	RecordStoreName string             `mapstructure:"record_store_name"`
}

// SyncConfig selects how index sync tasks are delivered.
type SyncConfig struct {
	Driver      string        `mapstructure:"driver"` // "local", "redis", "kafka"
	Workers     int           `mapstructure:"workers"`
	QueueSize   int           `mapstructure:"queue_size"`
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
	Consume     bool          `mapstructure:"consume"`
	PubSub      pubsub.Config `mapstructure:"pubsub"`
}

// Local returns the in-process dispatcher settings.
func (c SyncConfig) Local() indexer.LocalConfig {
	return indexer.LocalConfig{
		Workers:     c.Workers,
		QueueSize:   c.QueueSize,
		TaskTimeout: c.TaskTimeout,
	}
}

type CacheConfig struct {
	Enabled bool
	TTL     time.Duration `mapstructure:"ttl"`
	Prefix  string
	Redis   RedisConfig
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessDuration time.Duration `mapstructure:"access_duration"`
}

type UploadConfig struct {
	MaxImageSize int64 `mapstructure:"max_image_size"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3002)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "apartments")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/apartments.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("search.driver", search.EngineMeilisearch)
	v.SetDefault("search.meilisearch.host", "http://localhost:7700")
	v.SetDefault("search.meilisearch.index", "apartments")
	v.SetDefault("search.elasticsearch.index", "apartments")
	v.SetDefault("search.timeout", 5*time.Second)
	v.SetDefault("search.query_timeout", 5*time.Second)
	v.SetDefault("search.batch_size", indexer.DefaultBatchSize)
	v.SetDefault("search.reprobe_interval", 0)
	v.SetDefault("search.record_store_name", "database")
	v.SetDefault("sync.driver", "local")
	v.SetDefault("sync.workers", 4)
	v.SetDefault("sync.queue_size", 1024)
	v.SetDefault("sync.task_timeout", 30*time.Second)
	v.SetDefault("sync.consume", true)
	v.SetDefault("sync.pubsub.redis.address", "localhost:6379")
	v.SetDefault("sync.pubsub.redis.pool_size", 10)
	v.SetDefault("sync.pubsub.redis.read_timeout", 3*time.Second)
	v.SetDefault("sync.pubsub.redis.write_timeout", 3*time.Second)
	v.SetDefault("sync.pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("sync.pubsub.kafka.group_id", "apartment-indexer")
	v.SetDefault("sync.pubsub.kafka.partitions", 4)
	v.SetDefault("sync.pubsub.kafka.topics", []string{"sync-to-index"})
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.prefix", "apartment")
	v.SetDefault("cache.redis.address", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("jwt.issuer", "nawy")
	v.SetDefault("jwt.access_duration", 24*time.Hour)
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local.base_path", "./uploads")
	v.SetDefault("storage.local.public_path", "/uploads")
	v.SetDefault("upload.max_image_size", 5<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Bind environment variables
	if err := pkgconfig.BindEnvs(v, map[string]string{
		"server.port":                    "PORT",
		"database.driver":                "DB_DRIVER",
		"database.host":                  "DB_HOST",
		"database.port":                  "DB_PORT",
		"database.user":                  "DB_USER",
		"database.password":              "DB_PASSWORD",
		"database.dbname":                "DB_NAME",
		"database.sslmode":               "DB_SSLMODE",
		"database.file_path":             "DB_FILE_PATH",
		"database.max_idle_conns":        "DB_MAX_IDLE_CONNS",
		"database.max_open_conns":        "DB_MAX_OPEN_CONNS",
		"database.conn_max_lifetime":     "DB_CONN_MAX_LIFETIME",
		"search.driver":                  "SEARCH_DRIVER",
		"search.meilisearch.host":        "MEILISEARCH_URL",
		"search.meilisearch.api_key":     "MEILISEARCH_MASTER_KEY",
		"search.elasticsearch.addresses": "ES_ADDRESSES",
		"search.elasticsearch.username":  "ES_USERNAME",
		"search.elasticsearch.password":  "ES_PASSWORD",
		"search.elasticsearch.api_key":   "ES_API_KEY",
		"search.reprobe_interval":        "SEARCH_REPROBE_INTERVAL",
		"search.record_store_name":       "SEARCH_RECORD_STORE_NAME",
		"sync.driver":                    "SYNC_DRIVER",
		"sync.pubsub.redis.address":      "REDIS_ADDRESS",
		"sync.pubsub.redis.password":     "REDIS_PASSWORD",
		"sync.pubsub.kafka.brokers":      "KAFKA_BROKERS",
		"cache.enabled":                  "CACHE_ENABLED",
		"cache.redis.address":            "REDIS_ADDRESS",
		"cache.redis.password":           "REDIS_PASSWORD",
		"cache.redis.db":                 "REDIS_DB",
		"jwt.secret":                     "JWT_SECRET",
		"storage.driver":                 "STORAGE_DRIVER",
		"storage.s3.endpoint":            "S3_ENDPOINT",
		"storage.s3.region":              "S3_REGION",
		"storage.s3.bucket":              "S3_BUCKET",
		"storage.s3.access_key_id":       "S3_ACCESS_KEY_ID",
		"storage.s3.secret_access_key":   "S3_SECRET_ACCESS_KEY",
		"storage.s3.public_url":          "S3_PUBLIC_URL",
		"log.level":                      "LOG_LEVEL",
	}); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Search.Meilisearch.Timeout == 0 {
		cfg.Search.Meilisearch.Timeout = cfg.Search.Timeout
	}
	if cfg.Search.Elasticsearch.Timeout == 0 {
		cfg.Search.Elasticsearch.Timeout = cfg.Search.Timeout
	}

	return &cfg, nil
}
