// config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port       string        `env:"PORT" envDefault:"3000"`
	BodyLimit  int           `env:"BODY_LIMIT" envDefault:"576716800"` // 550MB, multipart overhead included
	Repository string        `env:"REPOSITORY" envDefault:"mongo"`     // mongo, memory
	Queue      string        `env:"QUEUE" envDefault:"redis"`          // redis, memory
	ShutdownIn time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	Mongo      MongoConfig      `envPrefix:"MONGO_"`
	Cassandra  CassandraConfig  `envPrefix:"CASSANDRA_"`
	MinIO      MinIOConfig      `envPrefix:"MINIO_"`
	Redis      RedisConfig      `envPrefix:"REDIS_"`
	RabbitMQ   RabbitMQConfig   `envPrefix:"RABBITMQ_"`
	Storage    StorageConfig    `envPrefix:"STORAGE_"`
	Upload     UploadConfig     `envPrefix:"UPLOAD_"`
	Processing ProcessingConfig `envPrefix:"PROCESSING_"`
	Cleanup    CleanupConfig    `envPrefix:"CLEANUP_"`
	RateLimit  RateLimitConfig  `envPrefix:"RATE_LIMIT_"`
	Log        LogConfig        `envPrefix:"LOG_"`
}

type MongoConfig struct {
	URI        string `env:"URI" envDefault:"mongodb://localhost:27017"`
	Database   string `env:"DATABASE" envDefault:"streamvibes"`
	Collection string `env:"COLLECTION" envDefault:"videos"`
}

// CassandraConfig enables the engagement event log when Hosts is non-empty.
type CassandraConfig struct {
	Hosts    []string `env:"HOSTS" envSeparator:","`
	Keyspace string   `env:"KEYSPACE" envDefault:"streamvibes"`
}

type MinIOConfig struct {
	Endpoint        string `env:"ENDPOINT" envDefault:"localhost:9000"`
	AccessKeyID     string `env:"ACCESS_KEY" envDefault:"minioadmin"`
	SecretAccessKey string `env:"SECRET_KEY" envDefault:"minioadmin"`
	UseSSL          bool   `env:"USE_SSL" envDefault:"false"`
	BucketName      string `env:"BUCKET" envDefault:"videos"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	QueueKey string `env:"QUEUE_KEY" envDefault:"processing_queue"`
}

// RabbitMQConfig enables status events when URL is set.
type RabbitMQConfig struct {
	URL      string `env:"URL"`
	Exchange string `env:"EXCHANGE" envDefault:"video.exchange"`
}

type StorageConfig struct {
	Backend string `env:"BACKEND" envDefault:"local"` // local, minio
	Root    string `env:"ROOT" envDefault:"./data"`
}

type UploadConfig struct {
	MaxVideoBytes     int64 `env:"MAX_VIDEO_BYTES" envDefault:"524288000"`
	MaxThumbnailBytes int64 `env:"MAX_THUMBNAIL_BYTES" envDefault:"5242880"`
}

type ProcessingConfig struct {
	Workers       int           `env:"WORKERS" envDefault:"2"`
	JobTimeout    time.Duration `env:"JOB_TIMEOUT" envDefault:"30m"`
	SettleTimeout time.Duration `env:"SETTLE_TIMEOUT" envDefault:"30s"`
	OutcomeBuffer int           `env:"OUTCOME_BUFFER" envDefault:"64"`
	FFmpegPath    string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	FFprobePath   string        `env:"FFPROBE_PATH" envDefault:"ffprobe"`
}

type CleanupConfig struct {
	Interval   time.Duration `env:"INTERVAL" envDefault:"10m"`
	TempTTL    time.Duration `env:"TEMP_TTL" envDefault:"2h"`
	StaleAfter time.Duration `env:"STALE_AFTER" envDefault:"2h"`
}

type RateLimitConfig struct {
	Max        int           `env:"MAX" envDefault:"5"`
	Expiration time.Duration `env:"EXPIRATION" envDefault:"1m"`
}

type LogConfig struct {
	Level      string `env:"LEVEL" envDefault:"info"`
	Format     string `env:"FORMAT" envDefault:"text"`   // text, json
	Output     string `env:"OUTPUT" envDefault:"stdout"` // stdout, file, both
	File       string `env:"FILE" envDefault:"logs/streamvibes.log"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS" envDefault:"14"`
	Compress   bool   `env:"COMPRESS" envDefault:"true"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Repository {
	case "mongo", "memory":
	default:
		errs = append(errs, fmt.Errorf("REPOSITORY must be mongo or memory, got %q", c.Repository))
	}
	switch c.Queue {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("QUEUE must be redis or memory, got %q", c.Queue))
	}
	switch c.Storage.Backend {
	case "local", "minio":
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be local or minio, got %q", c.Storage.Backend))
	}
	if strings.TrimSpace(c.Storage.Root) == "" {
		errs = append(errs, errors.New("STORAGE_ROOT is required"))
	}
	if c.Upload.MaxVideoBytes <= 0 || c.Upload.MaxThumbnailBytes <= 0 {
		errs = append(errs, errors.New("upload ceilings must be positive"))
	}
	if c.Processing.Workers < 1 {
		errs = append(errs, errors.New("PROCESSING_WORKERS must be at least 1"))
	}
	if c.Processing.JobTimeout <= 0 || c.Processing.SettleTimeout <= 0 {
		errs = append(errs, errors.New("processing timeouts must be positive"))
	}
	// A running job's staged source and record must outlive the sweeper's thresholds.
	if c.Processing.JobTimeout > 0 {
		if c.Cleanup.TempTTL <= c.Processing.JobTimeout {
			errs = append(errs, fmt.Errorf("CLEANUP_TEMP_TTL (%s) must exceed PROCESSING_JOB_TIMEOUT (%s)", c.Cleanup.TempTTL, c.Processing.JobTimeout))
		}
		if c.Cleanup.StaleAfter <= c.Processing.JobTimeout {
			errs = append(errs, fmt.Errorf("CLEANUP_STALE_AFTER (%s) must exceed PROCESSING_JOB_TIMEOUT (%s)", c.Cleanup.StaleAfter, c.Processing.JobTimeout))
		}
	}
	if c.Repository == "mongo" && c.Mongo.URI == "" {
		errs = append(errs, errors.New("MONGO_URI is required for the mongo repository"))
	}
	return errors.Join(errs...)
}
