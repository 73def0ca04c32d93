package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DatabaseURLEnv selects the database backend when set
const DatabaseURLEnv = "DATABASE_URL"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Catalog  CatalogConfig  `yaml:"catalog"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// StorageConfig selects and locates the storage backend.
// A non-empty DatabaseURL selects Postgres for the process lifetime.
type StorageConfig struct {
	DatabaseURL string `yaml:"database_url"`
	DataDir     string `yaml:"data_dir"`
}

// UseDatabase reports whether the database backend is selected
func (c *StorageConfig) UseDatabase() bool {
	return c.DatabaseURL != ""
}

// PostgresConfig holds connection pool tuning for the database backend
type PostgresConfig struct {
	MaxConnections  int           `yaml:"max_connections"`
	MinConnections  int           `yaml:"min_connections"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	UpsertChunkSize int           `yaml:"upsert_chunk_size"`
}

// RedisConfig holds Redis connection configuration for event fan-out
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Channel      string        `yaml:"channel"`
	PoolSize     int           `yaml:"pool_size"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// KafkaConfig holds Kafka connection configuration for game imports
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	GroupID      string        `yaml:"group_id"`
	Enabled      bool          `yaml:"enabled"`
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

// SnapshotConfig holds backup snapshot worker configuration
type SnapshotConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Dir      string        `yaml:"dir"`
	Keep     int           `yaml:"keep"`
}

// CatalogConfig holds catalog id generation settings
type CatalogConfig struct {
	GameIDPrefix  string `yaml:"game_id_prefix"`
	GenreIDPrefix string `yaml:"genre_id_prefix"`
	IDWidth       int    `yaml:"id_width"`
}

// Load reads configuration from a YAML file. A .env file in the working
// directory is loaded into the environment first when present.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

// LoadDotEnv loads .env into the process environment, ignoring a missing file
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env file: %w", err)
	}
	return nil
}

// applyEnv lets the process environment pick the backend
func (c *Config) applyEnv() {
	if url := os.Getenv(DatabaseURLEnv); url != "" {
		c.Storage.DatabaseURL = url
	}
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}

	// Storage defaults
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}

	// PostgreSQL defaults
	if c.Postgres.MaxConnections == 0 {
		c.Postgres.MaxConnections = 10
	}
	if c.Postgres.MinConnections == 0 {
		c.Postgres.MinConnections = 1
	}
	if c.Postgres.MaxConnLifetime == 0 {
		c.Postgres.MaxConnLifetime = 1 * time.Hour
	}
	if c.Postgres.MaxConnIdleTime == 0 {
		c.Postgres.MaxConnIdleTime = 30 * time.Minute
	}
	if c.Postgres.UpsertChunkSize == 0 {
		c.Postgres.UpsertChunkSize = 1000
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "catalog:events"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}

	// Kafka defaults
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "catalog-games"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "catalog-importer"
	}
	if c.Kafka.BatchSize == 0 {
		c.Kafka.BatchSize = 200
	}
	if c.Kafka.BatchTimeout == 0 {
		c.Kafka.BatchTimeout = 2 * time.Second
	}

	// Snapshot defaults
	if c.Snapshot.Interval == 0 {
		c.Snapshot.Interval = 6 * time.Hour
	}
	if c.Snapshot.Dir == "" {
		c.Snapshot.Dir = "backups"
	}
	if c.Snapshot.Keep == 0 {
		c.Snapshot.Keep = 14
	}

	// Catalog defaults
	if c.Catalog.GameIDPrefix == "" {
		c.Catalog.GameIDPrefix = "g-"
	}
	if c.Catalog.GenreIDPrefix == "" {
		c.Catalog.GenreIDPrefix = "gm-"
	}
	if c.Catalog.IDWidth == 0 {
		c.Catalog.IDWidth = 4
	}
}

// DefaultConfig returns a configuration with all defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg
}
