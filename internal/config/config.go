// Package config loads and validates the river configuration document.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"rethinkriver/internal/mapping"
)

// Driver names accepted in the source section.
const (
	DriverRethinkDB = "rethinkdb"
	DriverMongoDB   = "mongodb"
)

// Config holds the full river configuration.
type Config struct {
	// Name identifies this river instance. It is the document type the
	// backfill progress flag is persisted under in the meta index.
	Name string `yaml:"name"`

	Source        SourceConfig  `yaml:"source"`
	RethinkDB     RethinkConfig `yaml:"rethinkdb"`
	MongoDB       MongoConfig   `yaml:"mongodb"`
	Elasticsearch ElasticConfig `yaml:"elasticsearch"`
	Notify        NotifyConfig  `yaml:"notify"`
	Logging       LoggingConfig `yaml:"logging"`
}

// SourceConfig selects the change-feed driver.
type SourceConfig struct {
	Driver string `yaml:"driver"` // rethinkdb or mongodb
}

// RethinkConfig holds the RethinkDB connection settings and the table
// mappings to synchronize.
type RethinkConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	AuthKey string `yaml:"auth_key"`

	// Databases maps db name -> table name -> per-table options.
	Databases map[string]map[string]mapping.Options `yaml:"databases"`
}

// MongoConfig holds the MongoDB connection settings used when the mongodb
// driver is selected. The databases section is shared with the rethinkdb
// config; against a change-stream backend db and table mean database and
// collection.
type MongoConfig struct {
	URI string `yaml:"uri"`
}

// ElasticConfig holds the target index connection settings.
type ElasticConfig struct {
	URLs     []string `yaml:"urls"`
	Sniff    bool     `yaml:"sniff"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`

	// MetaIndex is where the backfill progress flag is persisted.
	MetaIndex string `yaml:"meta_index"`
}

// NotifyConfig holds the optional NATS fanout of applied live changes.
type NotifyConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:   "rethinkdb",
		Source: SourceConfig{Driver: DriverRethinkDB},
		RethinkDB: RethinkConfig{
			Host: "localhost",
			Port: 28015,
		},
		Elasticsearch: ElasticConfig{
			URLs:      []string{"http://localhost:9200"},
			MetaIndex: "_river",
		},
		Notify: NotifyConfig{
			SubjectPrefix: "river.changes",
		},
		Logging: DefaultLoggingConfig(),
	}
}

// Load reads the configuration file at path, overlaying it on the
// defaults. A missing file is not an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyDefaults()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

// ApplyDefaults fills in missing values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "rethinkdb"
	}
	if c.Source.Driver == "" {
		c.Source.Driver = DriverRethinkDB
	}
	if c.RethinkDB.Host == "" {
		c.RethinkDB.Host = "localhost"
	}
	if c.RethinkDB.Port == 0 {
		c.RethinkDB.Port = 28015
	}
	if len(c.Elasticsearch.URLs) == 0 {
		c.Elasticsearch.URLs = []string{"http://localhost:9200"}
	}
	if c.Elasticsearch.MetaIndex == "" {
		c.Elasticsearch.MetaIndex = "_river"
	}
	if c.Notify.SubjectPrefix == "" {
		c.Notify.SubjectPrefix = "river.changes"
	}
	c.Logging.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Source.Driver {
	case DriverRethinkDB:
		if c.RethinkDB.Port <= 0 || c.RethinkDB.Port > 65535 {
			return fmt.Errorf("invalid rethinkdb port: %d", c.RethinkDB.Port)
		}
	case DriverMongoDB:
		if c.MongoDB.URI == "" {
			return fmt.Errorf("mongodb driver selected but mongodb.uri is empty")
		}
	default:
		return fmt.Errorf("unknown source driver: %q", c.Source.Driver)
	}

	if len(c.RethinkDB.Databases) == 0 {
		return fmt.Errorf("no databases configured")
	}
	for db, tables := range c.RethinkDB.Databases {
		if len(tables) == 0 {
			return fmt.Errorf("database %q has no tables configured", db)
		}
	}

	return c.Logging.Validate()
}

// Mappings builds the mapping registry from the databases section.
func (c *Config) Mappings() (*mapping.Set, error) {
	return mapping.NewSet(c.RethinkDB.Databases)
}
