package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Filename   string `yaml:"filename"`
	MaxSize    int    `yaml:"maxSize"`
	MaxDays    int    `yaml:"maxDays"`
	MaxBackups int    `yaml:"maxBackups"`
}

type ServerConfig struct {
	Address        string `yaml:"address"`
	MetricsAddress string `yaml:"metricsAddress"`
	// PageRows is the maximum number of rows in a single batch.
	PageRows int `yaml:"pageRows"`
	// PageBatches is the number of batches returned by a single fetch.
	PageBatches int `yaml:"pageBatches"`
}

type ScanConfig struct {
	FetchTimeout           time.Duration `yaml:"fetchTimeout"`
	PollInterval           time.Duration `yaml:"pollInterval"`
	BloomFalsePositiveRate float64       `yaml:"bloomFalsePositiveRate"`
	ConversionCacheBytes   int64         `yaml:"conversionCacheBytes"`
}

type TableConfig struct {
	Name   string                 `yaml:"name"`
	Type   string                 `yaml:"type"`
	Config map[string]interface{} `yaml:"config"`
}

type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
	Scan    ScanConfig    `yaml:"scan"`
	Tables  []TableConfig `yaml:"tables"`
}

func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSize:    64,
			MaxDays:    7,
			MaxBackups: 3,
		},
		Server: ServerConfig{
			Address:        "localhost:7777",
			MetricsAddress: "localhost:7778",
			PageRows:       1024,
			PageBatches:    4,
		},
		Scan: ScanConfig{
			FetchTimeout:           30 * time.Second,
			PollInterval:           10 * time.Millisecond,
			BloomFalsePositiveRate: 0.01,
			ConversionCacheBytes:   64 << 20,
		},
	}
}

// Dir is the directory holding the default configuration and log files.
func Dir() (string, error) {
	dir, err := homedir.Expand("~/.remotescan")
	if err != nil {
		return "", errors.Wrap(err, "couldn't expand home directory")
	}
	return dir, nil
}

func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "remotescan.yml"), nil
}

func (config *Config) GetTableConfig(name string) (*TableConfig, error) {
	for i := range config.Tables {
		if config.Tables[i].Name == name {
			return &config.Tables[i], nil
		}
	}

	return nil, ErrNotFound
}

func (config *Config) Validate() error {
	if config.Server.PageRows <= 0 {
		return errors.Errorf("server page rows must be positive, got %d", config.Server.PageRows)
	}
	if config.Server.PageBatches <= 0 {
		return errors.Errorf("server page batches must be positive, got %d", config.Server.PageBatches)
	}
	if rate := config.Scan.BloomFalsePositiveRate; rate <= 0 || rate >= 1 {
		return errors.Errorf("bloom false positive rate must be in (0, 1), got %v", rate)
	}
	names := make(map[string]bool)
	for _, table := range config.Tables {
		if table.Name == "" {
			return errors.New("table name can't be empty")
		}
		if names[table.Name] {
			return errors.Errorf("duplicate table: %s", table.Name)
		}
		names[table.Name] = true
	}
	return nil
}

// ReadConfig reads the configuration at path on top of the defaults.
// A missing file at the default path is not an error.
func ReadConfig(path string) (*Config, error) {
	config := Default()

	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(defaultPath); os.IsNotExist(err) {
			return config, nil
		}
		path = defaultPath
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't open file")
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(config); err != nil {
		return nil, errors.Wrap(err, "couldn't decode yaml configuration")
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return config, nil
}
