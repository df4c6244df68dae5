package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. STREETSCAN_SERVER_PORT.
const EnvPrefix = "STREETSCAN_"

// Config holds all configuration for the service
type Config struct {
	Server ServerConfig `yaml:"server"`
	Model  ModelConfig  `yaml:"model"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Mode            string        `yaml:"mode"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

// ModelConfig describes the model artifact and the input/output contract it must satisfy
type ModelConfig struct {
	Path                string  `yaml:"path"`
	MetadataPath        string  `yaml:"metadata_path"`
	SharedLibraryPath   string  `yaml:"shared_library_path"`
	IntraOpThreads      int     `yaml:"intra_op_threads"`
	MaxPixels           int64   `yaml:"max_pixels"`
	ImageSize           int     `yaml:"image_size"`
	Channels            int     `yaml:"channels"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Mode:            "release",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  10 << 20,
		},
		Model: ModelConfig{
			Path:                "model/model.onnx",
			MetadataPath:        "model/model_metadata.json",
			MaxPixels:           40_000_000,
			ImageSize:           224,
			Channels:            3,
			ConfidenceThreshold: 0.5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path and
// STREETSCAN_* environment variables, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.mode must be debug, release or test: %q", c.Server.Mode))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes must be positive: %d", c.Server.MaxUploadBytes))
	}
	if c.Model.Path == "" {
		errs = append(errs, errors.New("model.path is required"))
	}
	if c.Model.ImageSize <= 0 {
		errs = append(errs, fmt.Errorf("model.image_size must be positive: %d", c.Model.ImageSize))
	}
	if c.Model.MaxPixels <= 0 {
		errs = append(errs, fmt.Errorf("model.max_pixels must be positive: %d", c.Model.MaxPixels))
	}
	if c.Model.Channels != 3 {
		errs = append(errs, fmt.Errorf("model.channels must be 3: %d", c.Model.Channels))
	}
	if c.Model.ConfidenceThreshold < 0 || c.Model.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("model.confidence_threshold must be within [0,1]: %v", c.Model.ConfidenceThreshold))
	}
	if c.Model.IntraOpThreads < 0 {
		errs = append(errs, fmt.Errorf("model.intra_op_threads must not be negative: %d", c.Model.IntraOpThreads))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format must be json or console: %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"SERVER_HOST":               &cfg.Server.Host,
		"SERVER_MODE":               &cfg.Server.Mode,
		"MODEL_PATH":                &cfg.Model.Path,
		"MODEL_METADATA_PATH":       &cfg.Model.MetadataPath,
		"MODEL_SHARED_LIBRARY_PATH": &cfg.Model.SharedLibraryPath,
		"LOG_LEVEL":                 &cfg.Log.Level,
		"LOG_FORMAT":                &cfg.Log.Format,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"SERVER_PORT":            &cfg.Server.Port,
		"MODEL_INTRA_OP_THREADS": &cfg.Model.IntraOpThreads,
		"MODEL_IMAGE_SIZE":       &cfg.Model.ImageSize,
		"MODEL_CHANNELS":         &cfg.Model.Channels,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"SERVER_READ_TIMEOUT":     &cfg.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":    &cfg.Server.WriteTimeout,
		"SERVER_IDLE_TIMEOUT":     &cfg.Server.IdleTimeout,
		"SERVER_SHUTDOWN_TIMEOUT": &cfg.Server.ShutdownTimeout,
	}
	for key, dst := range durations {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
			}
			*dst = d
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "SERVER_MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sSERVER_MAX_UPLOAD_BYTES: %w", EnvPrefix, err)
		}
		cfg.Server.MaxUploadBytes = n
	}

	if v, ok := os.LookupEnv(EnvPrefix + "MODEL_MAX_PIXELS"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sMODEL_MAX_PIXELS: %w", EnvPrefix, err)
		}
		cfg.Model.MaxPixels = n
	}

	if v, ok := os.LookupEnv(EnvPrefix + "MODEL_CONFIDENCE_THRESHOLD"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sMODEL_CONFIDENCE_THRESHOLD: %w", EnvPrefix, err)
		}
		cfg.Model.ConfidenceThreshold = f
	}

	return nil
}
