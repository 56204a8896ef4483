package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultPath is read when no --config flag is given; it may be absent.
const DefaultPath = "config.yaml"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Model   ModelConfig   `mapstructure:"model"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Imaging ImagingConfig `mapstructure:"imaging"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type ModelConfig struct {
	Path          string `mapstructure:"path"`
	MetadataPath  string `mapstructure:"metadata_path"`
	SharedLibrary string `mapstructure:"shared_library"`
}

// CatalogConfig points at an optional YAML catalog. Empty uses the one
// compiled into the binary.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

type ImagingConfig struct {
	ExifOrientation bool `mapstructure:"exif_orientation"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configPath (YAML) with CROP_* environment overrides. A missing
// file at DefaultPath is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("crop")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", "CROP_SERVER_PORT", "PORT"); err != nil {
		return nil, err
	}

	if configPath == "" {
		configPath = DefaultPath
	}
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	_, statErr := os.Stat(configPath)
	optional := configPath == DefaultPath && errors.Is(statErr, os.ErrNotExist)
	if !optional {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Server.Port = normalizePort(cfg.Server.Port)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5001")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_upload_bytes", 10<<20)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("model.path", "models/model.onnx")
	v.SetDefault("model.metadata_path", "models/model_metadata.json")
	v.SetDefault("model.shared_library", "")

	v.SetDefault("catalog.path", "")
	v.SetDefault("imaging.exif_orientation", false)
	v.SetDefault("log.level", "")
}

// normalizePort accepts "8080" or ":8080" and returns ":8080".
func normalizePort(port string) string {
	if port == "" || strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}
