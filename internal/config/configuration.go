package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"thirdcoast.systems/fgcdesigner/pkg/yuv"
)

type Config struct {
	// WebServer Configuration
	WebServerPort int `mapstructure:"WEBSERVER_PORT" validate:"min=1,max=65535"`

	// Synthesizer and source video
	SynthBinary    string `mapstructure:"SYNTH_BINARY" validate:"required"`
	SourcePath     string `mapstructure:"SOURCE_PATH"`
	SourceWidth    int    `mapstructure:"SOURCE_WIDTH" validate:"min=2"`
	SourceHeight   int    `mapstructure:"SOURCE_HEIGHT" validate:"min=2"`
	SourceBitDepth int    `mapstructure:"SOURCE_BITDEPTH" validate:"oneof=8 10"`
	SourceFormat   int    `mapstructure:"SOURCE_FORMAT" validate:"oneof=400 420 422 444"`
	FrameIndex     int    `mapstructure:"FRAME_INDEX" validate:"min=0"`
	GrainSeed      uint32 `mapstructure:"GRAIN_SEED"`
	WorkDir        string `mapstructure:"WORK_DIR" validate:"required"`
	InitialConfig  string `mapstructure:"INITIAL_CONFIG"`

	// Preview Configuration
	PreviewDebounceMs int  `mapstructure:"PREVIEW_DEBOUNCE_MS" validate:"min=0"`
	PreviewTimeoutSec int  `mapstructure:"PREVIEW_TIMEOUT_SEC" validate:"min=1"`
	PreviewWindow     bool `mapstructure:"PREVIEW_WINDOW"`

	// Database Configuration
	DatabaseDSN     string `mapstructure:"DATABASE_DSN"`
	DatabaseRetries int    `mapstructure:"DATABASE_RETRIES" validate:"min=0"`

	// Logging
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"oneof=auto text json"`
	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// Layout returns the raw video layout of the source.
func (c Config) Layout() yuv.Layout {
	return yuv.Layout{
		Width:    c.SourceWidth,
		Height:   c.SourceHeight,
		BitDepth: c.SourceBitDepth,
		Format:   yuv.ChromaFormat(c.SourceFormat),
	}
}

// PreviewDebounce returns the delay applied before each preview render.
func (c Config) PreviewDebounce() time.Duration {
	return time.Duration(c.PreviewDebounceMs) * time.Millisecond
}

// PreviewTimeout bounds a single synthesizer run.
func (c Config) PreviewTimeout() time.Duration {
	return time.Duration(c.PreviewTimeoutSec) * time.Second
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	val := reflect.ValueOf(c)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("mapstructure")
		if tag != "" {
			viper.BindEnv(tag)
		}
	}
}

// Keys returns every configuration key, in declaration order.
func Keys() []string {
	typ := reflect.TypeOf(Config{})
	keys := make([]string, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		if tag := typ.Field(i).Tag.Get("mapstructure"); tag != "" {
			keys = append(keys, tag)
		}
	}
	return keys
}

func setDefaults() {
	viper.SetDefault("WEBSERVER_PORT", 8080)
	viper.SetDefault("SYNTH_BINARY", "vfgs")
	viper.SetDefault("SOURCE_WIDTH", 1920)
	viper.SetDefault("SOURCE_HEIGHT", 1080)
	viper.SetDefault("SOURCE_BITDEPTH", 10)
	viper.SetDefault("SOURCE_FORMAT", 420)
	viper.SetDefault("FRAME_INDEX", 0)
	viper.SetDefault("GRAIN_SEED", 0)
	viper.SetDefault("WORK_DIR", filepath.Join(os.TempDir(), "fgcdesigner"))
	viper.SetDefault("PREVIEW_DEBOUNCE_MS", 40)
	viper.SetDefault("PREVIEW_TIMEOUT_SEC", 30)
	viper.SetDefault("PREVIEW_WINDOW", false)
	viper.SetDefault("DATABASE_RETRIES", 10)
	viper.SetDefault("LOG_FORMAT", "auto")
	viper.SetDefault("LOG_LEVEL", "info")
}

// LoadConfig reads the configuration from the environment, on top of the
// optional file named by FGC_CONFIG_FILE.
func LoadConfig(ctx context.Context) (*Config, error) {
	bindEnv(Config{})
	viper.AutomaticEnv()
	setDefaults()

	if path := os.Getenv("FGC_CONFIG_FILE"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		slog.Info("Read configuration file", "path", path)
	}

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	slog.Debug("Loaded configuration",
		"synth", cfg.SynthBinary,
		"source", cfg.SourcePath,
		"work_dir", cfg.WorkDir,
		"database", cfg.DatabaseDSN != "",
	)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if cfg.SourcePath != "" {
		if err := cfg.Layout().Validate(); err != nil {
			return nil, fmt.Errorf("validate config: %w", err)
		}
	}

	return &cfg, nil
}
