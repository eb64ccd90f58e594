package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"thirdcoast.systems/fgcdesigner/pkg/yuv"
)

func TestLoadConfig_Success_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("WEBSERVER_PORT", "8080")

	cfg, err := LoadConfig(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.Equal(t, 8080, cfg.WebServerPort)
	require.Equal(t, "vfgs", cfg.SynthBinary)
	require.Equal(t, yuv.Layout{Width: 1920, Height: 1080, BitDepth: 10, Format: yuv.Format420}, cfg.Layout())
	require.Equal(t, 40*time.Millisecond, cfg.PreviewDebounce())
	require.Equal(t, 30*time.Second, cfg.PreviewTimeout())
	require.Equal(t, 10, cfg.DatabaseRetries) // default
	require.Empty(t, cfg.DatabaseDSN)
	require.Empty(t, cfg.SourcePath)
	require.Equal(t, "auto", cfg.LogFormat)
}

func TestLoadConfig_ValidationError(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bit depth", env: map[string]string{"SOURCE_BITDEPTH": "12"}},
		{name: "chroma format", env: map[string]string{"SOURCE_FORMAT": "411"}},
		{name: "log level", env: map[string]string{"LOG_LEVEL": "loud"}},
		{name: "odd 420 width with source", env: map[string]string{"SOURCE_PATH": "clip.yuv", "SOURCE_WIDTH": "1921"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadConfig(context.Background())
			require.Error(t, err)
			require.Nil(t, cfg)
		})
	}
}

func TestLoadConfig_OverrideSource(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("SOURCE_PATH", "/clips/park.yuv")
	t.Setenv("SOURCE_WIDTH", "1280")
	t.Setenv("SOURCE_HEIGHT", "720")
	t.Setenv("SOURCE_BITDEPTH", "8")
	t.Setenv("SOURCE_FORMAT", "444")
	t.Setenv("GRAIN_SEED", "4294967295")
	t.Setenv("DATABASE_RETRIES", "3")

	cfg, err := LoadConfig(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.Equal(t, yuv.Layout{Width: 1280, Height: 720, BitDepth: 8, Format: yuv.Format444}, cfg.Layout())
	require.Equal(t, uint32(4294967295), cfg.GrainSeed)
	require.Equal(t, 3, cfg.DatabaseRetries)
}

func TestLoadConfig_File(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "designer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("SYNTH_BINARY: /opt/vfgs/bin/vfgs\nFRAME_INDEX: 12\n"), 0o644))
	t.Setenv("FGC_CONFIG_FILE", path)
	t.Setenv("FRAME_INDEX", "3")

	cfg, err := LoadConfig(context.Background())
	require.NoError(t, err)
	require.Equal(t, "/opt/vfgs/bin/vfgs", cfg.SynthBinary)
	require.Equal(t, 3, cfg.FrameIndex) // env wins over file
}

func TestLoadConfig_MissingFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("FGC_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := LoadConfig(context.Background())
	require.Error(t, err)
}

func TestKeys(t *testing.T) {
	keys := Keys()
	require.Contains(t, keys, "SYNTH_BINARY")
	require.Contains(t, keys, "DATABASE_DSN")
	require.Equal(t, "WEBSERVER_PORT", keys[0])
}
