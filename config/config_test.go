package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lexandro/batchforge-mcp/engine"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func Test_Load_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Parallelism.Threads)
	assert.Equal(t, 100, cfg.Parallelism.BatchSize)
	assert.Equal(t, int64(10*1024*1024), cfg.Advanced.LargeFileThreshold)
	assert.Equal(t, 8000, cfg.Advanced.FileTimeoutMS)
	assert.Equal(t, 64*1024, cfg.Advanced.ReadBufferSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Watch.Enabled)
	assert.Empty(t, cfg.Accelerator.Endpoint)
}

func Test_Load_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, "batchforge.yaml", `
parallelism:
  threads: 4
  batch_size: 50
advanced:
  large_file_threshold: 2048
log:
  level: debug
exclude: ["**/gen/**"]
accelerator:
  endpoint: http://127.0.0.1:8079/mcp
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Parallelism.Threads)
	assert.Equal(t, 50, cfg.Parallelism.BatchSize)
	assert.Equal(t, int64(2048), cfg.Advanced.LargeFileThreshold)
	assert.Equal(t, 64*1024, cfg.Advanced.ReadBufferSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"**/gen/**"}, cfg.Exclude)
	assert.Equal(t, "http://127.0.0.1:8079/mcp", cfg.Accelerator.Endpoint)
}

func Test_Load_TOML(t *testing.T) {
	path := writeConfig(t, "batchforge.toml", "[parallelism]\nthreads = 2\n")
	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Parallelism.Threads)
}

func Test_Load_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "batchforge.yaml", "parallelism:\n  threads: 4\n")
	t.Setenv("BATCHFORGE_PARALLELISM_THREADS", "6")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Parallelism.Threads)
}

func Test_Load_FlagsOverrideEverything(t *testing.T) {
	path := writeConfig(t, "batchforge.yaml", "log:\n  level: warn\n")
	t.Setenv("BATCHFORGE_LOG_LEVEL", "error")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.Bool("watch", false, "")
	require.NoError(t, flags.Parse([]string{"--log-level=debug", "--watch"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Watch.Enabled)
}

func Test_Load_ExplicitFileMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func Test_Load_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"negative threads": "parallelism:\n  threads: -1\n",
		"zero batch size":  "parallelism:\n  batch_size: 0\n",
		"unknown level":    "log:\n  level: loud\n",
		"bad endpoint":     "accelerator:\n  endpoint: not a url\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "batchforge.yaml", content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func Test_Config_EngineOptions(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	cfg.Parallelism.Threads = 3

	assert.Equal(t, engine.Options{
		Workers:            3,
		ChunkSize:          100,
		LargeFileThreshold: 10 * 1024 * 1024,
		ReadBufferSize:     64 * 1024,
	}, cfg.EngineOptions())
	assert.Equal(t, int64(10*1024*1024), cfg.AnalyzerOptions().LargeFileThreshold)
}
