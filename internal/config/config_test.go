package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidplus-harvester/internal/filter"
	"bidplus-harvester/internal/gem"
)

func load(t *testing.T, args []string, configFile string) (Config, error) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	RegisterWatchFlags(fs)
	require.NoError(t, fs.Parse(args))
	v, err := NewViper(fs, configFile)
	require.NoError(t, err)
	return Load(v)
}

func TestDefaults(t *testing.T) {
	cfg, err := load(t, nil, "")
	require.NoError(t, err)

	assert.Equal(t, filter.ModeContains, cfg.Mode)
	assert.Equal(t, 2, cfg.Pages)
	assert.Equal(t, 10*time.Hour, cfg.Lookback())
	assert.Equal(t, 90*time.Second, cfg.PDFTimeout)
	assert.Equal(t, 30*time.Second, cfg.ListingTimeout)
	assert.Equal(t, BackendFile, cfg.StateBackend)
	assert.Equal(t, gem.DefaultBaseURL, cfg.BaseURL)
	assert.Empty(t, cfg.States)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, filepath.Join("pdfs", "debug_html"), cfg.DiagnosticDir())
}

func TestFlagsOverride(t *testing.T) {
	cfg, err := load(t, []string{
		"-k", "toner", "--mode", "exact", "--state", "Uttar Pradesh", "--state", "goa",
		"--pages", "5", "--download-pdf", "--pdf-timeout", "45s",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "toner", cfg.Keyword)
	assert.Equal(t, filter.ModeAllTerms, cfg.Mode)
	assert.Equal(t, []string{"Uttar Pradesh", "goa"}, cfg.States)
	assert.Equal(t, 5, cfg.Pages)
	assert.True(t, cfg.DownloadPDF)
	assert.Equal(t, 45*time.Second, cfg.PDFTimeout)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("BIDPLUS_KEYWORD", "laptop")
	t.Setenv("BIDPLUS_STATE", "Uttar Pradesh, Karnataka")
	t.Setenv("BIDPLUS_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("BIDPLUS_DOWNLOAD_PDF", "true")

	cfg, err := load(t, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "laptop", cfg.Keyword)
	assert.Equal(t, []string{"Uttar Pradesh", "Karnataka"}, cfg.States)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.DownloadPDF)

	cfg, err = load(t, []string{"--keyword", "printer"}, "")
	require.NoError(t, err)
	assert.Equal(t, "printer", cfg.Keyword, "explicit flags beat the environment")
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvester.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
keyword: chairs
state:
  - Goa
  - Kerala
pages: 4
state-backend: redis
redis-key: test:wm
`), 0o644))

	cfg, err := load(t, nil, path)
	require.NoError(t, err)
	assert.Equal(t, "chairs", cfg.Keyword)
	assert.Equal(t, []string{"Goa", "Kerala"}, cfg.States)
	assert.Equal(t, 4, cfg.Pages)
	assert.Equal(t, BackendRedis, cfg.StateBackend)
	assert.Equal(t, "test:wm", cfg.RedisKey)
}

func TestValidation(t *testing.T) {
	_, err := load(t, []string{"--mode", "fuzzy"}, "")
	require.ErrorContains(t, err, "invalid mode")

	_, err = load(t, []string{"--pages", "0", "--upload-s3", "--state-backend", "sqlite"}, "")
	require.Error(t, err)
	assert.ErrorContains(t, err, "pages must be at least 1")
	assert.ErrorContains(t, err, "upload-s3 requires s3-bucket")
	assert.ErrorContains(t, err, `unknown state-backend "sqlite"`)
}
