// Package config resolves harvester settings from flags, BIDPLUS_* environment
// variables, an optional YAML file and defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"bidplus-harvester/internal/filter"
	"bidplus-harvester/internal/gem"
)

// EnvPrefix namespaces environment overrides, e.g. BIDPLUS_KEYWORD.
const EnvPrefix = "BIDPLUS"

// State backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// S3 holds archival settings.
type S3 struct {
	Enabled   bool
	Bucket    string
	Prefix    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Kafka holds result publishing settings. No brokers disables publishing.
type Kafka struct {
	Brokers       []string
	ResultsTopic  string
	FailuresTopic string
}

// Log holds logger settings.
type Log struct {
	Level    string
	Encoding string
}

// Config is the resolved harvester configuration.
type Config struct {
	Keyword         string
	Mode            filter.Mode
	Category        string
	States          []string
	Pages           int
	Delay           time.Duration
	BidDelay        time.Duration
	DefaultHoursAgo int

	Out          string
	StateFile    string
	StateBackend string
	RedisAddr    string
	RedisKey     string

	DownloadPDF    bool
	PDFDir         string
	PDFTimeout     time.Duration
	ListingTimeout time.Duration
	ResolveTimeout time.Duration
	ScanDetail     bool
	DebugDates     bool

	BaseURL   string
	UserAgent string
	ProxyURL  string

	S3    S3
	Kafka Kafka
	Log   Log

	Schedule string
	HTTPAddr string
}

// Lookback is the first-run window.
func (c Config) Lookback() time.Duration {
	return time.Duration(c.DefaultHoursAgo) * time.Hour
}

// DiagnosticDir is where unresolved landing pages are saved.
func (c Config) DiagnosticDir() string {
	return filepath.Join(c.PDFDir, "debug_html")
}

// RegisterFlags declares every run flag on fs with its default.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("keyword", "k", "", "search keyword")
	fs.String("mode", string(filter.ModeContains), "keyword match mode: contains | all-terms (alias exact)")
	fs.StringP("category", "c", "", "category filter (substring)")
	fs.StringArray("state", nil, "allowed consignee state (repeatable)")
	fs.Int("pages", 2, "maximum listing pages to scan")
	fs.Duration("delay", 200*time.Millisecond, "delay between listing pages")
	fs.Duration("bid-delay", 250*time.Millisecond, "delay after each document download")
	fs.Int("default-hours-ago", 10, "first-run lookback in hours")

	fs.String("out", "latest_bids.json", "manifest output path")
	fs.String("state-file", "state.json", "watermark file (file backend)")
	fs.String("state-backend", BackendFile, "watermark backend: file | redis")
	fs.String("redis-addr", "localhost:6379", "redis address (redis backend)")
	fs.String("redis-key", "bidplus:watermark", "redis key (redis backend)")

	fs.Bool("download-pdf", false, "download the document of each matched bid")
	fs.String("pdf-dir", "pdfs", "document directory")
	fs.Duration("pdf-timeout", 90*time.Second, "timeout per document download")
	fs.Duration("listing-timeout", 30*time.Second, "timeout per listing request")
	fs.Duration("resolve-timeout", 30*time.Second, "timeout per landing page request")
	fs.Bool("scan-detail", false, "fetch each eligible bid's detail view for filter text (implied by --category and --state)")
	fs.Bool("debug-dates", false, "log raw and normalized timestamps")

	fs.String("base-url", gem.DefaultBaseURL, "portal base url")
	fs.String("user-agent", gem.DefaultUserAgent, "User-Agent header")
	fs.String("proxy-url", "", "HTTP proxy for portal requests")

	fs.Bool("upload-s3", false, "upload manifest and documents to S3")
	fs.String("s3-bucket", "", "S3 bucket")
	fs.String("s3-prefix", "", "S3 key prefix")
	fs.String("s3-endpoint", "s3.amazonaws.com", "S3 endpoint host")
	fs.String("s3-region", "", "S3 region")
	fs.String("s3-access-key", "", "S3 access key (empty uses AWS_* environment)")
	fs.String("s3-secret-key", "", "S3 secret key")
	fs.Bool("s3-use-ssl", true, "use TLS for S3")

	fs.String("kafka-brokers", "", "comma-separated Kafka brokers; empty disables publishing")
	fs.String("kafka-results-topic", "bidplus.results", "topic for matched bids")
	fs.String("kafka-failures-topic", "bidplus.failures", "topic for bid failures")

	fs.String("log-level", "info", "log level")
	fs.String("log-encoding", "console", "log encoding: console | json")
}

// RegisterWatchFlags declares the scheduler flags.
func RegisterWatchFlags(fs *pflag.FlagSet) {
	fs.String("schedule", "@every 15m", "cron schedule for sweeps")
	fs.String("http-addr", ":8080", "address for /metrics, /status and /healthz")
}

// NewViper returns a viper instance reading BIDPLUS_* variables and the
// optional config file, with fs bound on top.
func NewViper(fs *pflag.FlagSet, configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	return v, nil
}

// Load resolves and validates the configuration.
func Load(v *viper.Viper) (Config, error) {
	mode, ok := filter.ParseMode(v.GetString("mode"))
	if !ok {
		return Config{}, fmt.Errorf("invalid mode %q", v.GetString("mode"))
	}

	cfg := Config{
		Keyword:         strings.TrimSpace(v.GetString("keyword")),
		Mode:            mode,
		Category:        strings.TrimSpace(v.GetString("category")),
		States:          stringList(v, "state"),
		Pages:           v.GetInt("pages"),
		Delay:           v.GetDuration("delay"),
		BidDelay:        v.GetDuration("bid-delay"),
		DefaultHoursAgo: v.GetInt("default-hours-ago"),

		Out:          v.GetString("out"),
		StateFile:    v.GetString("state-file"),
		StateBackend: strings.ToLower(v.GetString("state-backend")),
		RedisAddr:    v.GetString("redis-addr"),
		RedisKey:     v.GetString("redis-key"),

		DownloadPDF:    v.GetBool("download-pdf"),
		PDFDir:         v.GetString("pdf-dir"),
		PDFTimeout:     v.GetDuration("pdf-timeout"),
		ListingTimeout: v.GetDuration("listing-timeout"),
		ResolveTimeout: v.GetDuration("resolve-timeout"),
		ScanDetail:     v.GetBool("scan-detail"),
		DebugDates:     v.GetBool("debug-dates"),

		BaseURL:   strings.TrimRight(v.GetString("base-url"), "/"),
		UserAgent: v.GetString("user-agent"),
		ProxyURL:  v.GetString("proxy-url"),

		S3: S3{
			Enabled:   v.GetBool("upload-s3"),
			Bucket:    v.GetString("s3-bucket"),
			Prefix:    v.GetString("s3-prefix"),
			Endpoint:  v.GetString("s3-endpoint"),
			Region:    v.GetString("s3-region"),
			AccessKey: v.GetString("s3-access-key"),
			SecretKey: v.GetString("s3-secret-key"),
			UseSSL:    v.GetBool("s3-use-ssl"),
		},
		Kafka: Kafka{
			Brokers:       stringList(v, "kafka-brokers"),
			ResultsTopic:  v.GetString("kafka-results-topic"),
			FailuresTopic: v.GetString("kafka-failures-topic"),
		},
		Log: Log{
			Level:    v.GetString("log-level"),
			Encoding: v.GetString("log-encoding"),
		},
		Schedule: v.GetString("schedule"),
		HTTPAddr: v.GetString("http-addr"),
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Pages < 1 {
		errs = append(errs, errors.New("pages must be at least 1"))
	}
	if c.DefaultHoursAgo < 0 {
		errs = append(errs, errors.New("default-hours-ago must not be negative"))
	}
	if c.Out == "" {
		errs = append(errs, errors.New("out is required"))
	}
	switch c.StateBackend {
	case BackendFile:
		if c.StateFile == "" {
			errs = append(errs, errors.New("state-file is required for the file backend"))
		}
	case BackendRedis:
		if c.RedisAddr == "" || c.RedisKey == "" {
			errs = append(errs, errors.New("redis-addr and redis-key are required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown state-backend %q", c.StateBackend))
	}
	if c.DownloadPDF && c.PDFDir == "" {
		errs = append(errs, errors.New("pdf-dir is required with download-pdf"))
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		errs = append(errs, errors.New("upload-s3 requires s3-bucket"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.ResultsTopic == "" {
		errs = append(errs, errors.New("kafka-results-topic is required with kafka-brokers"))
	}
	if c.BaseURL == "" {
		errs = append(errs, errors.New("base-url is required"))
	}
	if c.ProxyURL != "" {
		if u, err := url.Parse(c.ProxyURL); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid proxy-url %q", c.ProxyURL))
		}
	}
	return errors.Join(errs...)
}

// stringList accepts a YAML list, a repeated flag or a comma-separated env value.
func stringList(v *viper.Viper, key string) []string {
	var raw []string
	switch val := v.Get(key).(type) {
	case nil:
	case []string:
		raw = val
	case []any:
		for _, item := range val {
			raw = append(raw, fmt.Sprint(item))
		}
	case string:
		raw = []string{val}
	default:
		raw = []string{fmt.Sprint(val)}
	}

	var out []string
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
