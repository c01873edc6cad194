package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/stakeview/internal/pager"
)

const (
	defaultListenAddr   = ":8080"
	defaultTimeout      = 30 * time.Second
	defaultMaxViews     = 1024
	defaultExportWALDir = "./wal/exports"
	defaultCertCacheDir = "cert-cache"
	defaultPortalID     = "6314272"
	defaultFormID       = "81b4aece-eb68-4634-8d9b-fdfe4a26b624"

	upstreamAPIKeyEnv = "UPSTREAM_API_KEY"
)

// DefaultExampleAddresses are suggested on the search page.
var DefaultExampleAddresses = []string{
	"0x4838b106fce9647bdf1e7877bf73ce8b0bad5f97",
	"0xdadb0d80178819f2319190d340ce9a924f783711",
	"0x95222290dd7278aa3ddd389cc1e1d165cc4bafe5",
	"0x18bb896994283bd9c16aa2072777a97c12f1b290",
}

type Config struct {
	ListenAddr       string
	Upstream         UpstreamConfig
	PageSize         int
	MaxViews         int
	Form             FormConfig
	ExportWALDir     string
	Log              LogConfig
	Tracing          TracingConfig
	TLS              TLSConfig
	ExampleAddresses []string
}

type UpstreamConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	// RateLimit is the max requests per second to the provider, 0 means unlimited.
	RateLimit float64
	Burst     int
}

// TLSConfig enables HTTPS with ACME certificates when Domains is not empty.
type TLSConfig struct {
	Domains  []string
	CacheDir string
}

// TracingConfig points at an OTLP/gRPC collector. Tracing is off when Endpoint is empty.
type TracingConfig struct {
	Endpoint string
	Insecure bool
}

type FormConfig struct {
	PortalID string
	FormID   string
}

type LogConfig struct {
	Level  string
	Format string
}

type ConfigTmp struct {
	ListenAddr       string      `yaml:"listen_addr"`
	Upstream         UpstreamTmp `yaml:"upstream"`
	PageSizeStr      string      `yaml:"page_size,omitempty"`
	MaxViewsStr      string      `yaml:"max_views,omitempty"`
	Form             FormTmp     `yaml:"form"`
	ExportWALDir     string      `yaml:"export_wal_dir,omitempty"`
	Log              LogTmp      `yaml:"log"`
	Tracing          TracingTmp  `yaml:"tracing"`
	TLS              TLSTmp      `yaml:"tls"`
	ExampleAddresses []string    `yaml:"example_addresses,omitempty"`
}

type UpstreamTmp struct {
	URL       string        `yaml:"url"`
	APIKey    string        `yaml:"api_key,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	RateLimit float64       `yaml:"rate_limit,omitempty"`
	Burst     int           `yaml:"burst,omitempty"`
}

type TLSTmp struct {
	Domains  []string `yaml:"domains,omitempty"`
	CacheDir string   `yaml:"cache_dir,omitempty"`
}

type TracingTmp struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty"`
}

type FormTmp struct {
	PortalID string `yaml:"portal_id,omitempty"`
	FormID   string `yaml:"form_id,omitempty"`
}

type LogTmp struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Get reads configuration from --config yaml file or, without it, from command-line flags.
func Get() (Config, error) {
	return parse(os.Args[1:])
}

func parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("stakeview", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to yaml config")
	listen := fs.String("listen", defaultListenAddr, "http listen address, example: :8080")
	upstreamURL := fs.String("upstream", "", "balances provider endpoint")
	timeout := fs.Duration("upstreamtimeout", defaultTimeout, "balances provider request timeout")
	pageSize := fs.Int("pagesize", pager.DefaultPageSize, "default rows per page, one of 10, 25, 50, 100, 200")
	maxViews := fs.Int("maxviews", defaultMaxViews, "max dashboard views kept in memory")
	walDir := fs.String("exportwal", defaultExportWALDir, "directory of the export audit log")
	logLevel := fs.String("loglevel", "info", "log level: debug, info, warn, error")
	logFormat := fs.String("logformat", "json", "log format: json or console")
	rateLimit := fs.Float64("ratelimit", 0, "max upstream requests per second, 0 for unlimited")
	burst := fs.Int("burst", 1, "upstream rate limiter burst")
	otlpEndpoint := fs.String("otlp", "", "OTLP/gRPC collector endpoint, empty disables tracing")
	otlpInsecure := fs.Bool("otlpinsecure", false, "use plaintext gRPC for the OTLP collector")
	tlsDomains := fs.String("tlsdomains", "", "comma separated domains for automatic TLS, empty serves plain HTTP")
	tlsCache := fs.String("tlscache", defaultCertCacheDir, "directory for ACME certificates")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *configPath != "" {
		return getYaml(*configPath)
	}

	cfg := Config{
		ListenAddr: *listen,
		Upstream: UpstreamConfig{
			URL:       *upstreamURL,
			APIKey:    os.Getenv(upstreamAPIKeyEnv),
			Timeout:   *timeout,
			RateLimit: *rateLimit,
			Burst:     *burst,
		},
		PageSize:         *pageSize,
		MaxViews:         *maxViews,
		Form:             FormConfig{PortalID: defaultPortalID, FormID: defaultFormID},
		ExportWALDir:     *walDir,
		Log:              LogConfig{Level: *logLevel, Format: *logFormat},
		Tracing:          TracingConfig{Endpoint: *otlpEndpoint, Insecure: *otlpInsecure},
		TLS:              TLSConfig{Domains: splitList(*tlsDomains), CacheDir: *tlsCache},
		ExampleAddresses: DefaultExampleAddresses,
	}
	return cfg, validate(cfg)
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return fromYaml(f)
}

func fromYaml(data []byte) (Config, error) {
	var c ConfigTmp
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr: c.ListenAddr,
		Upstream: UpstreamConfig{
			URL:       c.Upstream.URL,
			APIKey:    c.Upstream.APIKey,
			Timeout:   c.Upstream.Timeout,
			RateLimit: c.Upstream.RateLimit,
			Burst:     c.Upstream.Burst,
		},
		Form:             FormConfig{PortalID: c.Form.PortalID, FormID: c.Form.FormID},
		ExportWALDir:     c.ExportWALDir,
		Log:              LogConfig{Level: c.Log.Level, Format: c.Log.Format},
		Tracing:          TracingConfig{Endpoint: c.Tracing.Endpoint, Insecure: c.Tracing.Insecure},
		TLS:              TLSConfig{Domains: c.TLS.Domains, CacheDir: c.TLS.CacheDir},
		ExampleAddresses: c.ExampleAddresses,
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if key := os.Getenv(upstreamAPIKeyEnv); key != "" {
		cfg.Upstream.APIKey = key
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = defaultTimeout
	}
	if cfg.Upstream.Burst == 0 {
		cfg.Upstream.Burst = 1
	}

	if c.PageSizeStr == "" {
		cfg.PageSize = pager.DefaultPageSize
	} else {
		pageSize, err := strconv.Atoi(c.PageSizeStr)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'page_size' param in yaml config (must be an integer), error: %w", err)
		}
		cfg.PageSize = pageSize
	}

	if c.MaxViewsStr == "" {
		cfg.MaxViews = defaultMaxViews
	} else {
		maxViews, err := strconv.Atoi(c.MaxViewsStr)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'max_views' param in yaml config (must be an integer), error: %w", err)
		}
		cfg.MaxViews = maxViews
	}

	if cfg.Form.PortalID == "" {
		cfg.Form.PortalID = defaultPortalID
	}
	if cfg.Form.FormID == "" {
		cfg.Form.FormID = defaultFormID
	}
	if cfg.ExportWALDir == "" {
		cfg.ExportWALDir = defaultExportWALDir
	}
	if cfg.TLS.CacheDir == "" {
		cfg.TLS.CacheDir = defaultCertCacheDir
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if len(cfg.ExampleAddresses) == 0 {
		cfg.ExampleAddresses = DefaultExampleAddresses
	}

	return cfg, validate(cfg)
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.Upstream.URL) == "" {
		return fmt.Errorf("upstream url is required")
	}
	if !pager.IsAllowedSize(cfg.PageSize) {
		return fmt.Errorf("invalid page size %d, allowed: %v", cfg.PageSize, pager.AllowedSizes)
	}
	if cfg.MaxViews < 1 {
		return fmt.Errorf("invalid max views %d, must be positive", cfg.MaxViews)
	}
	if cfg.Upstream.Timeout < 0 {
		return fmt.Errorf("invalid upstream timeout %s", cfg.Upstream.Timeout)
	}
	if cfg.Upstream.RateLimit < 0 {
		return fmt.Errorf("invalid upstream rate limit %v, must not be negative", cfg.Upstream.RateLimit)
	}
	if cfg.Upstream.RateLimit > 0 && cfg.Upstream.Burst < 1 {
		return fmt.Errorf("invalid upstream burst %d, must be positive", cfg.Upstream.Burst)
	}
	switch cfg.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q, must be json or console", cfg.Log.Format)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
