package types

import "time"

// Default values applied by DefaultConfig.
const (
	DefaultCatalogURL      = "https://libgen.li"
	DefaultUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.6422.60 Safari/537.36"
	DefaultTimeout         = 60 * time.Second
	DefaultDownloadTimeout = 10 * time.Minute
	DefaultMaxResults      = 100
	DefaultQueryDelay      = 1 * time.Second
	DefaultDownloadDir     = "downloads"
	DefaultLedgerPath      = "downloads/ledger.db"
	DefaultEmptyRetryDelay = 10 * time.Second
)

// DefaultFormats is the preferred format order when none is configured.
var DefaultFormats = []string{"epub", "pdf", "mobi"}

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds every catalog and mirror page request.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests. The
	// catalog rejects obvious bot agents, so the default mimics a browser.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// CatalogConfig holds settings for the catalog search client and mirror resolver.
type CatalogConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the catalog origin, e.g. "https://libgen.li".
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// MaxResults caps the rows requested per search (default 100).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// RequestsPerSecond throttles catalog and mirror page requests. Zero
	// disables throttling.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`

	// DebugDir, when set, receives the raw HTML of the last search and
	// mirror page for post-hoc inspection.
	DebugDir string `json:"debug_dir,omitempty" yaml:"debug_dir,omitempty" mapstructure:"debug_dir"`
}

// AcquisitionConfig holds settings for the download stage.
type AcquisitionConfig struct {
	// DownloadTimeout bounds a single file stream, headers to last byte.
	DownloadTimeout time.Duration `json:"download_timeout" yaml:"download_timeout" mapstructure:"download_timeout"`

	// DownloadDir receives downloaded books.
	DownloadDir string `json:"download_dir" yaml:"download_dir" mapstructure:"download_dir"`

	// PreferredFormats lists acceptable formats, most wanted first.
	PreferredFormats []string `json:"preferred_formats" yaml:"preferred_formats" mapstructure:"preferred_formats"`

	// QueryDelay is the pause between consecutive search queries (default 1s).
	QueryDelay time.Duration `json:"query_delay" yaml:"query_delay" mapstructure:"query_delay"`

	// WriteMetadata writes a YAML sidecar next to every downloaded file.
	WriteMetadata bool `json:"write_metadata" yaml:"write_metadata" mapstructure:"write_metadata"`
}

// LedgerConfig locates the already-acquired ledger.
type LedgerConfig struct {
	// Path is the SQLite database file.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// DeliveryMethod selects how acquired books reach the reading device.
type DeliveryMethod string

const (
	DeliveryNone  DeliveryMethod = "none"
	DeliveryDir   DeliveryMethod = "dir"
	DeliveryEmail DeliveryMethod = "email"
)

// DeliveryConfig holds settings for sending books to a reading device.
type DeliveryConfig struct {
	Method DeliveryMethod `json:"method" yaml:"method" mapstructure:"method"`

	// Dir is the device folder used by the dir method (e.g. a mounted
	// Kindle's documents directory).
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty" mapstructure:"dir"`

	SMTPHost     string `json:"smtp_host,omitempty" yaml:"smtp_host,omitempty" mapstructure:"smtp_host"`
	SMTPPort     int    `json:"smtp_port,omitempty" yaml:"smtp_port,omitempty" mapstructure:"smtp_port"`
	SMTPUsername string `json:"smtp_username,omitempty" yaml:"smtp_username,omitempty" mapstructure:"smtp_username"`
	SMTPPassword string `json:"-" yaml:"-" mapstructure:"smtp_password"`

	// From must be on the device's approved sender list.
	From string `json:"from,omitempty" yaml:"from,omitempty" mapstructure:"from"`

	// To is the device address, e.g. "name@kindle.com".
	To string `json:"to,omitempty" yaml:"to,omitempty" mapstructure:"to"`

	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout"`
}

// BatchConfig holds settings for wishlist batch runs.
type BatchConfig struct {
	// Wishlist is a YAML or saved HTML wishlist file.
	Wishlist string `json:"wishlist" yaml:"wishlist" mapstructure:"wishlist"`

	// EmptyRetryDelay is how long to wait before re-reading a wishlist
	// that returned no books. Zero disables the retry.
	EmptyRetryDelay time.Duration `json:"empty_retry_delay" yaml:"empty_retry_delay" mapstructure:"empty_retry_delay"`

	// Interval repeats the batch on this period. Zero runs once.
	Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "console" or "json".
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all settings for the fetcher.
type Config struct {
	Catalog     CatalogConfig     `json:"catalog" yaml:"catalog" mapstructure:"catalog"`
	Acquisition AcquisitionConfig `json:"acquisition" yaml:"acquisition" mapstructure:"acquisition"`
	Ledger      LedgerConfig      `json:"ledger" yaml:"ledger" mapstructure:"ledger"`
	Delivery    DeliveryConfig    `json:"delivery" yaml:"delivery" mapstructure:"delivery"`
	Batch       BatchConfig       `json:"batch" yaml:"batch" mapstructure:"batch"`
	Log         LogConfig         `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultConfig returns a Config populated with working defaults.
func DefaultConfig() Config {
	return Config{
		Catalog: CatalogConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   DefaultTimeout,
				UserAgent: DefaultUserAgent,
			},
			BaseURL:           DefaultCatalogURL,
			MaxResults:        DefaultMaxResults,
			RequestsPerSecond: 2,
		},
		Acquisition: AcquisitionConfig{
			DownloadTimeout:  DefaultDownloadTimeout,
			DownloadDir:      DefaultDownloadDir,
			PreferredFormats: append([]string(nil), DefaultFormats...),
			QueryDelay:       DefaultQueryDelay,
		},
		Ledger: LedgerConfig{Path: DefaultLedgerPath},
		Delivery: DeliveryConfig{
			Method:   DeliveryNone,
			SMTPPort: 587,
			Timeout:  DefaultTimeout,
		},
		Batch: BatchConfig{EmptyRetryDelay: DefaultEmptyRetryDelay},
		Log:   LogConfig{Level: "info", Format: "console"},
	}
}
