package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const appName = "mapscrape"

type Config struct {
	Extraction ExtractionConfig `mapstructure:"extraction"`
	YouTube    YouTubeConfig    `mapstructure:"youtube"`
	Feed       FeedConfig       `mapstructure:"feed"`
	Network    NetworkConfig    `mapstructure:"network"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	Output     OutputConfig     `mapstructure:"output"`
	Parallel   ParallelConfig   `mapstructure:"parallel"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ExtractionConfig struct {
	MaxChars        int    `mapstructure:"max_chars"`
	MinChars        int    `mapstructure:"min_chars"`
	Timeout         int    `mapstructure:"timeout"`
	MaxBytes        int64  `mapstructure:"max_bytes"`
	EnableJS        string `mapstructure:"enable_javascript"`
	JSTimeout       int    `mapstructure:"js_timeout"`
	WaitForSelector string `mapstructure:"wait_for_selector"`
}

type YouTubeConfig struct {
	Languages       []string `mapstructure:"languages"`
	MetadataTimeout int      `mapstructure:"metadata_timeout"`
	Timeout         int      `mapstructure:"timeout"`
}

type FeedConfig struct {
	MaxItems int   `mapstructure:"max_items"`
	Timeout  int   `mapstructure:"timeout"`
	MaxBytes int64 `mapstructure:"max_bytes"`
}

type NetworkConfig struct {
	UserAgent         string `mapstructure:"user_agent"`
	BrowserAgent      string `mapstructure:"browser_agent"`
	FollowRedirects   bool   `mapstructure:"follow_redirects"`
	MaxRedirects      int    `mapstructure:"max_redirects"`
	ValidateRedirects bool   `mapstructure:"validate_redirects"`
	Delay             int    `mapstructure:"delay"`
}

type BrowserConfig struct {
	Cookies bool                 `mapstructure:"cookies"`
	Default string               `mapstructure:"default"`
	Domains BrowserCookiesConfig `mapstructure:"domains"`
}

type BrowserCookiesConfig struct {
	Include []string `mapstructure:"include"`
	Exclude []string `mapstructure:"exclude"`
}

type OutputConfig struct {
	DefaultFormat   string `mapstructure:"default_format"`
	LineWidth       int    `mapstructure:"line_width"`
	Separator       string `mapstructure:"separator"`
	NullSeparator   bool   `mapstructure:"null_separator"`
	IncludeMetadata bool   `mapstructure:"include_metadata"`
}

type ParallelConfig struct {
	MaxConcurrency int  `mapstructure:"max_concurrency"`
	FailFast       bool `mapstructure:"fail_fast"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func Default() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			MaxChars:        48000,
			MinChars:        200,
			Timeout:         25,
			MaxBytes:        5 * 1024 * 1024,
			EnableJS:        "never",
			JSTimeout:       15,
			WaitForSelector: "",
		},
		YouTube: YouTubeConfig{
			Languages:       []string{"en"},
			MetadataTimeout: 10,
			Timeout:         25,
		},
		Feed: FeedConfig{
			MaxItems: 20,
			Timeout:  25,
			MaxBytes: 10 * 1024 * 1024,
		},
		Network: NetworkConfig{
			UserAgent:         "",
			BrowserAgent:      "",
			FollowRedirects:   true,
			MaxRedirects:      10,
			ValidateRedirects: false,
			Delay:             0,
		},
		Browser: BrowserConfig{
			Cookies: false,
			Default: "auto",
			Domains: BrowserCookiesConfig{
				Include: []string{"*"},
				Exclude: []string{},
			},
		},
		Output: OutputConfig{
			DefaultFormat:   "json",
			LineWidth:       80,
			Separator:       "---",
			NullSeparator:   false,
			IncludeMetadata: true,
		},
		Parallel: ParallelConfig{
			MaxConcurrency: 1,
			FailFast:       true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/mapscrape/config.toml, falling back to
// ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("error finding home directory: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, appName, "config.toml"), nil
}

// Load reads configFile (or the default location when empty) on top of the
// defaults and applies MAPSCRAPE_* environment overrides, e.g.
// MAPSCRAPE_EXTRACTION_MAX_CHARS. A missing default config file is not an error.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v, cfg)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		path, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error, we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return cfg, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during
// Unmarshal even when the config file does not mention it.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("extraction.max_chars", cfg.Extraction.MaxChars)
	v.SetDefault("extraction.min_chars", cfg.Extraction.MinChars)
	v.SetDefault("extraction.timeout", cfg.Extraction.Timeout)
	v.SetDefault("extraction.max_bytes", cfg.Extraction.MaxBytes)
	v.SetDefault("extraction.enable_javascript", cfg.Extraction.EnableJS)
	v.SetDefault("extraction.js_timeout", cfg.Extraction.JSTimeout)
	v.SetDefault("extraction.wait_for_selector", cfg.Extraction.WaitForSelector)

	v.SetDefault("youtube.languages", cfg.YouTube.Languages)
	v.SetDefault("youtube.metadata_timeout", cfg.YouTube.MetadataTimeout)
	v.SetDefault("youtube.timeout", cfg.YouTube.Timeout)

	v.SetDefault("feed.max_items", cfg.Feed.MaxItems)
	v.SetDefault("feed.timeout", cfg.Feed.Timeout)
	v.SetDefault("feed.max_bytes", cfg.Feed.MaxBytes)

	v.SetDefault("network.user_agent", cfg.Network.UserAgent)
	v.SetDefault("network.browser_agent", cfg.Network.BrowserAgent)
	v.SetDefault("network.follow_redirects", cfg.Network.FollowRedirects)
	v.SetDefault("network.max_redirects", cfg.Network.MaxRedirects)
	v.SetDefault("network.validate_redirects", cfg.Network.ValidateRedirects)
	v.SetDefault("network.delay", cfg.Network.Delay)

	v.SetDefault("browser.cookies", cfg.Browser.Cookies)
	v.SetDefault("browser.default", cfg.Browser.Default)
	v.SetDefault("browser.domains.include", cfg.Browser.Domains.Include)
	v.SetDefault("browser.domains.exclude", cfg.Browser.Domains.Exclude)

	v.SetDefault("output.default_format", cfg.Output.DefaultFormat)
	v.SetDefault("output.line_width", cfg.Output.LineWidth)
	v.SetDefault("output.separator", cfg.Output.Separator)
	v.SetDefault("output.null_separator", cfg.Output.NullSeparator)
	v.SetDefault("output.include_metadata", cfg.Output.IncludeMetadata)

	v.SetDefault("parallel.max_concurrency", cfg.Parallel.MaxConcurrency)
	v.SetDefault("parallel.fail_fast", cfg.Parallel.FailFast)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
}

func (c *Config) CreateExampleConfig(configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	exampleContent := `# mapscrape configuration file

[extraction]
max_chars = 48000          # Content budget in characters before truncation
min_chars = 200            # Minimum readable text for articles and feeds
timeout = 25               # Article fetch timeout in seconds
max_bytes = 5242880        # Largest article page accepted (5MB)

# JavaScript rendering for articles
enable_javascript = "never"  # never, auto, always
js_timeout = 15              # seconds to wait for JS execution
wait_for_selector = ""       # CSS selector to wait for (optional)

[youtube]
languages = ["en"]         # Caption language preference, in order
metadata_timeout = 10      # oEmbed lookup timeout in seconds
timeout = 25               # Transcript fetch timeout in seconds

[feed]
max_items = 20             # Entries kept from the top of a feed
timeout = 25               # seconds
max_bytes = 10485760       # Largest feed document accepted (10MB)

[network]
user_agent = ""            # Custom user agent (empty = HistoryMapBot)
browser_agent = ""         # chrome, firefox, safari, edge, auto (empty = bot agent)
follow_redirects = true
max_redirects = 10
validate_redirects = false # Re-check every redirect target against the URL rules

# Rate limiting
delay = 0                  # seconds between requests (for multiple URLs)

[browser]
cookies = false            # Send browser cookies with article requests
default = "auto"           # auto, chrome, firefox, safari, zen

[browser.domains]
include = ["*"]            # Domains that receive cookies
exclude = []               # Domains that never receive cookies

[output]
default_format = "json"    # json, yaml, text, markdown
line_width = 80            # Max line width for text output (0 = unlimited)
separator = "---"          # Separator between multiple URL outputs
null_separator = false     # Use null bytes as separators
include_metadata = true    # Metadata lines in text and markdown output

[parallel]
max_concurrency = 1        # URLs extracted at the same time
fail_fast = true           # Stop on first error (--continue-on-error overrides)

[logging]
level = "info"             # debug, info, warn, error
file = ""                  # Log file path (empty = stderr only)
`

	return os.WriteFile(configPath, []byte(exampleContent), 0644)
}
