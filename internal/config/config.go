package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// AppConfig holds infrastructure config from standard env vars
type AppConfig struct {
	ConfigPath  string `envconfig:"CONFIG_PATH" default:"config.yaml"`
	OutputDir   string `envconfig:"OUTPUT_DIR" default:"."`
	DBPath      string `envconfig:"DB_PATH"` // empty disables the SQLite sink
	Environment string `envconfig:"APP_ENV" default:"development"`
	Headless    bool   `envconfig:"HEADLESS" default:"true"`
}

// SiteConfig holds all target-site specific settings (from YAML)
type SiteConfig struct {
	BaseURL       string     `yaml:"base_url"`
	Targets       []Target   `yaml:"targets"`
	Selectors     Selectors  `yaml:"selectors"`
	Pagination    Pagination `yaml:"pagination"`
	SkipMalformed bool       `yaml:"skip_malformed"`
}

// Target is one listing page and the file its products are written to.
type Target struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Output string `yaml:"output"`
}

type Selectors struct {
	CookieButton   string `yaml:"cookie_button"`
	LoadMore       string `yaml:"load_more"`
	ProductCard    string `yaml:"product_card"`
	Title          string `yaml:"title"`
	TitleAttr      string `yaml:"title_attr"`
	Description    string `yaml:"description"`
	Price          string `yaml:"price"`
	CurrencySymbol string `yaml:"currency_symbol"`
	Ratings        string `yaml:"ratings"`
	RatingMarker   string `yaml:"rating_marker"`
	ReviewCount    string `yaml:"review_count"`
}

// Pagination tunes the load-more loop. All waits are bounded.
type Pagination struct {
	NavigationTimeout   time.Duration `yaml:"navigation_timeout"`
	ConsentTimeout      time.Duration `yaml:"consent_timeout"`
	ControlTimeout      time.Duration `yaml:"control_timeout"`
	NewItemsTimeout     time.Duration `yaml:"new_items_timeout"`
	ClickPause          time.Duration `yaml:"click_pause"`
	MaxInterceptRetries int           `yaml:"max_intercept_retries"`
	RetryBackoff        time.Duration `yaml:"retry_backoff"`
	MaxRetryBackoff     time.Duration `yaml:"max_retry_backoff"`
}

const DefaultBaseURL = "https://webscraper.io/test-sites/e-commerce/more/"

// DefaultSiteConfig reproduces the scraper's built-in behavior for the
// webscraper.io "load more" demo shop.
func DefaultSiteConfig() *SiteConfig {
	return &SiteConfig{
		BaseURL: DefaultBaseURL,
		Targets: []Target{
			{Name: "home", Path: "", Output: "home.csv"},
			{Name: "computers", Path: "computers/", Output: "computers.csv"},
			{Name: "laptops", Path: "computers/laptops", Output: "laptops.csv"},
			{Name: "tablets", Path: "computers/tablets", Output: "tablets.csv"},
			{Name: "phones", Path: "phones/", Output: "phones.csv"},
			{Name: "touch", Path: "phones/touch", Output: "touch.csv"},
		},
		Selectors: Selectors{
			CookieButton:   ".acceptCookies",
			LoadMore:       "a.ecomerce-items-scroll-more",
			ProductCard:    ".product-wrapper.card-body",
			Title:          ".caption .title",
			TitleAttr:      "title",
			Description:    ".caption .description",
			Price:          ".caption .price",
			CurrencySymbol: "$",
			Ratings:        "div.ratings",
			RatingMarker:   "span.ws-icon-star",
			ReviewCount:    ".ratings .review-count",
		},
		Pagination: Pagination{
			NavigationTimeout:   15 * time.Second,
			ConsentTimeout:      2 * time.Second,
			ControlTimeout:      2 * time.Second,
			NewItemsTimeout:     5 * time.Second,
			ClickPause:          500 * time.Millisecond,
			MaxInterceptRetries: 5,
			RetryBackoff:        250 * time.Millisecond,
			MaxRetryBackoff:     2 * time.Second,
		},
	}
}

// GetAppConfig reads basic infrastructure settings from the environment,
// loading a local .env file first when one exists.
func GetAppConfig() (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("failed to load .env: %w", err)
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, nil
}

// LoadSiteConfig reads the YAML file on top of the built-in defaults.
// A missing file is not an error: the defaults are returned as-is.
func LoadSiteConfig(path string) (*SiteConfig, error) {
	cfg := DefaultSiteConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file at '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the scraper cannot run with.
func (c *SiteConfig) Validate() error {
	if _, err := url.Parse(c.BaseURL); err != nil || c.BaseURL == "" {
		return fmt.Errorf("invalid base_url %q", c.BaseURL)
	}
	if len(c.Targets) == 0 {
		return errors.New("no targets configured")
	}
	seen := make(map[string]bool, len(c.Targets))
	for _, t := range c.Targets {
		if t.Name == "" || t.Output == "" {
			return fmt.Errorf("target %q needs both a name and an output file", t.Name)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate target %q", t.Name)
		}
		seen[t.Name] = true
	}
	if c.Selectors.LoadMore == "" || c.Selectors.ProductCard == "" {
		return errors.New("selectors.load_more and selectors.product_card are required")
	}
	if c.Pagination.NavigationTimeout <= 0 {
		return errors.New("pagination.navigation_timeout must be positive")
	}
	if c.Pagination.MaxInterceptRetries < 0 {
		return errors.New("pagination.max_intercept_retries must not be negative")
	}
	return nil
}

// URL resolves the target path against the base URL the same way a browser
// resolves a relative link.
func (c *SiteConfig) URL(t Target) (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base_url %q: %w", c.BaseURL, err)
	}
	rel, err := url.Parse(t.Path)
	if err != nil {
		return "", fmt.Errorf("invalid path for target %q: %w", t.Name, err)
	}
	return base.ResolveReference(rel).String(), nil
}

// Filter keeps only the named targets, preserving configured order.
func (c *SiteConfig) Filter(names []string) ([]Target, error) {
	if len(names) == 0 {
		return c.Targets, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(strings.TrimSpace(n))] = true
	}
	var out []Target
	for _, t := range c.Targets {
		if want[t.Name] {
			out = append(out, t)
			delete(want, t.Name)
		}
	}
	if len(want) > 0 {
		unknown := make([]string, 0, len(want))
		for n := range want {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown target %q", unknown[0])
	}
	return out, nil
}
