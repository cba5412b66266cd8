// Package config loads run configuration from defaults, an optional config
// file and environment variables, in ascending precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ferrumhealth/assetsync/pkg/errors"
	"github.com/ferrumhealth/assetsync/pkg/reconcile"
)

// Keys understood in the config file and as ASSETSYNC_* environment
// variables.
const (
	KeyBaseURL     = "base_url"
	KeyAPIToken    = "api_token"
	KeyPageSize    = "page_size"
	KeyBackoffBase = "backoff_base"
	KeyRequestRate = "request_rate"
	KeyCacheTTL    = "cache_ttl"
	KeyMACSlots    = "mac_slots"

	KeyStatusPending              = "status.pending"
	KeyStatusDeployed             = "status.deployed"
	KeyStatusResearchCompliant    = "status.research_compliant"
	KeyStatusResearchNonCompliant = "status.research_noncompliant"

	KeyDefaultModel        = "defaults.model_id"
	KeyDefaultCategory     = "defaults.category_id"
	KeyDefaultFieldset     = "defaults.fieldset_id"
	KeyDefaultManufacturer = "defaults.manufacturer_id"

	KeyOUTableFile = "ou_table"
)

// Config is the resolved run configuration.
type Config struct {
	BaseURL  string
	APIToken string

	PageSize    int
	BackoffBase time.Duration
	RequestRate float64
	CacheTTL    time.Duration
	MACSlots    int

	StatusIDs reconcile.StatusIDs

	DefaultModelID        int
	DefaultCategoryID     int
	DefaultFieldsetID     int
	DefaultManufacturerID int

	// OUTableFile points at a CSV mapping directory OUs to departments and
	// labs; empty means no table.
	OUTableFile string
}

// SetDefaults installs the defaults for a standard deployment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPageSize, 500)
	v.SetDefault(KeyBackoffBase, "30s")
	v.SetDefault(KeyRequestRate, 10.0)
	v.SetDefault(KeyCacheTTL, "24h")
	v.SetDefault(KeyMACSlots, 4)

	ids := reconcile.DefaultStatusIDs()
	v.SetDefault(KeyStatusPending, ids.Pending)
	v.SetDefault(KeyStatusDeployed, ids.Deployed)
	v.SetDefault(KeyStatusResearchCompliant, ids.ResearchCompliant)
	v.SetDefault(KeyStatusResearchNonCompliant, ids.ResearchNonCompliant)

	v.SetDefault(KeyDefaultModel, 1)
	v.SetDefault(KeyDefaultCategory, 2)
	v.SetDefault(KeyDefaultFieldset, 2)
	v.SetDefault(KeyDefaultManufacturer, 1)
}

// Load resolves configuration: defaults, then the config file (when the
// path is non-empty), then ASSETSYNC_* environment variables.
func Load(file string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("ASSETSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "reading "+file, err)
		}
	}

	cfg := &Config{
		BaseURL:     strings.TrimRight(v.GetString(KeyBaseURL), "/"),
		APIToken:    v.GetString(KeyAPIToken),
		PageSize:    v.GetInt(KeyPageSize),
		BackoffBase: v.GetDuration(KeyBackoffBase),
		RequestRate: v.GetFloat64(KeyRequestRate),
		CacheTTL:    v.GetDuration(KeyCacheTTL),
		MACSlots:    v.GetInt(KeyMACSlots),
		StatusIDs: reconcile.StatusIDs{
			Pending:              v.GetInt(KeyStatusPending),
			Deployed:             v.GetInt(KeyStatusDeployed),
			ResearchCompliant:    v.GetInt(KeyStatusResearchCompliant),
			ResearchNonCompliant: v.GetInt(KeyStatusResearchNonCompliant),
		},
		DefaultModelID:        v.GetInt(KeyDefaultModel),
		DefaultCategoryID:     v.GetInt(KeyDefaultCategory),
		DefaultFieldsetID:     v.GetInt(KeyDefaultFieldset),
		DefaultManufacturerID: v.GetInt(KeyDefaultManufacturer),
		OUTableFile:           v.GetString(KeyOUTableFile),
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations that cannot produce a working client.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.NewConfigError("config", "base_url is required", nil)
	}
	if c.APIToken == "" {
		return errors.ErrAPITokenRequired
	}
	return nil
}

// GetString reads a key from viper, falling back to a literal environment
// variable of the same (uppercased) name.
func GetString(key string) string {
	if value := viper.GetString(key); value != "" {
		return value
	}
	return os.Getenv(strings.ToUpper(key))
}
