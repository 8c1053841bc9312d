package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"arns/crypto"
	"arns/native/auction"
	"arns/native/demand"
	"arns/native/fees"
	"arns/native/names"

	"github.com/BurntSushi/toml"
)

const (
	DefaultNetworkName = "arns-local"
	DefaultDataDir     = "./arns-data"
	// treasuryLabel seeds the treasury address of freshly created configs.
	treasuryLabel = "arns-treasury"
)

type Config struct {
	NetworkName           string                 `toml:"NetworkName"`
	DataDir               string                 `toml:"DataDir"`
	Treasury              string                 `toml:"Treasury"`
	PeriodZeroBlockHeight uint64                 `toml:"PeriodZeroBlockHeight"`
	Registry              Registry               `toml:"registry"`
	Pricing               Pricing                `toml:"pricing"`
	Fees                  *fees.Schedule         `toml:"fees"`
	Demand                Demand                 `toml:"demand"`
	Auction               Auction                `toml:"auction"`
	Pauses                Pauses                 `toml:"pauses"`
	Balances              map[string]string      `toml:"balances,omitempty"`
	Reserved              map[string]Reservation `toml:"reserved,omitempty"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}

	cfg.normalize()
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the genesis configuration with every section populated.
func Default() *Config {
	cfg := &Config{
		NetworkName: DefaultNetworkName,
		DataDir:     DefaultDataDir,
		Treasury:    crypto.DeriveAddress(treasuryLabel).String(),
	}
	cfg.normalize()
	return cfg
}

// normalize fills every unset value with the engine defaults.
func (c *Config) normalize() {
	if strings.TrimSpace(c.NetworkName) == "" {
		c.NetworkName = DefaultNetworkName
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = DefaultDataDir
	}
	c.Treasury = strings.TrimSpace(c.Treasury)

	rules := names.DefaultConfig(crypto.Address{})
	if c.Registry.GracePeriodSeconds == 0 {
		c.Registry.GracePeriodSeconds = rules.GracePeriod
	}
	if c.Registry.DefaultUndernames == 0 {
		c.Registry.DefaultUndernames = rules.DefaultUndernames
	}
	if c.Registry.MaxUndernames == 0 {
		c.Registry.MaxUndernames = rules.MaxUndernames
	}
	if c.Registry.MaxLeaseYears == 0 {
		c.Registry.MaxLeaseYears = rules.MaxLeaseYears
	}
	if c.Registry.MinimumNameLength == 0 {
		c.Registry.MinimumNameLength = rules.MinimumNameLength
	}

	params := fees.DefaultParams()
	defaultString(&c.Pricing.AnnualPercentageFee, decimalString(params.AnnualPercentageFee))
	defaultString(&c.Pricing.UndernameLeasePercentage, decimalString(params.UndernameLeasePercentage))
	defaultString(&c.Pricing.UndernamePermabuyPercentage, decimalString(params.UndernamePermabuyPercentage))
	if c.Pricing.PermabuyLeaseYears == 0 {
		c.Pricing.PermabuyLeaseYears = params.PermabuyLeaseYears
	}
	if c.Pricing.SecondsPerYear == 0 {
		c.Pricing.SecondsPerYear = params.SecondsPerYear
	}

	if c.Fees.MaxNameLength() == 0 {
		c.Fees = fees.DefaultSchedule()
	}

	settings := demand.DefaultSettings()
	if c.Demand.PeriodBlockLength == 0 {
		c.Demand.PeriodBlockLength = settings.PeriodBlockLength
	}
	defaultString(&c.Demand.BaseFactor, decimalString(settings.BaseFactor))
	defaultString(&c.Demand.MinFactor, decimalString(settings.MinFactor))
	defaultString(&c.Demand.UpAdjustment, decimalString(settings.UpAdjustment))
	defaultString(&c.Demand.DownAdjustment, decimalString(settings.DownAdjustment))
	defaultString(&c.Demand.Criteria, string(settings.Criteria))
	defaultString(&c.Demand.Baseline, string(settings.Baseline))

	auctionSettings := auction.DefaultSettings()
	defaultString(&c.Auction.SettingsID, auctionSettings.ID)
	if c.Auction.DecayInterval == 0 {
		c.Auction.DecayInterval = auctionSettings.DecayInterval
	}
	if c.Auction.Duration == 0 {
		c.Auction.Duration = auctionSettings.AuctionDuration
	}
	defaultString(&c.Auction.DecayRate, decimalString(auctionSettings.DecayRate))
	defaultString(&c.Auction.FloorPriceMultiplier, decimalString(auctionSettings.FloorPriceMultiplier))
	defaultString(&c.Auction.StartPriceMultiplier, decimalString(auctionSettings.StartPriceMultiplier))

	if c.Balances == nil {
		c.Balances = map[string]string{}
	}
	if c.Reserved == nil {
		c.Reserved = map[string]Reservation{}
	}
}

func defaultString(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
		return
	}
	*field = strings.TrimSpace(*field)
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
