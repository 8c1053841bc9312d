package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"arns/crypto"
	"arns/native/demand"
	"arns/native/fees"

	"github.com/stretchr/testify/require"
)

var testTreasury = crypto.DeriveAddress("config-test-treasury")

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadCreatesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DefaultNetworkName, cfg.NetworkName)
	require.Equal(t, "0.2", cfg.Pricing.AnnualPercentageFee)
	require.Equal(t, "0.025", cfg.Demand.DownAdjustment)
	require.Equal(t, "0.02", cfg.Auction.DecayRate)
	require.Equal(t, fees.DefaultMaxNameLength, cfg.Fees.MaxNameLength())

	_, err = os.Stat(path)
	require.NoError(t, err)

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
}

func TestLoadParsesSections(t *testing.T) {
	target := crypto.DeriveAddress("reserved-target")
	path := writeConfig(t, `NetworkName = "testnet"
DataDir = "./data"
Treasury = "`+testTreasury.String()+`"
PeriodZeroBlockHeight = 1440

[registry]
GracePeriodSeconds = 86400
MaxLeaseYears = 3
ShortNameUnlockTimestamp = 1700000000

[pricing]
AnnualPercentageFee = "0.25"

[fees]
"1-13" = 1_000_000
"14-51" = 100_000

[demand]
PeriodBlockLength = 100
DownAdjustment = "1/40"
Baseline = "Moving-Average"

[auction]
SettingsID = "fast"
DecayRate = "0.05"

[pauses]
Names = true

[balances]
"`+testTreasury.String()+`" = "1_000_000_000_000"

[reserved.brand]
Target = "`+target.String()+`"
EndTimestamp = 1800000000
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "testnet", cfg.NetworkName)
	require.Equal(t, uint64(1440), cfg.PeriodZeroBlockHeight)
	require.Equal(t, uint64(3), cfg.Registry.MaxLeaseYears)
	require.Equal(t, uint64(10), cfg.Registry.DefaultUndernames)

	runtime, err := cfg.Build()
	require.NoError(t, err)
	require.True(t, runtime.Names.Treasury.Equal(testTreasury))
	require.Equal(t, uint64(86400), runtime.Names.GracePeriod)
	require.Equal(t, 0, runtime.Names.Fees.AnnualPercentageFee.Cmp(big.NewRat(1, 4)))
	require.Equal(t, demand.BaselineMovingAverage, runtime.Names.Demand.Baseline)
	require.Equal(t, 0, runtime.Names.Demand.DownAdjustment.Cmp(big.NewRat(1, 40)))
	require.Equal(t, uint64(100), runtime.Genesis.Demand.PeriodBlockLength)
	require.Equal(t, "fast", runtime.Genesis.Auction.ID)
	require.True(t, runtime.Pauses.IsPaused("names"))

	fee, err := runtime.Genesis.Fees.BaseFee(20)
	require.NoError(t, err)
	require.Equal(t, int64(100_000), fee.Int64())
	require.Equal(t, 51, runtime.Genesis.Fees.MaxNameLength())

	balance := runtime.Genesis.Balances[testTreasury.String()]
	require.NotNil(t, balance)
	require.Equal(t, "1000000000000", balance.String())
	require.Equal(t, target.String(), runtime.Genesis.Reserved["brand"].Target)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `Treasury = "`+testTreasury.String()+`"
ListenAddress = ":6001"
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "ListenAddress")
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad treasury", func(c *Config) { c.Treasury = "nope" }, "Treasury"},
		{"lease years", func(c *Config) { c.Registry.MaxLeaseYears = MaxLeaseYearsCeiling + 1 }, "MaxLeaseYears"},
		{"undernames", func(c *Config) { c.Registry.MaxUndernames = 1 }, "MaxUndernames"},
		{"bad balance", func(c *Config) { c.Balances[testTreasury.String()] = "-5" }, "negative"},
		{"bad reservation", func(c *Config) { c.Reserved["brand"] = Reservation{Target: "zzz"} }, "invalid target"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Treasury = testTreasury.String()
			tc.mutate(cfg)
			require.ErrorContains(t, ValidateConfig(cfg), tc.errMsg)
		})
	}
}

func TestBuildRejectsInvalidRates(t *testing.T) {
	cfg := Default()
	cfg.Demand.MinFactor = "abc"
	_, err := cfg.Build()
	require.ErrorContains(t, err, "demand.MinFactor")

	cfg = Default()
	cfg.Auction.DecayRate = "1"
	_, err = cfg.Build()
	require.Error(t, err)
}

func TestLoadRejectsFeeGaps(t *testing.T) {
	path := writeConfig(t, `Treasury = "`+testTreasury.String()+`"

[fees]
"1" = 10
"3" = 10
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "missing fee for length 2")
}

func TestValidateRejectsEmptyFees(t *testing.T) {
	cfg := Default()
	cfg.Treasury = testTreasury.String()
	cfg.Fees = nil
	require.ErrorContains(t, ValidateConfig(cfg), "empty fee table")
}

func TestDefaultBuildMatchesEngineDefaults(t *testing.T) {
	runtime, err := Default().Build()
	require.NoError(t, err)
	require.Equal(t, 0, runtime.Names.Fees.AnnualPercentageFee.Cmp(fees.DefaultParams().AnnualPercentageFee))
	require.Equal(t, fees.DefaultSchedule().Tiers(), runtime.Genesis.Fees.Tiers())
	require.False(t, runtime.Pauses.IsPaused("names"))
}

func TestDecimalString(t *testing.T) {
	require.Equal(t, "0.025", decimalString(big.NewRat(1, 40)))
	require.Equal(t, "200", decimalString(big.NewRat(200, 1)))
	require.Equal(t, "1/3", decimalString(big.NewRat(1, 3)))
}
