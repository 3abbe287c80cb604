package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/spf13/viper"

	"vesting-project/models"
)

// Config is the full service configuration, read from config/config.yaml
// with VESTING_* environment overrides.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	LevelDB LevelDBConfig `mapstructure:"leveldb"`
	Vesting VestingConfig `mapstructure:"vesting"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	AppLogFile string `mapstructure:"app_log_file"`
	Level      string `mapstructure:"level"`
}

type LevelDBConfig struct {
	Path string `mapstructure:"path"`
}

// VestingConfig holds the token amounts in whole tokens; Decimals scales them to base units.
type VestingConfig struct {
	Owner          string             `mapstructure:"owner"`
	CustodyAddress string             `mapstructure:"custody_address"`
	Decimals       uint               `mapstructure:"decimals"`
	TotalSupply    string             `mapstructure:"total_supply"`
	PrivateRound   PrivateRoundConfig `mapstructure:"private_round"`
	Rounds         []RoundConfig      `mapstructure:"rounds"`
	Grants         []GrantConfig      `mapstructure:"grants"`
}

type PrivateRoundConfig struct {
	Cap             string        `mapstructure:"cap"`
	VestingDuration time.Duration `mapstructure:"vesting_duration"`
}

type RoundConfig struct {
	Name            string         `mapstructure:"name"`
	Beneficiary     string         `mapstructure:"beneficiary"`
	TotalAllocation string         `mapstructure:"total_allocation"`
	InitialUnlock   FractionConfig `mapstructure:"initial_unlock"`
	CliffDuration   time.Duration  `mapstructure:"cliff_duration"`
	VestingDuration time.Duration  `mapstructure:"vesting_duration"`
}

type FractionConfig struct {
	Numerator   uint64 `mapstructure:"numerator"`
	Denominator uint64 `mapstructure:"denominator"`
}

type GrantConfig struct {
	Beneficiary string `mapstructure:"beneficiary"`
	Amount      string `mapstructure:"amount"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("leveldb.path", "data/vesting")
	v.SetDefault("vesting.decimals", 18)
}

// Load reads and validates the configuration file at path
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix("VESTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the service settings and the genesis, including that the
// supply covers every round, the private round cap and all grants.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.LevelDB.Path == "" {
		return fmt.Errorf("leveldb.path is required")
	}
	if _, err := models.NormalizeAddress(c.Vesting.Owner); err != nil {
		return fmt.Errorf("vesting.owner: %w", err)
	}
	if _, err := models.NormalizeAddress(c.Vesting.CustodyAddress); err != nil {
		return fmt.Errorf("vesting.custody_address: %w", err)
	}

	g, err := c.Genesis()
	if err != nil {
		return err
	}
	if err := g.ValidatePayees(c.Custody()); err != nil {
		return err
	}
	return g.Validate()
}

// Owner returns the normalized owner address
func (c *Config) Owner() string {
	return strings.ToLower(c.Vesting.Owner)
}

// Custody returns the normalized custody address
func (c *Config) Custody() string {
	return strings.ToLower(c.Vesting.CustodyAddress)
}

// Genesis converts the vesting section into base-unit records
func (c *Config) Genesis() (*models.Genesis, error) {
	vc := c.Vesting

	supply, err := ToBaseUnits(vc.TotalSupply, vc.Decimals)
	if err != nil {
		return nil, fmt.Errorf("vesting.total_supply: %w", err)
	}
	privateCap, err := ToBaseUnits(vc.PrivateRound.Cap, vc.Decimals)
	if err != nil {
		return nil, fmt.Errorf("vesting.private_round.cap: %w", err)
	}
	privateDuration, err := seconds(vc.PrivateRound.VestingDuration)
	if err != nil {
		return nil, fmt.Errorf("vesting.private_round.vesting_duration: %w", err)
	}

	g := &models.Genesis{
		TotalSupply:            supply,
		PrivateRoundCap:        privateCap,
		PrivateVestingDuration: privateDuration,
	}

	for i, rc := range vc.Rounds {
		beneficiary, err := models.NormalizeAddress(rc.Beneficiary)
		if err != nil {
			return nil, fmt.Errorf("vesting.rounds[%d].beneficiary: %w", i, err)
		}
		total, err := ToBaseUnits(rc.TotalAllocation, vc.Decimals)
		if err != nil {
			return nil, fmt.Errorf("vesting.rounds[%d].total_allocation: %w", i, err)
		}
		cliff, err := seconds(rc.CliffDuration)
		if err != nil {
			return nil, fmt.Errorf("vesting.rounds[%d].cliff_duration: %w", i, err)
		}
		duration, err := seconds(rc.VestingDuration)
		if err != nil {
			return nil, fmt.Errorf("vesting.rounds[%d].vesting_duration: %w", i, err)
		}

		g.Rounds = append(g.Rounds, models.FixedRoundRecord{
			Index:       i,
			Name:        rc.Name,
			Beneficiary: beneficiary,
			Parameters: models.VestingParameters{
				TotalAllocation: total,
				InitialUnlock:   models.Fraction{Numerator: rc.InitialUnlock.Numerator, Denominator: rc.InitialUnlock.Denominator},
				CliffDuration:   cliff,
				VestingDuration: duration,
			},
		})
	}

	for i, gc := range vc.Grants {
		beneficiary, err := models.NormalizeAddress(gc.Beneficiary)
		if err != nil {
			return nil, fmt.Errorf("vesting.grants[%d].beneficiary: %w", i, err)
		}
		amount, err := ToBaseUnits(gc.Amount, vc.Decimals)
		if err != nil {
			return nil, fmt.Errorf("vesting.grants[%d].amount: %w", i, err)
		}
		g.Grants = append(g.Grants, models.Grant{Beneficiary: beneficiary, Amount: amount})
	}

	return g, nil
}

// ToBaseUnits converts a whole-token decimal string to base units
func ToBaseUnits(amount string, decimals uint) (*big.Int, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(amount), 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidAmount, amount)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q is negative", models.ErrInvalidAmount, amount)
	}
	multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return value.Mul(value, multiplier), nil
}

func seconds(d time.Duration) (uint64, error) {
	if d < 0 {
		return 0, fmt.Errorf("%w: negative duration %s", models.ErrInvalidSchedule, d)
	}
	if d%time.Second != 0 {
		return 0, fmt.Errorf("%w: %s is not a whole number of seconds", models.ErrInvalidSchedule, d)
	}
	return uint64(d / time.Second), nil
}
