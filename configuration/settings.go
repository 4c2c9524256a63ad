package configuration

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/util"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrMissing is returned when a required environment variable is not set.
	ErrMissing = errors.New("missing required environment variables")
	// ErrInvalid is returned when the environment variable has a malformed value.
	ErrInvalid = errors.New("invalid configuration")
)

const (
	privateKeyLength = 66
	addressLength    = 42
)

// Settings is the static configuration record, read once at startup.
type Settings struct {
	RPCURL         string
	CronAddress    common.Address
	TargetContract common.Address // zero when the workflow doesn't require it
	PrivateKey     string
	Frequency      uint64
	GasLimit       uint64
	GasPriceGwei   string
	GasPrice       *big.Int // wei
	DepositAmount  string
	Deposit        *big.Int // wei
	ValidityWeeks  uint64
	MaxRetries     int
	RetryDelay     time.Duration
	BlockTime      float64
	PollInterval   time.Duration
	TargetMethod   string
	DeploymentFile string
	LogLevel       string
}

// Requirement sets of the workflows
var (
	DeployRequires  = []string{PrivateKey}
	CreateRequires  = []string{PrivateKey, TargetContract}
	MonitorRequires = []string{PrivateKey, TargetContract}
)

// Settings validates the variables and returns the configuration record.
// The required names must be set either by the user or by default.
func (config *Config) Settings(required ...string) (Settings, error) {
	var missing []string
	for _, name := range required {
		if !config.Exist(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Settings{}, fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}

	settings := Settings{
		RPCURL:         strings.TrimSpace(config.GetString(RPCURL)),
		PrivateKey:     strings.TrimSpace(config.GetString(PrivateKey)),
		GasPriceGwei:   config.GetString(GasPrice),
		DepositAmount:  config.GetString(Deposit),
		TargetMethod:   config.GetString(TargetMethod),
		DeploymentFile: config.GetString(DeploymentFile),
		LogLevel:       config.GetString(LogLevel),
	}

	if err := ValidateRPCURL(settings.RPCURL); err != nil {
		return Settings{}, err
	}

	if settings.PrivateKey != "" {
		if err := ValidatePrivateKey(settings.PrivateKey); err != nil {
			return Settings{}, err
		}
	}

	cronAddress, err := ParseAddress(CronAddress, config.GetString(CronAddress))
	if err != nil {
		return Settings{}, err
	}
	settings.CronAddress = cronAddress

	// the workflow without the target ignores the placeholder, like the one
	// of .env.example before the first deployment
	if config.Exist(TargetContract) {
		target, err := ParseAddress(TargetContract, config.GetString(TargetContract))
		switch {
		case err == nil:
			settings.TargetContract = target
		case slices.Contains(required, TargetContract):
			return Settings{}, err
		default:
			config.logger.Warn("ignoring the invalid variable", "name", TargetContract, "error", err)
		}
	}

	if settings.Frequency, err = config.positive(Frequency); err != nil {
		return Settings{}, err
	}
	if settings.GasLimit, err = config.positive(GasLimit); err != nil {
		return Settings{}, err
	}
	if settings.ValidityWeeks, err = config.positive(ValidityWeeks); err != nil {
		return Settings{}, err
	}

	maxRetries, err := config.positive(MaxRetries)
	if err != nil {
		return Settings{}, err
	}
	settings.MaxRetries = int(maxRetries)

	retryDelay, err := config.positive(RetryDelay)
	if err != nil {
		return Settings{}, err
	}
	settings.RetryDelay = time.Duration(retryDelay) * time.Millisecond

	pollInterval, err := config.positive(PollInterval)
	if err != nil {
		return Settings{}, err
	}
	settings.PollInterval = time.Duration(pollInterval) * time.Second

	blockTime, err := strconv.ParseFloat(config.GetString(BlockTime), 64)
	if err != nil || blockTime <= 0 {
		return Settings{}, fmt.Errorf("%w: %s must be a positive number of seconds, got %q", ErrInvalid, BlockTime, config.GetString(BlockTime))
	}
	settings.BlockTime = blockTime

	if settings.GasPrice, err = util.ParseGwei(settings.GasPriceGwei); err != nil {
		return Settings{}, fmt.Errorf("%w: %s: %v", ErrInvalid, GasPrice, err)
	}
	if settings.Deposit, err = util.ParseEther(settings.DepositAmount); err != nil {
		return Settings{}, fmt.Errorf("%w: %s: %v", ErrInvalid, Deposit, err)
	}

	if settings.TargetMethod == "" {
		return Settings{}, fmt.Errorf("%w: %s can not be empty", ErrInvalid, TargetMethod)
	}

	return settings, nil
}

func (config *Config) positive(name string) (uint64, error) {
	raw := config.GetString(name)
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || value == 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalid, name, raw)
	}
	return value, nil
}

// ValidatePrivateKey checks that the key is 0x followed by 64 hex characters.
func ValidatePrivateKey(key string) error {
	if !strings.HasPrefix(key, "0x") || len(key) != privateKeyLength {
		return fmt.Errorf("%w: %s must start with 0x and be %d characters long", ErrInvalid, PrivateKey, privateKeyLength)
	}
	if _, err := hex.DecodeString(key[2:]); err != nil {
		return fmt.Errorf("%w: %s is not hex", ErrInvalid, PrivateKey)
	}
	return nil
}

// ValidateAddress checks that the address is 0x followed by 40 hex characters.
func ValidateAddress(name string, address string) error {
	if !strings.HasPrefix(address, "0x") || len(address) != addressLength {
		return fmt.Errorf("%w: %s must start with 0x and be %d characters long", ErrInvalid, name, addressLength)
	}
	if !common.IsHexAddress(address) {
		return fmt.Errorf("%w: %s is not hex", ErrInvalid, name)
	}
	return nil
}

// ParseAddress validates and converts the address.
func ParseAddress(name string, address string) (common.Address, error) {
	address = strings.TrimSpace(address)
	if err := ValidateAddress(name, address); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(address), nil
}

// ValidateRPCURL accepts http, https, ws and wss endpoints.
func ValidateRPCURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("%w: %s %q: %v", ErrInvalid, RPCURL, raw, err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
		return nil
	default:
		return fmt.Errorf("%w: %s protocol must be http, https, ws or wss, got %q", ErrInvalid, RPCURL, u.Scheme)
	}
}
