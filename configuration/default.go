package configuration

// The names of the environment variables
const (
	RPCURL         = "RPC_URL"
	CronAddress    = "CRON_ADDRESS"
	TargetContract = "TARGET_CONTRACT"
	PrivateKey     = "PRIVATE_KEY"
	Frequency      = "FREQUENCY"
	GasLimit       = "GAS_LIMIT"
	GasPrice       = "GAS_PRICE"
	Deposit        = "DEPOSIT"
	ValidityWeeks  = "VALIDITY_WEEKS"
	MaxRetries     = "MAX_RETRIES"
	RetryDelay     = "RETRY_DELAY"
	BlockTime      = "BLOCK_TIME"
	PollInterval   = "POLL_INTERVAL"
	TargetMethod   = "TARGET_METHOD"
	DeploymentFile = "DEPLOYMENT_FILE"
	LogLevel       = "LOG_LEVEL"
)

// DefaultConfig is the set of default configurations for the given package
type DefaultConfig struct {
	Title      string                 // package title
	Parameters map[string]interface{} // parameters
}

// Defaults of the toolkit.
//
// The values are the default values if it wasn't provided by the user.
// The value is nil, if the parameter is required from the user.
var Defaults = DefaultConfig{
	Title: "Helios Cron",
	Parameters: map[string]interface{}{
		RPCURL:         "https://testnet1.helioschainlabs.org",
		CronAddress:    "0x0000000000000000000000000000000000000830",
		TargetContract: nil,
		PrivateKey:     nil,
		Frequency:      300,
		GasLimit:       300_000,
		GasPrice:       "2",
		Deposit:        "0.02",
		ValidityWeeks:  2,
		MaxRetries:     3,
		RetryDelay:     2000,
		BlockTime:      "1.2",
		PollInterval:   30,
		TargetMethod:   "tick",
		DeploymentFile: "deployment.json",
		LogLevel:       "info",
	},
}
