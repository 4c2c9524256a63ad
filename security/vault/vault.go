// Package vault reads the signing key from the hashicorp vault.
//
// The vault is used when VAULT_ADDR is set and PRIVATE_KEY is not.
// The client logs in either with the VAULT_TOKEN or with the approle
// credentials. Both the KV version 1 and version 2 secrets are supported.
package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CyberFFarm/Helios-Cron/configuration"
	"github.com/CyberFFarm/Helios-Cron/log"
	hashicorp "github.com/hashicorp/vault/api"
	"github.com/hashicorp/vault/api/auth/approle"
)

// The names of the environment variables
const (
	Address          = "VAULT_ADDR"
	Token            = "VAULT_TOKEN"
	SecretPath       = "VAULT_SECRET_PATH"
	SecretKey        = "VAULT_SECRET_KEY"
	ApproleRoleID    = "VAULT_APPROLE_ROLE_ID"
	ApproleSecretID  = "VAULT_APPROLE_SECRET_ID"
	ApproleMountPath = "VAULT_APPROLE_MOUNT_PATH"
	Timeout          = "VAULT_TIMEOUT"
)

const defaultTimeout = 10 * time.Second

// ErrNoCredentials is returned when neither the token nor the approle is set.
var ErrNoCredentials = errors.New("missing VAULT_TOKEN or VAULT_APPROLE_ROLE_ID and VAULT_APPROLE_SECRET_ID")

// VaultConfigurations are setting the default configuration parameters.
//
// The values are the default values if it wasn't provided by the user
// Set the default value to nil, if the parameter is required from the user
var VaultConfigurations = configuration.DefaultConfig{
	Title: "Vault",
	Parameters: map[string]interface{}{
		Address:          nil,
		Token:            nil,
		SecretPath:       "secret/data/helios-cron",
		SecretKey:        "private_key",
		ApproleRoleID:    nil,
		ApproleSecretID:  nil,
		ApproleMountPath: "approle",
		Timeout:          10,
	},
}

// Vault is the wrapper around hashicorp vault client along with
// the path of the signing key.
type Vault struct {
	logger *log.Logger
	client *hashicorp.Client
	path   string // secret path, with data/ for the KV version 2
	key    string // field of the secret

	// connection parameters
	token              string
	approle_role_id    string
	approle_secret_id  string
	approle_mount_path string
}

// Enabled returns true if the vault address is set
func Enabled(config *configuration.Config) bool {
	return config.Exist(Address)
}

// New vault client. It doesn't connect yet.
func New(config *configuration.Config, parent *log.Logger) (*Vault, error) {
	config.SetDefaults(VaultConfigurations)

	if !config.Exist(Address) {
		return nil, fmt.Errorf("missing '%s' environment variable", Address)
	}

	vault := Vault{
		logger:             parent.Child("vault"),
		path:               config.GetString(SecretPath),
		key:                config.GetString(SecretKey),
		token:              config.GetString(Token),
		approle_role_id:    config.GetString(ApproleRoleID),
		approle_secret_id:  config.GetString(ApproleSecretID),
		approle_mount_path: config.GetString(ApproleMountPath),
	}

	if vault.token == "" && (vault.approle_role_id == "" || vault.approle_secret_id == "") {
		return nil, ErrNoCredentials
	}

	clientConfig := hashicorp.DefaultConfig()
	clientConfig.Address = config.GetString(Address)

	client, err := hashicorp.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("hashicorp.NewClient: %w", err)
	}
	vault.client = client

	return &vault, nil
}

// Login authenticates the client. The token is used as is,
// otherwise the client logs in with the approle.
func (v *Vault) Login(ctx context.Context) error {
	if v.token != "" {
		v.client.SetToken(v.token)
		return nil
	}

	_, err := v.login(ctx)
	return err
}

// A combination of a RoleID and a SecretID is required to log into Vault
// with AppRole authentication method.
//
// ref: https://learn.hashicorp.com/tutorials/vault/approle-best-practices?in=vault/auth-methods#secretid-delivery-best-practices
func (v *Vault) login(ctx context.Context) (*hashicorp.Secret, error) {
	v.logger.Info("Vault login: begin", "mount_path", v.approle_mount_path)

	approleSecretID := &approle.SecretID{
		FromString: v.approle_secret_id,
	}

	appRoleAuth, err := approle.NewAppRoleAuth(
		v.approle_role_id,
		approleSecretID,
		approle.WithMountPath(v.approle_mount_path),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize approle authentication method: %w", err)
	}

	authInfo, err := v.client.Auth().Login(ctx, appRoleAuth)
	if err != nil {
		return nil, fmt.Errorf("unable to login using approle auth method: %w", err)
	}
	if authInfo == nil {
		return nil, fmt.Errorf("no approle info was returned after login")
	}

	v.logger.Info("Vault login: success!")

	return authInfo, nil
}

// PrivateKey returns the signing key from the secret.
func (v *Vault) PrivateKey(ctx context.Context) (string, error) {
	return v.get_string(ctx, v.path, v.key)
}

// Returns the String in the secret, by key
func (v *Vault) get_string(ctx context.Context, path string, key string) (string, error) {
	secret, err := v.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return "", fmt.Errorf("vault.client.Read(%s): %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("vault secret %s not found", path)
	}

	data := secret.Data
	// KV version 2 nests the fields
	if nested, ok := data["data"].(map[string]interface{}); ok {
		data = nested
	}

	value, ok := data[key].(string)
	if !ok {
		return "", fmt.Errorf("vault secret %s has no string field %s", path, key)
	}

	return value, nil
}

// LoadPrivateKey sets PRIVATE_KEY from the vault, if the vault is enabled
// and the key is not set yet. Returns true if the key was loaded.
func LoadPrivateKey(ctx context.Context, config *configuration.Config, parent *log.Logger) (bool, error) {
	if config.Exist(configuration.PrivateKey) || !Enabled(config) {
		return false, nil
	}

	vault, err := New(config, parent)
	if err != nil {
		return false, err
	}

	timeout := time.Duration(config.GetUint64(Timeout)) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := vault.Login(ctx); err != nil {
		return false, fmt.Errorf("vault login error: %w", err)
	}

	key, err := vault.PrivateKey(ctx)
	if err != nil {
		return false, err
	}

	config.Set(configuration.PrivateKey, key)
	vault.logger.Info("private key loaded from the vault", "path", vault.path)
	return true, nil
}
