// Package db keeps the ledger of the deployments and the cron job
// registrations in the MySQL database.
//
// The ledger is optional: it is enabled when DATABASE_DSN is set.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/CyberFFarm/Helios-Cron/configuration"
	"github.com/CyberFFarm/Helios-Cron/log"
	"github.com/go-sql-driver/mysql"
)

// Any configuration time can not be greater than this
const TIMEOUT_CAP = 3600

// The names of the environment variables
const (
	DSN     = "DATABASE_DSN"
	Timeout = "DATABASE_TIMEOUT"
)

// The configuration parameters
// The values are the default values if it wasn't provided by the user
// Set the default value to nil, if the parameter is required from the user
var DatabaseConfigurations = configuration.DefaultConfig{
	Title: "Database",
	Parameters: map[string]interface{}{
		DSN:     nil,
		Timeout: uint64(10),
	},
}

// DatabaseParameters of the connection
type DatabaseParameters struct {
	config  *mysql.Config
	timeout time.Duration
}

// Database is the connection to the ledger
type Database struct {
	Connection *sql.DB
	parameters DatabaseParameters
	logger     *log.Logger
}

// Enabled returns true if the database is configured
func Enabled(app_config *configuration.Config) bool {
	return app_config.Exist(DSN)
}

// GetParameters returns the database parameters fetched from the environment variables.
func GetParameters(app_config *configuration.Config) (*DatabaseParameters, error) {
	app_config.SetDefaults(DatabaseConfigurations)

	if !app_config.Exist(DSN) {
		return nil, fmt.Errorf("missing '%s' environment variable", DSN)
	}

	timeout := app_config.GetUint64(Timeout)
	if timeout > TIMEOUT_CAP {
		return nil, fmt.Errorf("'%s' can not be greater than %d (seconds)", Timeout, TIMEOUT_CAP)
	} else if timeout == 0 {
		return nil, fmt.Errorf("the '%s' can not be zero", Timeout)
	}

	return NewParameters(app_config.GetString(DSN), time.Duration(timeout)*time.Second)
}

// NewParameters validates the data source name.
func NewParameters(dsn string, timeout time.Duration) (*DatabaseParameters, error) {
	config, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql.ParseDSN: %w", err)
	}
	if config.DBName == "" {
		return nil, errors.New("the database name is missing in the data source name")
	}
	config.ParseTime = true
	config.Loc = time.UTC
	config.Timeout = timeout

	return &DatabaseParameters{config: config, timeout: timeout}, nil
}

// Open establishes a database connection, waits until the database
// is ready and creates the tables.
func Open(ctx context.Context, parent *log.Logger, parameters *DatabaseParameters) (*Database, error) {
	logger := parent.Child("db")

	logger.Info(
		"connecting to `mysql` database",
		"protocol", parameters.config.Net,
		"database", parameters.config.DBName,
		"address", parameters.config.Addr,
		"user", parameters.config.User,
		"timeout", parameters.timeout,
	)

	connector, err := mysql.NewConnector(parameters.config)
	if err != nil {
		return nil, fmt.Errorf("mysql.NewConnector: %w", err)
	}
	connection := sql.OpenDB(connector)

	database := &Database{
		Connection: connection,
		parameters: *parameters,
		logger:     logger,
	}

	if err := database.wait(ctx); err != nil {
		connection.Close()
		return nil, err
	}

	if err := database.migrate(ctx); err != nil {
		connection.Close()
		return nil, err
	}

	logger.Info("database is ready")
	return database, nil
}

// wait until the database is ready or timeout expires
func (db *Database) wait(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, db.parameters.timeout)
	defer cancel()

	for {
		err := db.Connection.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-time.After(500 * time.Millisecond):
			continue
		case <-ctx.Done():
			return fmt.Errorf("database ping error: %w", err)
		}
	}
}

func (db *Database) migrate(ctx context.Context) error {
	for i, statement := range schema {
		if _, err := db.Connection.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}

// Close the database connection
func (db *Database) Close() error {
	if err := db.Connection.Close(); err != nil {
		return fmt.Errorf("sql.Close: %w", err)
	}
	return nil
}

// OpenFromConfig opens the database if it's enabled. Otherwise returns nil.
func OpenFromConfig(ctx context.Context, app_config *configuration.Config, parent *log.Logger) (*Database, error) {
	if !Enabled(app_config) {
		return nil, nil
	}

	parameters, err := GetParameters(app_config)
	if err != nil {
		return nil, err
	}
	return Open(ctx, parent, parameters)
}
