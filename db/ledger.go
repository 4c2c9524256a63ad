package db

import (
	"context"
	"fmt"
	"time"

	"github.com/CyberFFarm/Helios-Cron/cron"
	"github.com/CyberFFarm/Helios-Cron/deploy"
	eth_common "github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Deployment is the row of the deployments table
type Deployment struct {
	ID          string
	Address     string
	TxHash      string
	Network     string
	Deployer    string
	ChainID     uint64
	BlockNumber uint64
	DeployedAt  time.Time
}

// CronJob is the row of the cron_jobs table
type CronJob struct {
	ID              string
	Wallet          string
	Target          string
	Method          string
	Frequency       uint64
	RegisteredBlock uint64
	ExpirationBlock uint64
	GasLimit        uint64
	MaxGasPrice     string // wei
	Deposit         string // wei
	TxHash          string
	CreatedAt       time.Time
}

// NewDeployment converts the deployment record into the row
func NewDeployment(record *deploy.Record) *Deployment {
	return &Deployment{
		Address:     record.Address,
		TxHash:      record.TxHash,
		Network:     record.Network,
		Deployer:    record.Deployer,
		ChainID:     record.ChainID,
		BlockNumber: record.BlockNumber,
		DeployedAt:  record.DeployedAt,
	}
}

// NewCronJob converts the registration result into the row
func NewCronJob(wallet eth_common.Address, result *cron.Result) *CronJob {
	return &CronJob{
		Wallet:          wallet.Hex(),
		Target:          result.Job.Target.Hex(),
		Method:          result.Job.Method,
		Frequency:       result.Job.Frequency,
		RegisteredBlock: result.Block.Current,
		ExpirationBlock: result.Job.ExpirationBlock,
		GasLimit:        result.Job.GasLimit,
		MaxGasPrice:     result.Job.MaxGasPrice.String(),
		Deposit:         result.Job.Deposit.String(),
		TxHash:          result.TxHash.Hex(),
		CreatedAt:       time.Now().UTC(),
	}
}

// InsertDeployment stores the deployment. The id is generated if it's empty.
func (db *Database) InsertDeployment(ctx context.Context, deployment *Deployment) error {
	if deployment.ID == "" {
		deployment.ID = uuid.NewString()
	}

	_, err := db.Connection.ExecContext(ctx,
		`INSERT INTO deployments (id, address, tx_hash, network, deployer, chain_id, block_number, deployed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		deployment.ID,
		deployment.Address,
		deployment.TxHash,
		deployment.Network,
		deployment.Deployer,
		deployment.ChainID,
		deployment.BlockNumber,
		deployment.DeployedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert deployment %s: %w", deployment.TxHash, err)
	}

	db.logger.Info("deployment stored", "id", deployment.ID, "address", deployment.Address)
	return nil
}

// InsertCronJob stores the registration. The id is generated if it's empty.
func (db *Database) InsertCronJob(ctx context.Context, job *CronJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	_, err := db.Connection.ExecContext(ctx,
		`INSERT INTO cron_jobs (id, wallet, target, method, frequency, registered_block, expiration_block,
			gas_limit, max_gas_price, deposit, tx_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.Wallet,
		job.Target,
		job.Method,
		job.Frequency,
		job.RegisteredBlock,
		job.ExpirationBlock,
		job.GasLimit,
		job.MaxGasPrice,
		job.Deposit,
		job.TxHash,
		job.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert cron job %s: %w", job.TxHash, err)
	}

	db.logger.Info("cron job stored", "id", job.ID, "target", job.Target)
	return nil
}

// CronJobs returns the latest registrations, newest first.
func (db *Database) CronJobs(ctx context.Context, limit int) ([]CronJob, error) {
	rows, err := db.Connection.QueryContext(ctx,
		`SELECT id, wallet, target, method, frequency, registered_block, expiration_block,
			gas_limit, max_gas_price, deposit, tx_hash, created_at
		FROM cron_jobs ORDER BY created_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select cron jobs: %w", err)
	}
	defer rows.Close()

	var jobs []CronJob
	for rows.Next() {
		var job CronJob
		if err := rows.Scan(
			&job.ID,
			&job.Wallet,
			&job.Target,
			&job.Method,
			&job.Frequency,
			&job.RegisteredBlock,
			&job.ExpirationBlock,
			&job.GasLimit,
			&job.MaxGasPrice,
			&job.Deposit,
			&job.TxHash,
			&job.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cron job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cron job rows: %w", err)
	}

	return jobs, nil
}

// Deployments returns the latest deployments, newest first.
func (db *Database) Deployments(ctx context.Context, limit int) ([]Deployment, error) {
	rows, err := db.Connection.QueryContext(ctx,
		`SELECT id, address, tx_hash, network, deployer, chain_id, block_number, deployed_at
		FROM deployments ORDER BY deployed_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select deployments: %w", err)
	}
	defer rows.Close()

	var deployments []Deployment
	for rows.Next() {
		var deployment Deployment
		if err := rows.Scan(
			&deployment.ID,
			&deployment.Address,
			&deployment.TxHash,
			&deployment.Network,
			&deployment.Deployer,
			&deployment.ChainID,
			&deployment.BlockNumber,
			&deployment.DeployedAt,
		); err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}
		deployments = append(deployments, deployment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("deployment rows: %w", err)
	}

	return deployments, nil
}
