package db

var schema = []string{
	`CREATE TABLE IF NOT EXISTS deployments (
		id           CHAR(36)        NOT NULL,
		address      CHAR(42)        NOT NULL,
		tx_hash      CHAR(66)        NOT NULL,
		network      VARCHAR(255)    NOT NULL,
		deployer     CHAR(42)        NOT NULL,
		chain_id     BIGINT UNSIGNED NOT NULL,
		block_number BIGINT UNSIGNED NOT NULL,
		deployed_at  DATETIME(6)     NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY deployments_tx_hash (tx_hash)
	)`,
	`CREATE TABLE IF NOT EXISTS cron_jobs (
		id               CHAR(36)        NOT NULL,
		wallet           CHAR(42)        NOT NULL,
		target           CHAR(42)        NOT NULL,
		method           VARCHAR(255)    NOT NULL,
		frequency        BIGINT UNSIGNED NOT NULL,
		registered_block BIGINT UNSIGNED NOT NULL,
		expiration_block BIGINT UNSIGNED NOT NULL,
		gas_limit        BIGINT UNSIGNED NOT NULL,
		max_gas_price    VARCHAR(78)     NOT NULL,
		deposit          VARCHAR(78)     NOT NULL,
		tx_hash          CHAR(66)        NOT NULL,
		created_at       DATETIME(6)     NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY cron_jobs_tx_hash (tx_hash),
		KEY cron_jobs_created_at (created_at)
	)`,
}
