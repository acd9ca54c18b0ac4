package postgres

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	DBName   string
	SSLMode  string
}

func NewConfigFromEnv() *Config {
	return &Config{
		Host:     os.Getenv("POSTGRES_HOST"),
		Port:     os.Getenv("POSTGRES_PORT"),
		Username: os.Getenv("POSTGRES_USERNAME"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		DBName:   os.Getenv("POSTGRES_DB_NAME"),
		SSLMode:  os.Getenv("POSTGRES_SSL_MODE"),
	}
}

func (c *Config) Setup() *Config {
	const (
		defaultHost     = "localhost"
		defaultPort     = "5432"
		defaultUsername = "postgres"
		defaultPassword = "postgres"
		defaultDBName   = "postgres"
		defaultSSLMode  = "disable"
	)

	c.Host = cmp.Or(c.Host, defaultHost)
	c.Port = cmp.Or(c.Port, defaultPort)
	if _, err := strconv.Atoi(c.Port); err != nil {
		c.Port = defaultPort
	}
	c.Username = cmp.Or(c.Username, defaultUsername)
	c.Password = cmp.Or(c.Password, defaultPassword)
	c.DBName = cmp.Or(c.DBName, defaultDBName)
	c.SSLMode = cmp.Or(c.SSLMode, defaultSSLMode)

	return c
}

// String leaves out the password.
func (c *Config) String() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.DBName, c.SSLMode,
	)
}

func (c *Config) dsn() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.DBName, c.Password, c.SSLMode,
	)
}

func NewDB(ctx context.Context, cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("%w: can't connect to postgres", err)
	}
	return db, nil
}

const _schema = `CREATE TABLE IF NOT EXISTS candles (
	ticker      TEXT             NOT NULL,
	ts          TIMESTAMPTZ      NOT NULL,
	open_price  DOUBLE PRECISION NOT NULL,
	high_price  DOUBLE PRECISION NOT NULL,
	low_price   DOUBLE PRECISION NOT NULL,
	close_price DOUBLE PRECISION NOT NULL,
	volume      BIGINT           NOT NULL DEFAULT 0,
	PRIMARY KEY (ticker, ts)
);`

// Migrate creates the candle cache table if it is missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, _schema); err != nil {
		return fmt.Errorf("%w: can't create candles table", err)
	}
	return nil
}
