package pg

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	_ "github.com/newrelic/go-agent/v3/integrations/nrpgx"
)

type Config struct {
	User               string
	Host               string
	Password           string
	Port               int
	DbName             string
	MaxOpenConnections int
	MaxIdleConnections int
}

// New opens a connection pool for config using username/password
// credentials and applies its pool limits.
func New(config *Config) (*sql.DB, error) {
	if len(config.Host) == 0 {
		return nil, errors.New("host is required")
	}

	db, err := NewWithUsernameAndPassword(config.User, config.Password, config.Host, strconv.Itoa(config.Port), config.DbName)
	if err != nil {
		return nil, err
	}

	if config.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(config.MaxOpenConnections)
	}
	if config.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(config.MaxIdleConnections)
	}

	return db, nil
}

// NewWithUsernameAndPassword opens a connection pool using username/password
// credentials, and checks the connection was successful.
func NewWithUsernameAndPassword(username, password, hostname, port, dbname string) (*sql.DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		username, password, hostname, port, dbname,
	)

	// TODO: enable SSL once the production database certificate is distributed
	// to the auditor hosts.

	// nrpgx wraps the "pgx" driver so queries are traced by New Relic
	db, err := sql.Open("nrpgx", dsn)
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
