package db

import (
	"errors"
	"time"

	"github.com/gocql/gocql"
)

// Db represents a connection to a Cassandra cluster holding entity tables.
type Db struct {
	session Session
}

// NewDb creates a session against the given hosts. Username may be empty for
// clusters without authentication.
func NewDb(username string, password string, hosts ...string) (*Db, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Timeout = 10 * time.Second
	cluster.PoolConfig.HostSelectionPolicy = NewDefaultHostSelectionPolicy()

	if username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: username,
			Password: password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}

	if session == nil {
		return nil, errors.New("failed to create session")
	}

	return &Db{
		session: &GoCqlSession{ref: session},
	}, nil
}

// NewDbWithSession wraps an existing session, mostly for testing.
func NewDbWithSession(session Session) *Db {
	return &Db{session: session}
}

func (db *Db) Close() {
	if s, ok := db.session.(*GoCqlSession); ok {
		s.ref.Close()
	}
}

// Execute executes a statement and returns the rows it produced
func (db *Db) Execute(query string, options *QueryOptions, values ...interface{}) (ResultSet, error) {
	return db.session.ExecuteIter(query, options, values...)
}

// ExecuteNoResult executes a statement without returning row results
func (db *Db) ExecuteNoResult(query string, options *QueryOptions, values ...interface{}) error {
	return db.session.Execute(query, options, values...)
}
