package db

import (
	"encoding/hex"
	"errors"

	"github.com/gocql/gocql"
)

type QueryOptions struct {
	Consistency       gocql.Consistency
	SerialConsistency gocql.SerialConsistency
}

func NewQueryOptions() *QueryOptions {
	return &QueryOptions{
		Consistency:       gocql.LocalQuorum,
		SerialConsistency: gocql.LocalSerial,
	}
}

func (q *QueryOptions) WithConsistency(consistency gocql.Consistency) *QueryOptions {
	q.Consistency = consistency
	return q
}

func (q *QueryOptions) WithSerialConsistency(serialConsistency gocql.SerialConsistency) *QueryOptions {
	q.SerialConsistency = serialConsistency
	return q
}

type Session interface {
	// Execute executes a statement without returning row results
	Execute(query string, options *QueryOptions, values ...interface{}) error

	// ExecuteIter executes a statement and returns the rows it produced
	ExecuteIter(query string, options *QueryOptions, values ...interface{}) (ResultSet, error)
}

type ResultSet interface {
	PageState() string
	Values() []map[string]interface{}
}

type goCqlResultSet struct {
	pageState []byte
	values    []map[string]interface{}
}

func (r *goCqlResultSet) PageState() string {
	return hex.EncodeToString(r.pageState)
}

func (r *goCqlResultSet) Values() []map[string]interface{} {
	return r.values
}

func newResultSet(iter *gocql.Iter) (*goCqlResultSet, error) {
	items := make([]map[string]interface{}, 0)
	for {
		row := make(map[string]interface{}, len(iter.Columns()))
		if !iter.MapScan(row) {
			break
		}
		items = append(items, row)
	}

	if err := iter.Close(); err != nil {
		return nil, err
	}

	return &goCqlResultSet{
		pageState: iter.PageState(),
		values:    items,
	}, nil
}

type GoCqlSession struct {
	ref *gocql.Session
}

func (session *GoCqlSession) Execute(query string, options *QueryOptions, values ...interface{}) error {
	_, err := session.ExecuteIter(query, options, values...)
	return err
}

func (session *GoCqlSession) ExecuteIter(query string, options *QueryOptions, values ...interface{}) (ResultSet, error) {
	q := session.ref.Query(query, values...)

	// Without this the [applied] column of conditional updates is not returned
	q.NoSkipMetadata()

	if options != nil {
		q.Consistency(options.Consistency)

		if options.SerialConsistency != gocql.Serial && options.SerialConsistency != gocql.LocalSerial {
			return nil, errors.New("invalid serial consistency")
		}

		q.SerialConsistency(options.SerialConsistency)
	}
	return newResultSet(q.Iter())
}
