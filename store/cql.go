package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/crmkit/crm-data-apis/db"
	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/types"
)

var cqlTypes = map[filter.FieldType]string{
	filter.TypeText:    "text",
	filter.TypeNumber:  "double",
	filter.TypeDate:    "timestamp",
	filter.TypeBoolean: "boolean",
	filter.TypeList:    "list<text>",
}

// CqlRepository stores one entity per Cassandra table, keyed by id. Rules
// can't be expressed in CQL so listing reads the whole table and filters in
// process.
type CqlRepository struct {
	db       *db.Db
	keyspace string
	table    string
	registry *filter.Registry
	filter   *filter.RecordFilter
}

func NewCqlRepository(database *db.Db, keyspace string, registry *filter.Registry, opts ...filter.Option) *CqlRepository {
	return &CqlRepository{
		db:       database,
		keyspace: keyspace,
		table:    registry.Entity(),
		registry: registry,
		filter:   filter.ForRegistry(registry, opts...),
	}
}

// EnsureTable creates the entity table from the registry when missing.
func (r *CqlRepository) EnsureTable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info := &db.CreateTableInfo{
		Keyspace: r.keyspace,
		Table:    r.table,
		Key:      db.ColumnDefinition{Name: types.IDField, Type: "text"},
	}
	for _, field := range r.registry.Fields() {
		info.Columns = append(info.Columns, db.ColumnDefinition{Name: field.Name, Type: cqlTypes[field.Type]})
	}
	return r.db.CreateTable(info, db.NewQueryOptions())
}

func (r *CqlRepository) Load(ctx context.Context, records []types.Record) error {
	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		normalized := normalizeRecord(r.registry, record)
		id := normalized.ID()
		if id == "" {
			return fmt.Errorf("record %d of %s has no id", i, r.table)
		}

		patch := normalized.Clone()
		delete(patch, types.IDField)
		prepared, err := preparePatch(r.registry, id, patch)
		if err != nil {
			return fmt.Errorf("record %s of %s: %w", id, r.table, err)
		}
		columns, values := r.columnValues(prepared)

		_, err = r.db.Insert(&db.InsertInfo{
			Keyspace:    r.keyspace,
			Table:       r.table,
			Columns:     append([]string{types.IDField}, columns...),
			QueryParams: append([]interface{}{id}, values...),
			IfNotExists: true,
		}, db.NewQueryOptions())
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *CqlRepository) List(ctx context.Context, query Query) (*types.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rs, err := r.db.Select(&db.SelectInfo{Keyspace: r.keyspace, Table: r.table}, db.NewQueryOptions())
	if err != nil {
		return nil, err
	}

	records := make([]types.Record, 0, len(rs.Values()))
	for _, row := range rs.Values() {
		records = append(records, normalizeRecord(r.registry, row))
	}
	// Cassandra returns rows in token order.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ID() < records[j].ID()
	})
	return runQuery(records, query, r.filter), nil
}

func (r *CqlRepository) Get(ctx context.Context, id string) (types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rs, err := r.db.Select(&db.SelectInfo{
		Keyspace: r.keyspace,
		Table:    r.table,
		Where:    []db.ConditionItem{{Column: types.IDField, Operator: "=", Value: id}},
		Limit:    1,
	}, db.NewQueryOptions())
	if err != nil {
		return nil, err
	}
	if len(rs.Values()) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, r.table, id)
	}
	return normalizeRecord(r.registry, rs.Values()[0]), nil
}

func (r *CqlRepository) Update(ctx context.Context, id string, patch types.Record) (types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prepared, err := preparePatch(r.registry, id, patch)
	if err != nil {
		return nil, err
	}
	if len(prepared) == 0 {
		return r.Get(ctx, id)
	}

	columns, values := r.columnValues(prepared)
	result, err := r.db.Update(&db.UpdateInfo{
		Keyspace:    r.keyspace,
		Table:       r.table,
		Key:         db.ConditionItem{Column: types.IDField, Operator: "=", Value: id},
		Columns:     columns,
		QueryParams: values,
		IfExists:    true,
	}, db.NewQueryOptions())
	if err != nil {
		return nil, err
	}
	if !result.Applied {
		return nil, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, r.table, id)
	}
	return r.Get(ctx, id)
}

// columnValues returns the patch as sorted columns and CQL bound values.
func (r *CqlRepository) columnValues(patch types.Record) ([]string, []interface{}) {
	columns := make([]string, 0, len(patch))
	for name := range patch {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	values := make([]interface{}, len(columns))
	for i, name := range columns {
		values[i] = toCqlValue(patch[name])
	}
	return columns, values
}

func toCqlValue(value interface{}) interface{} {
	switch v := value.(type) {
	case []interface{}:
		list := make([]string, len(v))
		for i, item := range v {
			list[i] = types.ToString(item)
		}
		return list
	case time.Time:
		return v.UTC()
	}
	return value
}
