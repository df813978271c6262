package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/crmkit/crm-data-apis/types"
)

// ConditionItem is a single "column operator ?" clause.
type ConditionItem struct {
	Column   string
	Operator string
	Value    interface{}
}

type ColumnDefinition struct {
	Name string
	Type string
}

type CreateTableInfo struct {
	Keyspace string
	Table    string
	Key      ColumnDefinition
	Columns  []ColumnDefinition
}

type SelectInfo struct {
	Keyspace string
	Table    string
	Where    []ConditionItem
	Limit    int
}

type InsertInfo struct {
	Keyspace    string
	Table       string
	Columns     []string
	QueryParams []interface{}
	IfNotExists bool
}

type UpdateInfo struct {
	Keyspace    string
	Table       string
	Key         ConditionItem
	Columns     []string
	QueryParams []interface{}
	IfExists    bool
}

// CreateTable creates the entity table unless it already exists.
func (db *Db) CreateTable(info *CreateTableInfo, options *QueryOptions) error {
	columns := fmt.Sprintf(`"%s" %s PRIMARY KEY`, info.Key.Name, info.Key.Type)
	for _, c := range info.Columns {
		if c.Name == info.Key.Name {
			continue
		}
		columns += fmt.Sprintf(`, "%s" %s`, c.Name, c.Type)
	}

	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s"."%s" (%s)`, info.Keyspace, info.Table, columns)
	return db.session.Execute(query, options)
}

func (db *Db) Select(info *SelectInfo, options *QueryOptions) (ResultSet, error) {
	values := make([]interface{}, 0, len(info.Where)+1)
	query := fmt.Sprintf(`SELECT * FROM "%s"."%s"`, info.Keyspace, info.Table)

	if len(info.Where) > 0 {
		query += " WHERE " + buildCondition(info.Where, &values)
	}

	if info.Limit > 0 {
		query += " LIMIT ?"
		values = append(values, info.Limit)
	}

	return db.session.ExecuteIter(query, options, values...)
}

func (db *Db) Insert(info *InsertInfo, options *QueryOptions) (*types.ModificationResult, error) {
	if len(info.Columns) == 0 {
		return nil, errors.New("insert requires at least one column")
	}

	quoted := make([]string, len(info.Columns))
	for i, c := range info.Columns {
		quoted[i] = fmt.Sprintf(`"%s"`, c)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(info.Columns)), ", ")

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (%s) VALUES (%s)`,
		info.Keyspace, info.Table, strings.Join(quoted, ", "), placeholders)

	if !info.IfNotExists {
		err := db.session.Execute(query, options, info.QueryParams...)
		return &types.ModificationResult{Applied: err == nil}, err
	}

	query += " IF NOT EXISTS"
	return db.executeConditional(query, options, info.QueryParams)
}

func (db *Db) Update(info *UpdateInfo, options *QueryOptions) (*types.ModificationResult, error) {
	if len(info.Columns) == 0 {
		return nil, errors.New("query must include columns to update")
	}

	setClause := ""
	queryParameters := make([]interface{}, 0, len(info.QueryParams)+1)
	for i, columnName := range info.Columns {
		if columnName == info.Key.Column {
			return nil, fmt.Errorf("key column %s can not be updated", columnName)
		}
		if i > 0 {
			setClause += ", "
		}
		setClause += fmt.Sprintf(`"%s" = ?`, columnName)
		queryParameters = append(queryParameters, info.QueryParams[i])
	}

	whereClause := buildCondition([]ConditionItem{info.Key}, &queryParameters)
	query := fmt.Sprintf(`UPDATE "%s"."%s" SET %s WHERE %s`, info.Keyspace, info.Table, setClause, whereClause)

	if !info.IfExists {
		err := db.session.Execute(query, options, queryParameters...)
		return &types.ModificationResult{Applied: err == nil}, err
	}

	query += " IF EXISTS"
	return db.executeConditional(query, options, queryParameters)
}

// executeConditional runs a lightweight transaction and reads its [applied] column.
func (db *Db) executeConditional(
	query string,
	options *QueryOptions,
	values []interface{},
) (*types.ModificationResult, error) {
	rs, err := db.session.ExecuteIter(query, options, values...)
	if err != nil {
		return nil, err
	}

	result := &types.ModificationResult{}
	rows := rs.Values()
	if len(rows) == 0 {
		return result, nil
	}

	row := rows[0]
	if applied, ok := row["[applied]"].(bool); ok {
		result.Applied = applied
	}
	delete(row, "[applied]")
	if len(row) > 0 {
		result.Value = types.NormalizeRow(row)
	}
	return result, nil
}

func buildCondition(condition []ConditionItem, queryParameters *[]interface{}) string {
	conditionClause := ""
	for _, item := range condition {
		if conditionClause != "" {
			conditionClause += " AND "
		}

		conditionClause += fmt.Sprintf(`"%s" %s ?`, item.Column, item.Operator)
		*queryParameters = append(*queryParameters, item.Value)
	}
	return conditionClause
}
