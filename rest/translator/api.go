package translator

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/crmkit/crm-data-apis/filter"
	e "github.com/crmkit/crm-data-apis/rest/errors"
	m "github.com/crmkit/crm-data-apis/rest/models"
	"github.com/crmkit/crm-data-apis/rules"
	"github.com/crmkit/crm-data-apis/store"
	"github.com/crmkit/crm-data-apis/types"
)

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	validate = validator.New()

	uni := ut.New(en.New(), en.New())
	trans, _ = uni.GetTranslator("en")

	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	_ = validate.RegisterTranslation("required", trans, func(ut ut.Translator) error {
		return ut.Add("required", "{0} is a required field", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("required", fe.Field())
		return t
	})
}

// APITranslator serves as a translator for going from request objects to
// repository queries and patches of one entity.
type APITranslator struct {
	EntityName string           `validate:"required"`
	Registry   *filter.Registry `validate:"required"`
}

// ToQuery transforms a Query model into a repository query. Filters are
// checked against the entity registry.
func (a APITranslator) ToQuery(queryModel m.Query) (store.Query, error) {
	if err := validate.Struct(a); err != nil {
		return store.Query{}, e.TranslateValidatorError(err, trans)
	}

	filterRules, err := ToRules(queryModel.Filters)
	if err != nil {
		return store.Query{}, err
	}
	if err := filter.Validate(filterRules, a.Registry); err != nil {
		return store.Query{}, e.NewBadRequestError(err.Error())
	}

	orders, err := a.toOrders(queryModel.OrderBy)
	if err != nil {
		return store.Query{}, err
	}

	return store.Query{
		Search:  strings.TrimSpace(queryModel.Search),
		Rules:   filterRules,
		OrderBy: orders,
		Limit:   queryModel.PageSize,
		Offset:  queryModel.Offset,
	}, nil
}

// ToQueryFromParams reads a free-text listing from the url query: q,
// orderBy, direction, pageSize and offset.
func (a APITranslator) ToQueryFromParams(values url.Values) (store.Query, error) {
	queryModel := m.Query{Search: values.Get("q")}

	if orderBy := values.Get("orderBy"); orderBy != "" {
		queryModel.OrderBy = []m.Order{{Field: orderBy, Direction: values.Get("direction")}}
	}

	var err error
	if queryModel.PageSize, err = intParam(values, "pageSize"); err != nil {
		return store.Query{}, err
	}
	if queryModel.Offset, err = intParam(values, "offset"); err != nil {
		return store.Query{}, err
	}

	return a.ToQuery(queryModel)
}

func (a APITranslator) toOrders(orderBy []m.Order) ([]filter.Order, error) {
	orders := make([]filter.Order, 0, len(orderBy))
	for _, o := range orderBy {
		if !a.Registry.Has(o.Field) {
			return nil, e.NewBadRequestError(fmt.Sprintf("unknown order by field %s", o.Field))
		}
		direction := filter.Direction(strings.ToUpper(o.Direction))
		if !direction.IsValid() {
			return nil, e.NewBadRequestError(fmt.Sprintf("invalid order direction %s", o.Direction))
		}
		orders = append(orders, filter.Order{Field: o.Field, Direction: direction})
	}
	return orders, nil
}

// ToPatch converts a changeset into a record patch. A column may appear only once.
func (a APITranslator) ToPatch(rowsUpdate m.RowsUpdate) (types.Record, error) {
	if err := validate.Struct(a); err != nil {
		return nil, e.TranslateValidatorError(err, trans)
	}
	if len(rowsUpdate.Changeset) == 0 {
		return nil, e.NewBadRequestError("changeset is required")
	}

	patch := make(types.Record, len(rowsUpdate.Changeset))
	for _, change := range rowsUpdate.Changeset {
		if change.Column == "" {
			return nil, e.NewBadRequestError("column is required")
		}
		if _, ok := patch[change.Column]; ok {
			return nil, e.NewBadRequestError(fmt.Sprintf("column %s is changed more than once", change.Column))
		}
		patch[change.Column] = change.Value
	}
	return patch, nil
}

// ToRules converts filter models into filter rules. A missing connector
// joins with AND.
func ToRules(filters []m.Filter) ([]filter.Rule, error) {
	result := make([]filter.Rule, 0, len(filters))
	for _, f := range filters {
		op, err := filter.ParseOperator(f.Operator)
		if err != nil {
			return nil, e.NewBadRequestError(err.Error())
		}
		connector, err := toConnector(f.Connector)
		if err != nil {
			return nil, err
		}
		result = append(result, filter.Rule{
			Field:     f.Field,
			Operator:  op,
			Value:     f.Value,
			Connector: connector,
		})
	}
	return result, nil
}

// ToCondition builds a condition from its payload model.
func ToCondition(c m.ConditionAdd) (rules.Condition, error) {
	connector, err := toConnector(c.Connector)
	if err != nil {
		return rules.Condition{}, err
	}

	var condition rules.Condition
	switch rules.ConditionKind(c.Kind) {
	case rules.KindField:
		if c.Field == "" || c.Operator == "" {
			return rules.Condition{}, e.NewBadRequestError("field conditions require a field and an operator")
		}
		op, err := filter.ParseOperator(c.Operator)
		if err != nil {
			return rules.Condition{}, e.NewBadRequestError(err.Error())
		}
		condition = rules.FieldMatch(c.Field, op, c.Value)
	case rules.KindSearch:
		if strings.TrimSpace(c.Query) == "" {
			return rules.Condition{}, e.NewBadRequestError("search conditions require a query")
		}
		condition = rules.SearchMatch(c.Query, c.Fields...)
	case rules.KindAlways:
		condition = rules.Always()
	default:
		return rules.Condition{}, e.NewBadRequestError(fmt.Sprintf("invalid condition kind %s", c.Kind))
	}
	condition.Connector = connector
	return condition, nil
}

// ToAction builds an action from its payload model.
func ToAction(a m.ActionAdd) (rules.Action, error) {
	kind := rules.ActionKind(a.Kind)
	switch kind {
	case rules.SetField:
		if a.Field == "" {
			return rules.Action{}, e.NewBadRequestError("set_field requires a field")
		}
		return rules.SetFieldTo(a.Field, a.Value), nil
	case rules.AddTag:
		if a.Tag == "" {
			return rules.Action{}, e.NewBadRequestError("add_tag requires a tag")
		}
		action := rules.AddTagged(a.Tag)
		action.Tag.Field = a.Field
		return action, nil
	case rules.AssignOwner:
		if a.Owner == "" {
			return rules.Action{}, e.NewBadRequestError("assign_owner requires an owner")
		}
		action := rules.AssignTo(a.Owner)
		action.Assign.Field = a.Field
		return action, nil
	case rules.Notify:
		if a.Channel == "" || a.Template == "" {
			return rules.Action{}, e.NewBadRequestError("notify requires a channel and a template")
		}
		return rules.NotifyBy(a.Channel, a.Recipient, a.Template), nil
	case rules.ShowField, rules.HideField, rules.RequireField:
		if a.Field == "" {
			return rules.Action{}, e.NewBadRequestError(fmt.Sprintf("%s requires a field", kind))
		}
		return rules.TargetField(kind, a.Field), nil
	}
	return rules.Action{}, e.NewBadRequestError(fmt.Sprintf("invalid action kind %s", a.Kind))
}

// ToEntity describes an entity and its registry.
func ToEntity(entity *store.Entity) m.Entity {
	fields := entity.Registry.Fields()
	result := m.Entity{Name: entity.Name(), Fields: make([]m.Field, 0, len(fields))}
	for _, f := range fields {
		result.Fields = append(result.Fields, m.Field{
			Name:       f.Name,
			Type:       string(f.Type),
			Label:      f.Label,
			Searchable: f.Searchable,
		})
	}
	return result
}

// ToRows converts a query result into its response model.
func ToRows(result *types.QueryResult) m.Rows {
	rows := m.Rows{Rows: make([]map[string]interface{}, 0, len(result.Values)), Count: result.Count}
	for _, record := range result.Values {
		rows.Rows = append(rows.Rows, record)
	}
	return rows
}

func toConnector(name string) (filter.Connector, error) {
	connector := filter.Connector(strings.ToUpper(name))
	if connector == "" {
		return filter.And, nil
	}
	if !connector.IsValid() {
		return "", e.NewBadRequestError(fmt.Sprintf("invalid connector %s", name))
	}
	return connector, nil
}

func intParam(values url.Values, name string) (int, error) {
	value := values.Get(name)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, e.NewBadRequestError(fmt.Sprintf("%s must be a non negative integer", name))
	}
	return n, nil
}
