package graphql

import (
	"github.com/graphql-go/graphql"

	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/rules"
	"github.com/crmkit/crm-data-apis/store"
)

var conditionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Condition",
	Fields: graphql.Fields{
		"id":        {Type: graphql.NewNonNull(graphql.String)},
		"kind":      {Type: graphql.NewNonNull(graphql.String)},
		"connector": {Type: graphql.String},
		"field":     {Type: graphql.String},
		"operator":  {Type: graphql.String},
		"value":     {Type: value},
		"query":     {Type: graphql.String},
		"fields":    {Type: graphql.NewList(graphql.String)},
	},
})

var actionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Action",
	Fields: graphql.Fields{
		"id":        {Type: graphql.NewNonNull(graphql.String)},
		"kind":      {Type: graphql.NewNonNull(graphql.String)},
		"field":     {Type: graphql.String},
		"value":     {Type: value},
		"tag":       {Type: graphql.String},
		"owner":     {Type: graphql.String},
		"channel":   {Type: graphql.String},
		"recipient": {Type: graphql.String},
		"template":  {Type: graphql.String},
	},
})

var ruleType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Rule",
	Fields: graphql.Fields{
		"id":          {Type: graphql.NewNonNull(graphql.String)},
		"name":        {Type: graphql.NewNonNull(graphql.String)},
		"entity":      {Type: graphql.NewNonNull(graphql.String)},
		"enabled":     {Type: graphql.NewNonNull(graphql.Boolean)},
		"state":       {Type: graphql.NewNonNull(graphql.String)},
		"version":     {Type: graphql.Int},
		"updatedBy":   {Type: graphql.String},
		"updatedAt":   {Type: timestamp},
		"description": {Type: graphql.String},
		"conditions":  {Type: graphql.NewList(graphql.NewNonNull(conditionType))},
		"actions":     {Type: graphql.NewList(graphql.NewNonNull(actionType))},
	},
})

var actionResultType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ActionResult",
	Fields: graphql.Fields{
		"ruleId":    {Type: graphql.String},
		"actionId":  {Type: graphql.String},
		"kind":      {Type: graphql.String},
		"recordId":  {Type: graphql.String},
		"field":     {Type: graphql.String},
		"patch":     {Type: value},
		"channel":   {Type: graphql.String},
		"recipient": {Type: graphql.String},
		"message":   {Type: graphql.String},
	},
})

var applyOutcomeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ApplyOutcome",
	Fields: graphql.Fields{
		"matched": {Type: graphql.NewNonNull(graphql.Int)},
		"updated": {Type: graphql.NewNonNull(graphql.Int)},
		"results": {Type: graphql.NewList(graphql.NewNonNull(actionResultType))},
	},
})

func adaptRule(rule rules.Rule, registry *filter.Registry) map[string]interface{} {
	conditions := make([]map[string]interface{}, 0, len(rule.Conditions))
	for _, c := range rule.Conditions {
		conditions = append(conditions, adaptCondition(c))
	}
	actions := make([]map[string]interface{}, 0, len(rule.Actions))
	for _, a := range rule.Actions {
		actions = append(actions, adaptAction(a))
	}

	result := map[string]interface{}{
		"id":          rule.ID,
		"name":        rule.Name,
		"entity":      rule.Entity,
		"enabled":     rule.Enabled,
		"state":       string(rule.State),
		"version":     rule.Version,
		"updatedBy":   rule.UpdatedBy,
		"description": rule.Describe(registry),
		"conditions":  conditions,
		"actions":     actions,
	}
	if !rule.UpdatedAt.IsZero() {
		result["updatedAt"] = rule.UpdatedAt
	}
	return result
}

func adaptCondition(c rules.Condition) map[string]interface{} {
	result := map[string]interface{}{
		"id":        c.ID,
		"kind":      string(c.Kind),
		"connector": string(c.Connector),
	}
	if c.Field != nil {
		result["field"] = c.Field.Field
		result["operator"] = string(c.Field.Operator)
		result["value"] = c.Field.Value
	}
	if c.Search != nil {
		result["query"] = c.Search.Query
		result["fields"] = c.Search.Fields
	}
	return result
}

func adaptAction(a rules.Action) map[string]interface{} {
	result := map[string]interface{}{
		"id":   a.ID,
		"kind": string(a.Kind),
	}
	switch {
	case a.Set != nil:
		result["field"] = a.Set.Field
		result["value"] = a.Set.Value
	case a.Tag != nil:
		result["tag"] = a.Tag.Tag
		result["field"] = a.Tag.Field
	case a.Assign != nil:
		result["owner"] = a.Assign.Owner
		result["field"] = a.Assign.Field
	case a.Notify != nil:
		result["channel"] = a.Notify.Channel
		result["recipient"] = a.Notify.Recipient
		result["template"] = a.Notify.Template
	case a.Target != nil:
		result["field"] = a.Target.Field
	}
	return result
}

func adaptOutcome(outcome *store.ApplyOutcome) map[string]interface{} {
	results := make([]map[string]interface{}, 0, len(outcome.Results))
	for _, r := range outcome.Results {
		item := map[string]interface{}{
			"ruleId":    r.RuleID,
			"actionId":  r.ActionID,
			"kind":      string(r.Kind),
			"recordId":  r.RecordID,
			"field":     r.Field,
			"channel":   r.Channel,
			"recipient": r.Recipient,
			"message":   r.Message,
		}
		if r.Patch != nil {
			item["patch"] = map[string]interface{}(r.Patch)
		}
		results = append(results, item)
	}
	return map[string]interface{}{
		"matched": outcome.Matched,
		"updated": outcome.Updated,
		"results": results,
	}
}
