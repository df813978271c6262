package rules

import (
	"regexp"

	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/types"
)

var placeholder = regexp.MustCompile(`\{\{\s*([\w.-]+)\s*\}\}`)

// Context is the input a rule is applied to.
type Context struct {
	Record types.Record
	// Registry declares the entity fields. Optional.
	Registry *filter.Registry
	// Evaluator overrides the evaluator built from the registry. Optional.
	Evaluator *filter.Evaluator
}

func (ctx Context) evaluator() *filter.Evaluator {
	if ctx.Evaluator != nil {
		return ctx.Evaluator
	}
	if ctx.Registry != nil {
		return filter.NewEvaluator(filter.WithRegistry(ctx.Registry))
	}
	return filter.NewEvaluator()
}

// ActionResult describes the effect of one action on one record. Applying a
// rule never changes the record; Patch holds the attributes to write back.
type ActionResult struct {
	RuleID    string       `json:"ruleId"`
	ActionID  string       `json:"actionId"`
	Kind      ActionKind   `json:"kind"`
	RecordID  string       `json:"recordId,omitempty"`
	Field     string       `json:"field,omitempty"`
	Patch     types.Record `json:"patch,omitempty"`
	Channel   string       `json:"channel,omitempty"`
	Recipient string       `json:"recipient,omitempty"`
	Message   string       `json:"message,omitempty"`
}

// Matches reports whether the rule's conditions hold for the context record.
// Conditions fold left to right with their connectors and an empty list matches.
func Matches(rule Rule, ctx Context) bool {
	if len(rule.Conditions) == 0 {
		return true
	}
	evaluator := ctx.evaluator()

	acc := matchCondition(rule.Conditions[0], ctx, evaluator)
	for _, c := range rule.Conditions[1:] {
		acc = filter.Combine(acc, c.Connector, matchCondition(c, ctx, evaluator))
	}
	return acc
}

func matchCondition(c Condition, ctx Context, evaluator *filter.Evaluator) bool {
	switch c.Kind {
	case KindField:
		rule, ok := c.FilterRule()
		return ok && evaluator.Match(ctx.Record, rule)
	case KindSearch:
		if c.Search == nil {
			return false
		}
		fields := c.Search.Fields
		if len(fields) == 0 && ctx.Registry != nil {
			fields = ctx.Registry.SearchFields()
		}
		return filter.MatchesQuery(ctx.Record, c.Search.Query, fields)
	case KindAlways:
		return true
	}
	return false
}

// Apply runs the rule against the context record and returns one result per
// action, in order. Each action sees the patches of the actions before it.
// Disabled or deleted rules and non matching records produce no results.
func Apply(rule Rule, ctx Context) []ActionResult {
	if !rule.Enabled || rule.State == Deleted {
		return nil
	}
	if !Matches(rule, ctx) {
		return nil
	}

	record := ctx.Record
	results := make([]ActionResult, 0, len(rule.Actions))
	for _, a := range rule.Actions {
		result := ActionResult{
			RuleID:   rule.ID,
			ActionID: a.ID,
			Kind:     a.Kind,
			RecordID: ctx.Record.ID(),
		}
		switch {
		case a.Kind == SetField && a.Set != nil:
			result.Field = a.Set.Field
			result.Patch = types.Record{a.Set.Field: cloneValue(a.Set.Value)}
		case a.Kind == AddTag && a.Tag != nil:
			result.Field = tagField(a.Tag)
			if tags, changed := withTag(record[result.Field], a.Tag.Tag); changed {
				result.Patch = types.Record{result.Field: tags}
			}
		case a.Kind == AssignOwner && a.Assign != nil:
			result.Field = ownerField(a.Assign)
			result.Patch = types.Record{result.Field: a.Assign.Owner}
		case a.Kind == Notify && a.Notify != nil:
			result.Channel = a.Notify.Channel
			result.Recipient = render(a.Notify.Recipient, record)
			result.Message = render(a.Notify.Template, record)
		case a.Target != nil:
			result.Field = a.Target.Field
		}
		if len(result.Patch) > 0 {
			// Merge copies, so the caller's record is never touched
			record = record.Merge(result.Patch)
		}
		results = append(results, result)
	}
	return results
}

// MergePatches folds the patches of the results into a single patch. Later
// results win.
func MergePatches(results []ActionResult) types.Record {
	var patch types.Record
	for _, r := range results {
		if len(r.Patch) == 0 {
			continue
		}
		if patch == nil {
			patch = types.Record{}
		}
		for k, v := range r.Patch {
			patch[k] = v
		}
	}
	return patch
}

func withTag(current interface{}, tag string) ([]interface{}, bool) {
	var tags []interface{}
	switch v := current.(type) {
	case []interface{}:
		tags = append(tags, v...)
	case []string:
		for _, s := range v {
			tags = append(tags, s)
		}
	case string:
		if v != "" {
			tags = append(tags, v)
		}
	}
	for _, t := range tags {
		if types.ToString(t) == tag {
			return tags, false
		}
	}
	return append(tags, tag), true
}

func render(template string, record types.Record) string {
	return placeholder.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholder.FindStringSubmatch(match)[1]
		return types.ToString(record[name])
	})
}
