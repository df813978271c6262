package store

import (
	"context"
	"fmt"

	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/rules"
	"github.com/crmkit/crm-data-apis/types"
)

// ApplyOutcome summarizes a rule run over the records of an entity.
type ApplyOutcome struct {
	Matched int                  `json:"matched"`
	Updated int                  `json:"updated"`
	Results []rules.ActionResult `json:"results"`
}

// ApplyRule runs the rule against the given records of the entity, or all of
// them when no ids are given. With commit the rule must validate against the
// entity fields, and the merged patch of every matching record is written
// through the repository. Writes are not transactional: when one fails the
// outcome so far is returned along with the error.
func ApplyRule(
	ctx context.Context,
	entity *Entity,
	rule rules.Rule,
	policy filter.UnknownOperatorPolicy,
	recordIDs []string,
	commit bool,
) (*ApplyOutcome, error) {
	if rule.Entity != entity.Name() {
		return nil, fmt.Errorf("%w: rule %s targets %s, not %s", rules.ErrInvalidRule, rule.ID, rule.Entity, entity.Name())
	}
	if commit {
		if err := rule.Validate(entity.Registry); err != nil {
			return nil, err
		}
	}

	records, err := selectRecords(ctx, entity.Repository, recordIDs)
	if err != nil {
		return nil, err
	}

	evaluator := filter.NewEvaluator(filter.WithRegistry(entity.Registry), filter.WithUnknownOperatorPolicy(policy))
	outcome := &ApplyOutcome{Results: make([]rules.ActionResult, 0)}
	for _, record := range records {
		results := rules.Apply(rule, rules.Context{Record: record, Registry: entity.Registry, Evaluator: evaluator})
		if len(results) == 0 {
			continue
		}
		outcome.Matched++
		outcome.Results = append(outcome.Results, results...)

		if !commit {
			continue
		}
		if patch := rules.MergePatches(results); patch != nil {
			if _, err := entity.Repository.Update(ctx, record.ID(), patch); err != nil {
				return outcome, fmt.Errorf("record %s, after %d updates: %w", record.ID(), outcome.Updated, err)
			}
			outcome.Updated++
		}
	}
	return outcome, nil
}

func selectRecords(ctx context.Context, repository Repository, ids []string) ([]types.Record, error) {
	if len(ids) == 0 {
		result, err := repository.List(ctx, Query{})
		if err != nil {
			return nil, err
		}
		return result.Values, nil
	}

	records := make([]types.Record, 0, len(ids))
	for _, id := range ids {
		record, err := repository.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
