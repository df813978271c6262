package rules

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/crmkit/crm-data-apis/filter"
)

// The transitions below never modify the receiver. Edits to conditions or
// actions move the rule back to draft.

func (r Rule) edit() (Rule, error) {
	if r.State == Deleted {
		return r, ErrRuleDeleted
	}
	next := r.Clone()
	next.State = Draft
	return next, nil
}

func (r Rule) AddCondition(c Condition) (Rule, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Connector == "" {
		c.Connector = filter.And
	}
	if err := ValidateCondition(c, nil); err != nil {
		return r, err
	}
	if _, exists := r.Condition(c.ID); exists {
		return r, fmt.Errorf("%w: %s", ErrDuplicateID, c.ID)
	}

	next, err := r.edit()
	if err != nil {
		return r, err
	}
	next.Conditions = append(next.Conditions, cloneCondition(c))
	return next, nil
}

// UpdateCondition replaces the condition with the given id, keeping its id.
func (r Rule) UpdateCondition(id string, c Condition) (Rule, error) {
	c.ID = id
	if c.Connector == "" {
		c.Connector = filter.And
	}
	if err := ValidateCondition(c, nil); err != nil {
		return r, err
	}

	next, err := r.edit()
	if err != nil {
		return r, err
	}
	for i := range next.Conditions {
		if next.Conditions[i].ID == id {
			next.Conditions[i] = cloneCondition(c)
			return next, nil
		}
	}
	return r, fmt.Errorf("%w: %s", ErrConditionNotFound, id)
}

func (r Rule) DeleteCondition(id string) (Rule, error) {
	next, err := r.edit()
	if err != nil {
		return r, err
	}
	for i := range next.Conditions {
		if next.Conditions[i].ID == id {
			next.Conditions = append(next.Conditions[:i], next.Conditions[i+1:]...)
			return next, nil
		}
	}
	return r, fmt.Errorf("%w: %s", ErrConditionNotFound, id)
}

func (r Rule) AddAction(a Action) (Rule, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if err := ValidateAction(a, nil); err != nil {
		return r, err
	}
	if _, exists := r.Action(a.ID); exists {
		return r, fmt.Errorf("%w: %s", ErrDuplicateID, a.ID)
	}

	next, err := r.edit()
	if err != nil {
		return r, err
	}
	next.Actions = append(next.Actions, cloneAction(a))
	return next, nil
}

// UpdateAction replaces the action with the given id, keeping its id.
func (r Rule) UpdateAction(id string, a Action) (Rule, error) {
	a.ID = id
	if err := ValidateAction(a, nil); err != nil {
		return r, err
	}

	next, err := r.edit()
	if err != nil {
		return r, err
	}
	for i := range next.Actions {
		if next.Actions[i].ID == id {
			next.Actions[i] = cloneAction(a)
			return next, nil
		}
	}
	return r, fmt.Errorf("%w: %s", ErrActionNotFound, id)
}

func (r Rule) DeleteAction(id string) (Rule, error) {
	next, err := r.edit()
	if err != nil {
		return r, err
	}
	for i := range next.Actions {
		if next.Actions[i].ID == id {
			next.Actions = append(next.Actions[:i], next.Actions[i+1:]...)
			return next, nil
		}
	}
	return r, fmt.Errorf("%w: %s", ErrActionNotFound, id)
}

// ToggleEnabled flips the enabled flag without changing the state.
func (r Rule) ToggleEnabled() (Rule, error) {
	if r.State == Deleted {
		return r, ErrRuleDeleted
	}
	next := r.Clone()
	next.Enabled = !next.Enabled
	return next, nil
}

// Save validates the rule against the entity registry and marks it saved.
func (r Rule) Save(registry *filter.Registry) (Rule, error) {
	if r.State == Deleted {
		return r, ErrRuleDeleted
	}
	if err := r.Validate(registry); err != nil {
		return r, err
	}
	next := r.Clone()
	next.State = Saved
	next.Version = SchemaVersion
	return next, nil
}

// Delete moves the rule to its terminal state.
func (r Rule) Delete() (Rule, error) {
	if r.State == Deleted {
		return r, ErrRuleDeleted
	}
	next := r.Clone()
	next.State = Deleted
	next.Enabled = false
	return next, nil
}
