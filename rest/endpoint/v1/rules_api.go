package endpoint

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/crmkit/crm-data-apis/config"
	"github.com/crmkit/crm-data-apis/filter"
	e "github.com/crmkit/crm-data-apis/rest/errors"
	m "github.com/crmkit/crm-data-apis/rest/models"
	t "github.com/crmkit/crm-data-apis/rest/translator"
	"github.com/crmkit/crm-data-apis/rules"
	"github.com/crmkit/crm-data-apis/store"
)

// ruleResponse is a rule with its rendered description.
type ruleResponse struct {
	rules.Rule
	Description string `json:"description"`
}

func (s *routeList) toResponse(rule rules.Rule) ruleResponse {
	var registry *filter.Registry
	if entity, err := s.catalog.Entity(rule.Entity); err == nil {
		registry = entity.Registry
	}
	return ruleResponse{Rule: rule, Description: rule.Describe(registry)}
}

func (s *routeList) GetRules(w http.ResponseWriter, r *http.Request) {
	list, err := s.ruleStore.List(r.Context())
	if err != nil {
		s.logger.Error("unable to list rules", "error", err)
		RespondWithDomainError(w, err)
		return
	}

	entityName := r.URL.Query().Get("entity")
	result := make([]ruleResponse, 0, len(list))
	for _, rule := range list {
		if entityName == "" || rule.Entity == entityName {
			result = append(result, s.toResponse(rule))
		}
	}

	RespondJSONObjectWithCode(w, http.StatusOK, result)
}

func (s *routeList) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.ruleStore.Get(r.Context(), s.params(r, "ruleId"))
	if err != nil {
		RespondWithDomainError(w, err)
		return
	}

	RespondJSONObjectWithCode(w, http.StatusOK, s.toResponse(rule))
}

func (s *routeList) AddRule(w http.ResponseWriter, r *http.Request) {
	if !s.supports(w, config.RuleCreate) {
		return
	}

	var ruleAdd m.RuleAdd
	if err := parseAndValidatePayload(&ruleAdd, r); err != nil {
		RespondWithError(w, fmt.Errorf("unable to parse payload: %s", err), http.StatusBadRequest)
		return
	}

	if _, err := s.catalog.Entity(ruleAdd.Entity); err != nil {
		RespondWithError(w, err, http.StatusBadRequest)
		return
	}

	rule := rules.New(ruleAdd.Name, ruleAdd.Entity)
	if ruleAdd.Enabled != nil {
		rule.Enabled = *ruleAdd.Enabled
	}

	s.putRule(w, r, rule, http.StatusCreated)
}

func (s *routeList) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if !s.supports(w, config.RuleDelete) {
		return
	}

	ctx := r.Context()
	rule, err := s.ruleStore.Get(ctx, s.params(r, "ruleId"))
	if err != nil {
		RespondWithDomainError(w, err)
		return
	}
	if _, err := rule.Delete(); err != nil {
		RespondWithDomainError(w, err)
		return
	}
	if err := s.ruleStore.Delete(ctx, rule.ID); err != nil {
		RespondWithDomainError(w, err)
		return
	}

	s.logger.Info("rule deleted", "rule", rule.ID)
	RespondJSONObjectWithCode(w, http.StatusNoContent, nil)
}

func (s *routeList) SaveRule(w http.ResponseWriter, r *http.Request) {
	s.edit(w, r, func(rule rules.Rule) (rules.Rule, error) {
		entity, err := s.catalog.Entity(rule.Entity)
		if err != nil {
			return rule, e.NewBadRequestError(err.Error())
		}
		return rule.Save(entity.Registry)
	})
}

func (s *routeList) ToggleRule(w http.ResponseWriter, r *http.Request) {
	s.edit(w, r, rules.Rule.ToggleEnabled)
}

func (s *routeList) AddCondition(w http.ResponseWriter, r *http.Request) {
	var conditionAdd m.ConditionAdd
	if err := parseAndValidatePayload(&conditionAdd, r); err != nil {
		RespondWithError(w, fmt.Errorf("unable to parse payload: %s", err), http.StatusBadRequest)
		return
	}

	condition, err := t.ToCondition(conditionAdd)
	if err != nil {
		RespondWithDomainError(w, err)
		return
	}

	s.edit(w, r, func(rule rules.Rule) (rules.Rule, error) {
		return rule.AddCondition(condition)
	})
}

func (s *routeList) UpdateCondition(w http.ResponseWriter, r *http.Request) {
	var conditionAdd m.ConditionAdd
	if err := parseAndValidatePayload(&conditionAdd, r); err != nil {
		RespondWithError(w, fmt.Errorf("unable to parse payload: %s", err), http.StatusBadRequest)
		return
	}

	condition, err := t.ToCondition(conditionAdd)
	if err != nil {
		RespondWithDomainError(w, err)
		return
	}

	itemID := s.params(r, "itemId")
	s.edit(w, r, func(rule rules.Rule) (rules.Rule, error) {
		return rule.UpdateCondition(itemID, condition)
	})
}

func (s *routeList) DeleteCondition(w http.ResponseWriter, r *http.Request) {
	itemID := s.params(r, "itemId")
	s.edit(w, r, func(rule rules.Rule) (rules.Rule, error) {
		return rule.DeleteCondition(itemID)
	})
}

func (s *routeList) AddAction(w http.ResponseWriter, r *http.Request) {
	var actionAdd m.ActionAdd
	if err := parseAndValidatePayload(&actionAdd, r); err != nil {
		RespondWithError(w, fmt.Errorf("unable to parse payload: %s", err), http.StatusBadRequest)
		return
	}

	action, err := t.ToAction(actionAdd)
	if err != nil {
		RespondWithDomainError(w, err)
		return
	}

	s.edit(w, r, func(rule rules.Rule) (rules.Rule, error) {
		return rule.AddAction(action)
	})
}

func (s *routeList) UpdateAction(w http.ResponseWriter, r *http.Request) {
	var actionAdd m.ActionAdd
	if err := parseAndValidatePayload(&actionAdd, r); err != nil {
		RespondWithError(w, fmt.Errorf("unable to parse payload: %s", err), http.StatusBadRequest)
		return
	}

	action, err := t.ToAction(actionAdd)
	if err != nil {
		RespondWithDomainError(w, err)
		return
	}

	itemID := s.params(r, "itemId")
	s.edit(w, r, func(rule rules.Rule) (rules.Rule, error) {
		return rule.UpdateAction(itemID, action)
	})
}

func (s *routeList) DeleteAction(w http.ResponseWriter, r *http.Request) {
	itemID := s.params(r, "itemId")
	s.edit(w, r, func(rule rules.Rule) (rules.Rule, error) {
		return rule.DeleteAction(itemID)
	})
}

// ApplyRule runs a rule over the records of its entity. Without commit it
// only reports the action results.
func (s *routeList) ApplyRule(w http.ResponseWriter, r *http.Request) {
	var applyRequest m.ApplyRequest
	if err := parseAndValidatePayload(&applyRequest, r); err != nil {
		RespondWithError(w, fmt.Errorf("unable to parse payload: %s", err), http.StatusBadRequest)
		return
	}
	if applyRequest.Commit && !s.supports(w, config.RecordUpdate) {
		return
	}

	ctx := r.Context()
	rule, err := s.ruleStore.Get(ctx, s.params(r, "ruleId"))
	if err != nil {
		RespondWithDomainError(w, err)
		return
	}

	entity, err := s.catalog.Entity(rule.Entity)
	if err != nil {
		RespondWithError(w, err, http.StatusConflict)
		return
	}

	outcome, err := store.ApplyRule(ctx, entity, rule, s.config.UnknownOperatorPolicy(), applyRequest.RecordIDs, applyRequest.Commit)
	if err != nil {
		if e.StatusCode(err) == http.StatusInternalServerError {
			updated := 0
			if outcome != nil {
				updated = outcome.Updated
			}
			s.logger.Error("unable to apply rule", "rule", rule.ID, "updated", updated, "error", err)
		}
		RespondWithDomainError(w, err)
		return
	}

	if applyRequest.Commit {
		s.logger.Info("rule applied", "rule", rule.ID, "matched", outcome.Matched, "updated", outcome.Updated)
	}
	RespondJSONObjectWithCode(w, http.StatusOK, outcome)
}

// edit loads the rule, runs the transition and stores the result. Every
// edit requires the RuleUpdate operation.
func (s *routeList) edit(w http.ResponseWriter, r *http.Request, transition func(rules.Rule) (rules.Rule, error)) {
	if !s.supports(w, config.RuleUpdate) {
		return
	}

	rule, err := s.ruleStore.Get(r.Context(), s.params(r, "ruleId"))
	if err != nil {
		RespondWithDomainError(w, err)
		return
	}

	next, err := transition(rule)
	if err != nil {
		RespondWithDomainError(w, err)
		return
	}

	s.putRule(w, r, next, http.StatusOK)
}

func (s *routeList) putRule(w http.ResponseWriter, r *http.Request, rule rules.Rule, code int) {
	stored, err := s.ruleStore.Put(r.Context(), rule)
	if err != nil {
		if errors.Is(err, rules.ErrRuleDeleted) || errors.Is(err, rules.ErrInvalidRule) {
			RespondWithDomainError(w, err)
			return
		}
		msg := "unable to store rule"
		s.logger.Error(msg, "rule", rule.ID, "error", err)
		RespondWithError(w, fmt.Errorf("%s: %s", msg, err), http.StatusInternalServerError)
		return
	}

	RespondJSONObjectWithCode(w, code, s.toResponse(stored))
}
