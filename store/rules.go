package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/crmkit/crm-data-apis/auth"
	"github.com/crmkit/crm-data-apis/rules"
)

var ErrRuleNotFound = errors.New("rule not found")

type RuleStore interface {
	List(ctx context.Context) ([]rules.Rule, error)
	Get(ctx context.Context, id string) (rules.Rule, error)
	// Put stores the rule, stamping it with the acting user and the time.
	Put(ctx context.Context, rule rules.Rule) (rules.Rule, error)
	Delete(ctx context.Context, id string) error
}

// MemoryRuleStore keeps rules in process. When created with a path it
// rewrites the rules document after every change.
type MemoryRuleStore struct {
	mu    sync.RWMutex
	rules map[string]rules.Rule
	order []string
	path  string
	now   func() time.Time
}

func NewMemoryRuleStore(initial ...rules.Rule) *MemoryRuleStore {
	s := &MemoryRuleStore{
		rules: make(map[string]rules.Rule, len(initial)),
		now:   time.Now,
	}
	for _, r := range initial {
		s.set(r)
	}
	return s
}

// LoadRuleStore reads the rules document at path, if any, and persists
// further changes to it.
func LoadRuleStore(path string) (*MemoryRuleStore, error) {
	s := NewMemoryRuleStore()
	s.path = path

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	loaded, err := rules.Decode(f, rules.FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, r := range loaded {
		s.set(r)
	}
	return s, nil
}

func (s *MemoryRuleStore) set(r rules.Rule) {
	if _, ok := s.rules[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.rules[r.ID] = r.Clone()
}

func (s *MemoryRuleStore) List(ctx context.Context) ([]rules.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(), nil
}

func (s *MemoryRuleStore) list() []rules.Rule {
	result := make([]rules.Rule, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.rules[id].Clone())
	}
	return result
}

func (s *MemoryRuleStore) Get(ctx context.Context, id string) (rules.Rule, error) {
	if err := ctx.Err(); err != nil {
		return rules.Rule{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok {
		return rules.Rule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	return r.Clone(), nil
}

func (s *MemoryRuleStore) Put(ctx context.Context, rule rules.Rule) (rules.Rule, error) {
	if err := ctx.Err(); err != nil {
		return rules.Rule{}, err
	}
	if rule.ID == "" {
		return rules.Rule{}, fmt.Errorf("%w: id is required", rules.ErrInvalidRule)
	}
	if rule.State == rules.Deleted {
		return rules.Rule{}, fmt.Errorf("%w: %s", rules.ErrRuleDeleted, rule.ID)
	}

	stamped := rule.Clone()
	stamped.UpdatedBy = auth.ContextUser(ctx)
	stamped.UpdatedAt = s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.commit(func() { s.set(stamped) }); err != nil {
		return rules.Rule{}, err
	}
	return stamped.Clone(), nil
}

func (s *MemoryRuleStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	return s.commit(func() {
		delete(s.rules, id)
		for i, existing := range s.order {
			if existing == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	})
}

// commit applies the change and persists the result. A failed write rolls
// the change back. Callers hold the write lock.
func (s *MemoryRuleStore) commit(change func()) error {
	if s.path == "" {
		change()
		return nil
	}

	previous := make(map[string]rules.Rule, len(s.rules))
	for id, r := range s.rules {
		previous[id] = r
	}
	previousOrder := append([]string(nil), s.order...)

	change()
	if err := s.persist(); err != nil {
		s.rules, s.order = previous, previousOrder
		return err
	}
	return nil
}

// persist writes the document next to the target and renames it into place.
func (s *MemoryRuleStore) persist() error {
	if s.path == "" {
		return nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".rules-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := rules.Encode(tmp, rules.FormatFromPath(s.path), s.list()); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
