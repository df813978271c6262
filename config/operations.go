package config

import (
	"fmt"
	"strings"
)

// Operations is the set of write operations the endpoint accepts.
type Operations int

const (
	RecordUpdate Operations = 1 << iota
	RuleCreate
	RuleUpdate
	RuleDelete
)

var operationNames = []struct {
	name string
	op   Operations
}{
	{"RecordUpdate", RecordUpdate},
	{"RuleCreate", RuleCreate},
	{"RuleUpdate", RuleUpdate},
	{"RuleDelete", RuleDelete},
}

// AllOperations enables every write operation.
const AllOperations = RecordUpdate | RuleCreate | RuleUpdate | RuleDelete

func Ops(ops ...string) (Operations, error) {
	var o Operations
	err := o.Add(ops...)
	return o, err
}

func (o *Operations) Set(ops Operations)             { *o |= ops }
func (o *Operations) Clear(ops Operations)           { *o &= ^ops }
func (o Operations) IsSupported(ops Operations) bool { return o&ops == ops }

func (o *Operations) Add(ops ...string) error {
	for _, op := range ops {
		name := strings.TrimSpace(op)
		if name == "" {
			continue
		}
		found := false
		for _, entry := range operationNames {
			if strings.EqualFold(entry.name, name) {
				o.Set(entry.op)
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("invalid operation: %s", op)
		}
	}
	return nil
}

// Names returns the names of the enabled operations.
func (o Operations) Names() []string {
	names := make([]string, 0, len(operationNames))
	for _, entry := range operationNames {
		if o.IsSupported(entry.op) {
			names = append(names, entry.name)
		}
	}
	return names
}

func (o Operations) String() string {
	return strings.Join(o.Names(), ",")
}
