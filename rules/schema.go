package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrUnsupportedVersion = errors.New("unsupported rules document version")

// Document is the serialized form of a rule set.
type Document struct {
	Version int    `json:"version" yaml:"version"`
	Rules   []Rule `json:"rules" yaml:"rules"`
}

type Format int

const (
	JSON Format = iota
	YAML
)

// FormatFromPath picks the format from a file extension, defaulting to YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSON
	}
	return YAML
}

// Encode writes the rules as a versioned document. Deleted rules are left out.
func Encode(w io.Writer, format Format, rules []Rule) error {
	doc := Document{Version: SchemaVersion, Rules: make([]Rule, 0, len(rules))}
	for _, r := range rules {
		if r.State != Deleted {
			doc.Rules = append(doc.Rules, r)
		}
	}

	if format == JSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(doc)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return err
	}
	return encoder.Close()
}

// Decode reads a versioned document and validates its rules structurally.
func Decode(r io.Reader, format Format) ([]Rule, error) {
	var doc Document
	var err error
	if format == JSON {
		err = json.NewDecoder(r).Decode(&doc)
	} else {
		err = yaml.NewDecoder(r).Decode(&doc)
	}
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("unable to decode rules document: %w", err)
	}
	if err == io.EOF {
		return []Rule{}, nil
	}

	if doc.Version < 1 || doc.Version > SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}

	ids := make(map[string]bool, len(doc.Rules))
	result := make([]Rule, 0, len(doc.Rules))
	for i, rule := range doc.Rules {
		if rule.ID == "" || ids[rule.ID] {
			return nil, fmt.Errorf("rule %d: %w %q", i, ErrDuplicateID, rule.ID)
		}
		ids[rule.ID] = true
		if rule.Version == 0 {
			rule.Version = doc.Version
		}
		if rule.State == "" {
			rule.State = Draft
		}
		if rule.Conditions == nil {
			rule.Conditions = []Condition{}
		}
		if rule.Actions == nil {
			rule.Actions = []Action{}
		}
		if err := rule.Validate(nil); err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		if rule.State == Deleted {
			continue
		}
		result = append(result, rule)
	}
	return result, nil
}
