// types package contains the public API types
// that are shared between the filter core, REST and GraphQL
package types

import "net/http"

// IDField is the attribute that identifies a record within its entity.
const IDField = "id"

// Record is a flat, self-contained data row such as a lead or an activity.
type Record map[string]interface{}

// ID returns the record identifier as a string, or "" when absent.
func (r Record) ID() string {
	if r == nil {
		return ""
	}
	value, ok := r[IDField]
	if !ok || value == nil {
		return ""
	}
	return ToString(value)
}

// Clone returns a copy of the record. List values are copied as well so that
// callers can't reach into the original through a shared slice.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	clone := make(Record, len(r))
	for k, v := range r {
		switch v := v.(type) {
		case []interface{}:
			clone[k] = append([]interface{}(nil), v...)
		case []string:
			clone[k] = append([]string(nil), v...)
		default:
			clone[k] = v
		}
	}
	return clone
}

// Merge returns a copy of the record with the patch applied on top.
func (r Record) Merge(patch Record) Record {
	merged := r.Clone()
	if merged == nil {
		merged = make(Record, len(patch))
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// CloneRecords copies every record in the slice.
func CloneRecords(records []Record) []Record {
	result := make([]Record, len(records))
	for i, r := range records {
		result[i] = r.Clone()
	}
	return result
}

type ModificationResult struct {
	Applied bool   `json:"applied"`
	Value   Record `json:"value"`
}

type QueryResult struct {
	Values []Record `json:"values"`
	Count  int      `json:"count"`
}

// Route represents a request route to be served
type Route struct {
	Method  string
	Pattern string
	Handler http.Handler
}
