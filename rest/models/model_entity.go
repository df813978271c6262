package models

// Entity describes a record collection and the fields it can be filtered on.
type Entity struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

type Field struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Label      string `json:"label,omitempty"`
	Searchable bool   `json:"searchable,omitempty"`
}
