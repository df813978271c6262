package models

// ApplyRequest runs a rule against the records of its entity. An empty
// RecordIDs applies the rule to every record.
type ApplyRequest struct {
	RecordIDs []string `json:"recordIds,omitempty" validate:"dive,required"`
	Commit    bool     `json:"commit,omitempty"`
}
