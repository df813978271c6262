package models

// RowsUpdate defines an update operation on a single record.
type RowsUpdate struct {
	Changeset []Changeset `json:"changeset" validate:"required,min=1,dive"`
}

// Changeset is a column and associated value to be used when updating a record.
type Changeset struct {
	// The name of the column to be updated.
	Column string `json:"column" validate:"required"`

	// The new value. A null value clears the column.
	Value interface{} `json:"value"`
}
