package model

import "time"

// MrActivity represents a change record for a merge request field.
type MrActivity struct {
	ID           int       `json:"id"`
	MrID         int       `json:"mr_id"`
	FieldChanged string    `json:"field_changed"`
	OldValue     string    `json:"old_value"`
	NewValue     string    `json:"new_value"`
	ChangedBy    string    `json:"changed_by"`
	CreatedAt    time.Time `json:"created_at"`
}
