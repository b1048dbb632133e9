package model

import "time"

// Playbook is the automation script a job operates on or produces.
type Playbook struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Content     string         `json:"content"`
	ContentType string         `json:"contentType,omitempty"`
	Type        PlaybookType   `json:"type"`
	Status      PlaybookStatus `json:"status"`
	// Version and RunCount are authoritative in the store's counter keys;
	// FindByID overwrites whatever was last marshalled here.
	Version   int64     `json:"version"`
	RunCount  int64     `json:"runCount"`
	CreatedBy string    `json:"createdById,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
