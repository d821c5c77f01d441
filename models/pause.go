package models

import "time"

// PauseInfo is an immutable snapshot of the pause coordinator state.
type PauseInfo struct {
	Active       bool      `json:"active"`
	Reason       string    `json:"reason,omitempty"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	AutoResumeAt time.Time `json:"auto_resume_at,omitempty"`
}
