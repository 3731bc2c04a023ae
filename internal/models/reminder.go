package models

import "time"

type Reminder struct {
	ID          int64      `json:"id" db:"id"`
	TargetID    string     `json:"target_id" db:"target_id"`
	RequesterID string     `json:"requester_id" db:"requester_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	RemindAt    time.Time  `json:"remind_at" db:"remind_at"`
	FiredAt     *time.Time `json:"fired_at,omitempty" db:"fired_at"`
}

func (r *Reminder) Fired() bool {
	return r.FiredAt != nil
}

// ReminderRequest is an inbound reply considered for admission.
type ReminderRequest struct {
	RequesterID string
	TargetID    string
	RequestedAt time.Time
	Content     string
}

type OutcomeKind int

const (
	OutcomeIgnored OutcomeKind = iota
	OutcomeRateLimited
	OutcomeDuplicate
	OutcomeCreated
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeCreated:
		return "created"
	case OutcomeError:
		return "error"
	}
	return "unknown"
}

// Outcome is the admission decision. Reminder is set only for OutcomeCreated,
// Err only for OutcomeError.
type Outcome struct {
	Kind     OutcomeKind
	Reminder *Reminder
	Err      error
}
