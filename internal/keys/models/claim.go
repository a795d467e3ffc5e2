package models

import "time"

// ClaimType distinguishes a transfer between participants (portability) from
// a relinquishment of the key by its current holder (ownership).
type ClaimType string

const (
	ClaimTypeOwnership   ClaimType = "OWNERSHIP"
	ClaimTypePortability ClaimType = "PORTABILITY"
)

// ClaimStatus mirrors the directory-side claim status vocabulary.
type ClaimStatus string

const (
	ClaimStatusOpen              ClaimStatus = "OPEN"
	ClaimStatusWaitingResolution ClaimStatus = "WAITING_RESOLUTION"
	ClaimStatusConfirmed         ClaimStatus = "CONFIRMED"
	ClaimStatusCancelled         ClaimStatus = "CANCELLED"
	ClaimStatusCompleted         ClaimStatus = "COMPLETED"
)

// IsTerminal reports whether the directory will never change this status
// again. Terminal mirrors must not regress to a live status.
func (s ClaimStatus) IsTerminal() bool {
	return s == ClaimStatusCancelled || s == ClaimStatusCompleted
}

// ClaimReason is the closed set of reasons attached to closing transitions.
// It selects the cancellation code sent to the directory and is kept for
// audit.
type ClaimReason string

const (
	ReasonUserRequested    ClaimReason = "USER_REQUESTED"
	ReasonDefaultOperation ClaimReason = "DEFAULT_OPERATION"
	ReasonFraud            ClaimReason = "FRAUD"
	ReasonAccountClosure   ClaimReason = "ACCOUNT_CLOSURE"
)

// Claim is the local mirror of a directory-side claim. DirectoryModifiedAt
// is the watermark: a polled snapshot at or before it is stale and skipped.
type Claim struct {
	ID          string
	KeyValue    string
	Type        ClaimType
	Status      ClaimStatus
	DonorISPB   string
	ClaimerISPB string

	ResolutionDeadline  time.Time
	DirectoryModifiedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Supersedes reports whether this snapshot carries newer information than
// the stored mirror. A missing mirror is always superseded, a terminal
// mirror never is, and otherwise the snapshot's watermark must be strictly
// ahead of the stored one.
func (c *Claim) Supersedes(existing *Claim) bool {
	if existing == nil {
		return true
	}
	if existing.Status.IsTerminal() {
		return false
	}
	return c.DirectoryModifiedAt.After(existing.DirectoryModifiedAt)
}

// Clone returns a copy safe to mutate.
func (c *Claim) Clone() *Claim {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}
