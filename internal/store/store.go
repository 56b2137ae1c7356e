// Package store defines the persistence interface for per pull-request
// workflow state and provides an in-memory reference implementation.
package store

import (
	"context"
	"fmt"
)

// StateName identifies one of the known workflow states.
type StateName string

const (
	AwaitingManualReview StateName = "awaiting_manual_review"
	AwaitingCI           StateName = "awaiting_ci"
	StandingBy           StateName = "standing_by"
)

// Known returns true when the state name is one of the defined workflow
// states.
func (s StateName) Known() bool {
	switch s {
	case AwaitingManualReview, AwaitingCI, StandingBy:
		return true
	default:
		return false
	}
}

// WorkflowState is the persistent workflow record of one pull request.
// Exactly one of ReviewID and CommitSHA is populated:
// ReviewID in AwaitingManualReview, CommitSHA in AwaitingCI and StandingBy.
type WorkflowState struct {
	StateName StateName
	ReviewID  string
	CommitSHA string
}

// Validate checks the field population invariant.
func (s *WorkflowState) Validate() error {
	if !s.StateName.Known() {
		return fmt.Errorf("unknown state name: %q", s.StateName)
	}

	if s.StateName == AwaitingManualReview {
		if s.ReviewID == "" || s.CommitSHA != "" {
			return fmt.Errorf("state %s must populate review id and no commit sha", s.StateName)
		}

		return nil
	}

	if s.CommitSHA == "" || s.ReviewID != "" {
		return fmt.Errorf("state %s must populate commit sha and no review id", s.StateName)
	}

	return nil
}

// StateStore persists one WorkflowState per (repository full-name, pull
// request number) key.
//
// Load returns (nil, nil) when no record exists for the key, the absence of a
// record means no workflow is active for the pull request.
// Save fully replaces an existing record, fields that are unset on the passed
// state are cleared, no stale fields survive.
// Delete removes the record, deleting an absent record succeeds.
type StateStore interface {
	Load(ctx context.Context, repo string, prNumber int) (*WorkflowState, error)
	Save(ctx context.Context, repo string, prNumber int, state *WorkflowState) error
	Delete(ctx context.Context, repo string, prNumber int) error
}
