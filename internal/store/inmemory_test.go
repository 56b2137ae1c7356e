package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLoadAbsentRecord(t *testing.T) {
	s := NewInMemory()

	state, err := s.Load(context.Background(), "testman/repo", 1)
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestInMemorySaveAndLoad(t *testing.T) {
	s := NewInMemory()

	saved := WorkflowState{StateName: AwaitingManualReview, ReviewID: "abc"}
	require.NoError(t, s.Save(context.Background(), "testman/repo", 1, &saved))

	loaded, err := s.Load(context.Background(), "testman/repo", 1)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, saved, *loaded)
}

func TestInMemorySaveReplacesAllFields(t *testing.T) {
	s := NewInMemory()

	require.NoError(t, s.Save(context.Background(), "testman/repo", 1,
		&WorkflowState{StateName: AwaitingManualReview, ReviewID: "abc"}))
	require.NoError(t, s.Save(context.Background(), "testman/repo", 1,
		&WorkflowState{StateName: AwaitingCI, CommitSHA: "deadbeef"}))

	loaded, err := s.Load(context.Background(), "testman/repo", 1)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, AwaitingCI, loaded.StateName)
	assert.Equal(t, "deadbeef", loaded.CommitSHA)
	assert.Empty(t, loaded.ReviewID, "review id of the previous record survived the replace")
}

func TestInMemoryRecordsAreIsolatedPerKey(t *testing.T) {
	s := NewInMemory()

	require.NoError(t, s.Save(context.Background(), "testman/repo", 1,
		&WorkflowState{StateName: AwaitingManualReview, ReviewID: "abc"}))

	state, err := s.Load(context.Background(), "testman/repo", 2)
	require.NoError(t, err)
	assert.Nil(t, state)

	state, err = s.Load(context.Background(), "testman/other", 1)
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestInMemoryDelete(t *testing.T) {
	s := NewInMemory()

	require.NoError(t, s.Save(context.Background(), "testman/repo", 1,
		&WorkflowState{StateName: StandingBy, CommitSHA: "deadbeef"}))
	require.NoError(t, s.Delete(context.Background(), "testman/repo", 1))

	state, err := s.Load(context.Background(), "testman/repo", 1)
	require.NoError(t, err)
	assert.Nil(t, state)

	// deleting an absent record succeeds
	require.NoError(t, s.Delete(context.Background(), "testman/repo", 1))
}

func TestInMemoryLoadReturnsCopy(t *testing.T) {
	s := NewInMemory()

	require.NoError(t, s.Save(context.Background(), "testman/repo", 1,
		&WorkflowState{StateName: AwaitingManualReview, ReviewID: "abc"}))

	loaded, err := s.Load(context.Background(), "testman/repo", 1)
	require.NoError(t, err)
	loaded.ReviewID = "mutated"

	reloaded, err := s.Load(context.Background(), "testman/repo", 1)
	require.NoError(t, err)
	assert.Equal(t, "abc", reloaded.ReviewID)
}

func TestWorkflowStateValidate(t *testing.T) {
	testcases := []struct {
		name      string
		state     WorkflowState
		expectErr bool
	}{
		{
			name:  "awaitingManualReview",
			state: WorkflowState{StateName: AwaitingManualReview, ReviewID: "abc"},
		},
		{
			name:  "awaitingCI",
			state: WorkflowState{StateName: AwaitingCI, CommitSHA: "deadbeef"},
		},
		{
			name:  "standingBy",
			state: WorkflowState{StateName: StandingBy, CommitSHA: "deadbeef"},
		},
		{
			name:      "unknownStateName",
			state:     WorkflowState{StateName: "time_travelling", ReviewID: "abc"},
			expectErr: true,
		},
		{
			name:      "reviewStateMissesReviewID",
			state:     WorkflowState{StateName: AwaitingManualReview},
			expectErr: true,
		},
		{
			name:      "reviewStateCarriesCommit",
			state:     WorkflowState{StateName: AwaitingManualReview, ReviewID: "abc", CommitSHA: "deadbeef"},
			expectErr: true,
		},
		{
			name:      "ciStateMissesCommit",
			state:     WorkflowState{StateName: AwaitingCI},
			expectErr: true,
		},
		{
			name:      "ciStateCarriesReviewID",
			state:     WorkflowState{StateName: AwaitingCI, ReviewID: "abc", CommitSHA: "deadbeef"},
			expectErr: true,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.state.Validate()
			if tc.expectErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
		})
	}
}
