package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simplesurance/pulljoy/internal/store"
)

var _ store.StateStore = (*StateRepo)(nil)

// StateRepo is the SQLite implementation of store.StateStore.
type StateRepo struct {
	db *DB
}

func NewStateRepo(db *DB) *StateRepo {
	return &StateRepo{db: db}
}

func (r *StateRepo) Load(ctx context.Context, repo string, prNumber int) (*store.WorkflowState, error) {
	const query = `
		SELECT state_name, review_id, commit_sha
		FROM workflow_states
		WHERE repo_full_name = ? AND pr_number = ?
	`

	var state store.WorkflowState

	row := r.db.Reader.QueryRowContext(ctx, query, repo, prNumber)
	err := row.Scan(&state.StateName, &state.ReviewID, &state.CommitSHA)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("load workflow state %s#%d: %w", repo, prNumber, err)
	}

	return &state, nil
}

// Save inserts or fully replaces the record for the key.
// Fields that are unset on the passed state are stored as empty strings, a
// review id never leaks into a CI-tracking state or vice versa.
func (r *StateRepo) Save(ctx context.Context, repo string, prNumber int, state *store.WorkflowState) error {
	const query = `
		INSERT INTO workflow_states (repo_full_name, pr_number, state_name, review_id, commit_sha, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(repo_full_name, pr_number) DO UPDATE SET
			state_name = excluded.state_name,
			review_id = excluded.review_id,
			commit_sha = excluded.commit_sha,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		repo, prNumber, string(state.StateName), state.ReviewID, state.CommitSHA,
	)
	if err != nil {
		return fmt.Errorf("save workflow state %s#%d: %w", repo, prNumber, err)
	}

	return nil
}

func (r *StateRepo) Delete(ctx context.Context, repo string, prNumber int) error {
	const query = `DELETE FROM workflow_states WHERE repo_full_name = ? AND pr_number = ?`

	_, err := r.db.Writer.ExecContext(ctx, query, repo, prNumber)
	if err != nil {
		return fmt.Errorf("delete workflow state %s#%d: %w", repo, prNumber, err)
	}

	return nil
}
