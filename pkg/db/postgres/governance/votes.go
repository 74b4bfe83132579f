package governance

import (
	"context"
	"fmt"

	govmodels "github.com/daoscope/govcollector/pkg/db/models/governance"
	"github.com/jackc/pgx/v5"
)

func (db *DB) initVotes(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS votes (
			id TEXT PRIMARY KEY,
			proposal_id TEXT NOT NULL REFERENCES proposals(id),
			voter_address TEXT NOT NULL,
			voting_power DOUBLE PRECISION NOT NULL DEFAULT 0,
			choice INTEGER NOT NULL DEFAULT 0,
			choice_raw TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			cast_at TIMESTAMPTZ NOT NULL,
			UNIQUE (proposal_id, voter_address)
		)
	`
	return db.Exec(ctx, query)
}

// StoreVotes inserts votes with insert-or-ignore semantics on (proposal_id, voter_address),
// then sets the proposal's vote_count to the number of stored rows and marks it synced.
// An empty slice is a no-op so that a transiently empty API answer is fetched again next run.
func (db *DB) StoreVotes(ctx context.Context, proposalID string, votes []*govmodels.Vote) (int, error) {
	if len(votes) == 0 {
		return 0, nil
	}

	insert := `
		INSERT INTO votes (
			id, proposal_id, voter_address, voting_power, choice, choice_raw, reason, cast_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (proposal_id, voter_address) DO NOTHING
	`

	var stored int
	err := db.BeginFunc(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, v := range votes {
			batch.Queue(insert,
				govmodels.VoteID(proposalID, v.VoterAddress), proposalID, v.VoterAddress,
				v.VotingPower, v.Choice, v.ChoiceRaw, v.Reason, v.CastAt.UTC(),
			)
		}
		if err := db.ExecuteBatch(txCtx, batch); err != nil {
			return err
		}

		return tx.QueryRow(txCtx, `
			UPDATE proposals
			SET vote_count = (SELECT COUNT(*) FROM votes WHERE proposal_id = $1),
				votes_synced = TRUE,
				updated_at = NOW()
			WHERE id = $1
			RETURNING vote_count
		`, proposalID).Scan(&stored)
	})
	if err != nil {
		return 0, fmt.Errorf("store votes for %s: %w", proposalID, err)
	}
	return stored, nil
}

// ListVotes returns the stored votes of a proposal ordered by voting power.
func (db *DB) ListVotes(ctx context.Context, proposalID string) ([]govmodels.Vote, error) {
	rows, err := db.Query(ctx, `
		SELECT id, proposal_id, voter_address, voting_power, choice, choice_raw, reason, cast_at
		FROM votes
		WHERE proposal_id = $1
		ORDER BY voting_power DESC, voter_address
	`, proposalID)
	if err != nil {
		return nil, fmt.Errorf("list votes %s: %w", proposalID, err)
	}
	defer rows.Close()

	out := make([]govmodels.Vote, 0)
	for rows.Next() {
		var v govmodels.Vote
		if err := rows.Scan(
			&v.ID, &v.ProposalID, &v.VoterAddress, &v.VotingPower, &v.Choice, &v.ChoiceRaw, &v.Reason, &v.CastAt,
		); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
