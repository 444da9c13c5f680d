// Package store defines the vote store contract (C3): the durable mapping
// of vote metadata, commitments, and reveals. Implementations must enforce
// uniqueness atomically — the engine never reads then writes to check for
// a conflict itself.
package store

import (
	"context"

	"github.com/luckeedao/votecore/pkg/model"
)

// Store is the durable backend a vote engine is built on. Every method may
// return verr.StorageError for a back-end I/O failure. An expired ctx is
// not reported as verr.Timeout: Postgres returns a verr.StorageError
// wrapping the context error, and Memory does not consult ctx.
type Store interface {
	InsertVote(ctx context.Context, v *model.Vote) error
	GetVote(ctx context.Context, id string) (*model.Vote, error)
	ListVotes(ctx context.Context, filter model.Filter, page, size int) (*model.Page, error)
	UpdateVoteStatus(ctx context.Context, id string, status model.Status) error
	UpdateVoteResults(ctx context.Context, id string, results *model.VoteResults) error

	InsertCommitment(ctx context.Context, c *model.Commitment) error
	GetCommitment(ctx context.Context, voteID, voter string) (*model.Commitment, error)
	ListCommitments(ctx context.Context, voteID string) ([]*model.Commitment, error)

	InsertReveal(ctx context.Context, r *model.Reveal) error
	GetReveal(ctx context.Context, voteID, voter string) (*model.Reveal, error)
	ListReveals(ctx context.Context, voteID string) ([]*model.Reveal, error)

	// DeleteVote removes a vote and its commitments/reveals. Operational
	// tooling only — not reachable from any client-facing flow.
	DeleteVote(ctx context.Context, id string) error
}
