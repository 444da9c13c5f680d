// Package phase computes a Vote's temporal phase from wall-clock time and
// gates writes accordingly (C4). It is a pure function over (model.Vote,
// time.Time) — no state, no I/O. The Vote's Status column is only an
// advisory cache; callers that must be exact (verification, gating)
// compute the phase here rather than trusting it.
package phase

import (
	"time"

	"github.com/luckeedao/votecore/pkg/model"
)

// Phase is the wall-clock-derived activity state of a vote.
type Phase string

const (
	Created         Phase = "created"
	CommitmentPhase Phase = "commitment_phase"
	Between         Phase = "between" // commitment closed, reveal not yet open
	RevealPhase     Phase = "reveal_phase"
	Ended           Phase = "ended" // reveal window closed, results not yet computed
	Completed       Phase = "completed"
	Cancelled       Phase = "cancelled"
)

// Of computes the authoritative phase of v at now. Every interval is
// closed-open: [start, end) — a request arriving exactly at a boundary
// timestamp falls into the phase that starts there, never the one that
// just ended.
func Of(v *model.Vote, now time.Time) Phase {
	switch v.Status {
	case model.StatusCancelled:
		return Cancelled
	case model.StatusCompleted:
		return Completed
	}

	switch {
	case now.Before(v.CommitmentStart):
		return Created
	case inHalfOpen(now, v.CommitmentStart, v.CommitmentEnd):
		return CommitmentPhase
	case inHalfOpen(now, v.CommitmentEnd, v.RevealStart):
		return Between
	case inHalfOpen(now, v.RevealStart, v.RevealEnd):
		return RevealPhase
	default:
		return Ended
	}
}

func inHalfOpen(now, start, end time.Time) bool {
	return !now.Before(start) && now.Before(end)
}

// CanCommit reports whether a commit is legal at phase p.
func CanCommit(p Phase) bool { return p == CommitmentPhase }

// CanReveal reports whether a reveal is legal at phase p.
func CanReveal(p Phase) bool { return p == RevealPhase }

// CanComputeResults reports whether results may be computed/returned at
// phase p.
func CanComputeResults(p Phase) bool { return p == Ended || p == Completed }
