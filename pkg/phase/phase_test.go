package phase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/luckeedao/votecore/pkg/model"
)

func newTestVote(base time.Time) *model.Vote {
	return &model.Vote{
		Status:          model.StatusCreated,
		CreatedAt:       base,
		CommitmentStart: base,
		CommitmentEnd:   base.Add(time.Hour),
		RevealStart:     base.Add(time.Hour),
		RevealEnd:       base.Add(2 * time.Hour),
	}
}

func TestPhaseTransitions(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v := newTestVote(base)

	assert.Equal(t, Created, Of(v, base.Add(-time.Second)))
	assert.Equal(t, CommitmentPhase, Of(v, base))
	assert.Equal(t, CommitmentPhase, Of(v, base.Add(59*time.Minute)))
	assert.Equal(t, RevealPhase, Of(v, base.Add(time.Hour)))
	assert.Equal(t, RevealPhase, Of(v, base.Add(119*time.Minute)))
	assert.Equal(t, Ended, Of(v, base.Add(2*time.Hour)))
}

// P8 (phase-boundary exclusion): a commit at now = commitment_end is
// rejected; a commit at commitment_end - epsilon succeeds.
func TestPhaseBoundaryExclusion(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v := newTestVote(base)

	justBefore := v.CommitmentEnd.Add(-time.Nanosecond)
	assert.True(t, CanCommit(Of(v, justBefore)))
	assert.False(t, CanCommit(Of(v, v.CommitmentEnd)))
}

func TestBetweenPhaseBlocksBoth(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v := newTestVote(base)
	v.RevealStart = v.CommitmentEnd.Add(time.Minute) // leave a gap
	v.RevealEnd = v.RevealStart.Add(time.Hour)

	mid := v.CommitmentEnd.Add(30 * time.Second)
	p := Of(v, mid)
	assert.Equal(t, Between, p)
	assert.False(t, CanCommit(p))
	assert.False(t, CanReveal(p))
}

func TestTerminalStatusesOverrideClock(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v := newTestVote(base)
	v.Status = model.StatusCancelled
	assert.Equal(t, Cancelled, Of(v, base))

	v.Status = model.StatusCompleted
	assert.Equal(t, Completed, Of(v, base))
}

func TestCanComputeResults(t *testing.T) {
	assert.True(t, CanComputeResults(Ended))
	assert.True(t, CanComputeResults(Completed))
	assert.False(t, CanComputeResults(RevealPhase))
}
