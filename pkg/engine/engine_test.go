package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckeedao/votecore/pkg/commitment"
	"github.com/luckeedao/votecore/pkg/model"
	"github.com/luckeedao/votecore/pkg/store"
	"github.com/luckeedao/votecore/pkg/verr"
)

// fakeClock lets tests move wall-clock time deterministically across
// phases without sleeping.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newEngine() (*Engine, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	e := &Engine{Store: store.NewMemory(), Clock: clk}
	return e, clk
}

func createYesNo(t *testing.T, e *Engine, clk *fakeClock) string {
	t.Helper()
	id, err := e.Create(context.Background(), model.Config{
		Title:              "t",
		Description:        "d",
		TemplateID:         "yes_no",
		Creator:            "alice",
		CommitmentDuration: time.Hour,
		RevealDuration:     time.Hour,
	})
	require.NoError(t, err)
	return id
}

func sha256Commit(value string, salt string) string {
	algo, _ := commitment.Lookup("sha256")
	return commitment.Commit(algo, []byte(value), []byte(salt))
}

// S1 — yes_no end to end.
func TestScenarioS1YesNo(t *testing.T) {
	ctx := context.Background()
	e, clk := newEngine()
	voteID := createYesNo(t, e, clk)

	clk.now = clk.now.Add(time.Minute) // inside CommitmentPhase
	_, err := e.Commit(ctx, voteID, "A", sha256Commit("yes", "sA"), []byte("sA"))
	require.NoError(t, err)
	_, err = e.Commit(ctx, voteID, "B", sha256Commit("no", "sB"), []byte("sB"))
	require.NoError(t, err)
	_, err = e.Commit(ctx, voteID, "C", sha256Commit("yes", "sC"), []byte("sC"))
	require.NoError(t, err)

	clk.now = clk.now.Add(time.Hour) // into RevealPhase
	_, err = e.Reveal(ctx, voteID, "A", true, []byte("sA"))
	require.NoError(t, err)
	_, err = e.Reveal(ctx, voteID, "B", false, []byte("sB"))
	require.NoError(t, err)
	_, err = e.Reveal(ctx, voteID, "C", true, []byte("sC"))
	require.NoError(t, err)

	clk.now = clk.now.Add(time.Hour) // into Ended
	results, err := e.Results(ctx, voteID)
	require.NoError(t, err)
	assert.Equal(t, 3, results.TotalVotes)
	assert.Equal(t, 2, results.Results["yes"])
	assert.Equal(t, 1, results.Results["no"])
	assert.Equal(t, 3, results.Results["total"])
}

// S2 — commitment mismatch: voter reveals a value inconsistent with their
// committed hash; the reveal is rejected and does not persist.
func TestScenarioS2CommitmentMismatch(t *testing.T) {
	ctx := context.Background()
	e, clk := newEngine()
	voteID := createYesNo(t, e, clk)

	clk.now = clk.now.Add(time.Minute)
	_, err := e.Commit(ctx, voteID, "A", sha256Commit("yes", "sA"), []byte("sA"))
	require.NoError(t, err)
	_, err = e.Commit(ctx, voteID, "B", sha256Commit("no", "sB"), []byte("sB"))
	require.NoError(t, err)
	_, err = e.Commit(ctx, voteID, "C", sha256Commit("yes", "sC"), []byte("sC"))
	require.NoError(t, err)

	clk.now = clk.now.Add(time.Hour)
	_, err = e.Reveal(ctx, voteID, "A", false, []byte("sA"))
	assert.True(t, verr.Is(err, verr.HashMismatch))

	_, err = e.Reveal(ctx, voteID, "B", false, []byte("sB"))
	require.NoError(t, err)
	_, err = e.Reveal(ctx, voteID, "C", true, []byte("sC"))
	require.NoError(t, err)

	clk.now = clk.now.Add(time.Hour)
	results, err := e.Results(ctx, voteID)
	require.NoError(t, err)
	assert.Equal(t, 2, results.TotalVotes)
	assert.Equal(t, 1, results.Results["yes"])
	assert.Equal(t, 1, results.Results["no"])
}

// S3 — at-most-once commit.
func TestScenarioS3AtMostOnceCommit(t *testing.T) {
	ctx := context.Background()
	e, clk := newEngine()
	voteID := createYesNo(t, e, clk)

	clk.now = clk.now.Add(time.Minute)
	_, err := e.Commit(ctx, voteID, "A", sha256Commit("yes", "sA"), []byte("sA"))
	require.NoError(t, err)

	_, err = e.Commit(ctx, voteID, "A", sha256Commit("no", "sB"), []byte("sB"))
	assert.True(t, verr.Is(err, verr.AlreadyCommitted))

	list, err := e.Store.ListCommitments(ctx, voteID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sha256Commit("yes", "sA"), list[0].CommitmentHash)
}

func TestCommitRejectedOutsideCommitmentPhase(t *testing.T) {
	ctx := context.Background()
	e, clk := newEngine()
	voteID := createYesNo(t, e, clk)

	clk.now = clk.now.Add(2 * time.Hour) // past reveal end
	_, err := e.Commit(ctx, voteID, "A", sha256Commit("yes", "sA"), []byte("sA"))
	assert.True(t, verr.Is(err, verr.OutOfPhase))
}

func TestRevealRejectedWithoutCommitment(t *testing.T) {
	ctx := context.Background()
	e, clk := newEngine()
	voteID := createYesNo(t, e, clk)

	clk.now = clk.now.Add(time.Hour)
	_, err := e.Reveal(ctx, voteID, "A", true, []byte("sA"))
	assert.True(t, verr.Is(err, verr.NoCommitment))
}

func TestRevealRejectedOnSaltMismatch(t *testing.T) {
	ctx := context.Background()
	e, clk := newEngine()
	voteID := createYesNo(t, e, clk)

	clk.now = clk.now.Add(time.Minute)
	_, err := e.Commit(ctx, voteID, "A", sha256Commit("yes", "sA"), []byte("sA"))
	require.NoError(t, err)

	clk.now = clk.now.Add(time.Hour)
	_, err = e.Reveal(ctx, voteID, "A", true, []byte("wrong-salt"))
	assert.True(t, verr.Is(err, verr.SaltMismatch))
}

func TestResultsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e, clk := newEngine()
	voteID := createYesNo(t, e, clk)

	clk.now = clk.now.Add(time.Minute)
	_, err := e.Commit(ctx, voteID, "A", sha256Commit("yes", "sA"), []byte("sA"))
	require.NoError(t, err)

	clk.now = clk.now.Add(time.Hour)
	_, err = e.Reveal(ctx, voteID, "A", true, []byte("sA"))
	require.NoError(t, err)

	clk.now = clk.now.Add(time.Hour)
	first, err := e.Results(ctx, voteID)
	require.NoError(t, err)
	second, err := e.Results(ctx, voteID)
	require.NoError(t, err)
	assert.Equal(t, first.CalculatedAt, second.CalculatedAt)
}

func TestCreateRejectsDurationOutOfBounds(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	_, err := e.Create(ctx, model.Config{
		Title: "t", Description: "d", TemplateID: "yes_no", Creator: "alice",
		CommitmentDuration: time.Minute, RevealDuration: time.Hour,
	})
	assert.True(t, verr.Is(err, verr.InvalidConfig))
}

func TestCreateRejectsUnknownTemplate(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	_, err := e.Create(ctx, model.Config{
		Title: "t", Description: "d", TemplateID: "does_not_exist", Creator: "alice",
		CommitmentDuration: time.Hour, RevealDuration: time.Hour,
	})
	assert.True(t, verr.Is(err, verr.TemplateUnknown))
}
