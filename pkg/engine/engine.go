// Package engine orchestrates the commit-reveal vote lifecycle (C5): it
// wraps the vote store, gates each operation through the phase clock,
// consults the template registry to validate and canonicalize ballots, and
// calls the commitment primitive to hash and verify them. Each exported
// method is a single short transaction: validate, side-effect, advisory
// status cache update.
package engine

import (
	"context"
	"time"

	"github.com/luckeedao/votecore/pkg/commitment"
	"github.com/luckeedao/votecore/pkg/idgen"
	"github.com/luckeedao/votecore/pkg/model"
	"github.com/luckeedao/votecore/pkg/phase"
	"github.com/luckeedao/votecore/pkg/store"
	"github.com/luckeedao/votecore/pkg/template"
	"github.com/luckeedao/votecore/pkg/verr"
)

const (
	minDuration = time.Hour
	maxDuration = 168 * time.Hour

	minTitleLen = 1
	maxTitleLen = 200
	minDescLen  = 1
	maxDescLen  = 1000

	minVoterLen = 1
	maxVoterLen = 100
	maxSaltLen  = 256
)

// Clock abstracts wall-clock reads so tests can control "now" without
// sleeping. Production code uses RealClock.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// Engine is the vote lifecycle orchestrator. It holds no mutable state of
// its own between requests; everything that must persist lives in the
// store.
type Engine struct {
	Store store.Store
	Clock Clock

	// MinPhaseDuration/MaxPhaseDuration bound commitment_duration and
	// reveal_duration at create time. Zero values fall back to the
	// documented defaults (1h/168h).
	MinPhaseDuration time.Duration
	MaxPhaseDuration time.Duration
}

// New builds an Engine over s, using the system clock and the documented
// default phase-duration bounds.
func New(s store.Store) *Engine {
	return &Engine{Store: s, Clock: RealClock{}, MinPhaseDuration: minDuration, MaxPhaseDuration: maxDuration}
}

func (e *Engine) durationBounds() (time.Duration, time.Duration) {
	min, max := e.MinPhaseDuration, e.MaxPhaseDuration
	if min <= 0 {
		min = minDuration
	}
	if max <= 0 {
		max = maxDuration
	}
	return min, max
}

// Create validates cfg, resolves and validates its template params,
// assigns a vote id and the derived phase timestamps, and persists the new
// vote with status Created.
func (e *Engine) Create(ctx context.Context, cfg model.Config) (string, error) {
	if err := validateText(cfg.Title, minTitleLen, maxTitleLen, "title"); err != nil {
		return "", err
	}
	if err := validateText(cfg.Description, minDescLen, maxDescLen, "description"); err != nil {
		return "", err
	}
	if cfg.Creator == "" {
		return "", verr.New(verr.InvalidConfig, "creator must not be empty")
	}
	min, max := e.durationBounds()
	if cfg.CommitmentDuration < min || cfg.CommitmentDuration > max {
		return "", verr.New(verr.InvalidConfig, "commitment_duration must be between %s and %s", min, max)
	}
	if cfg.RevealDuration < min || cfg.RevealDuration > max {
		return "", verr.New(verr.InvalidConfig, "reveal_duration must be between %s and %s", min, max)
	}

	tpl, err := template.Lookup(cfg.TemplateID)
	if err != nil {
		return "", err
	}
	if err := tpl.ValidateParams(cfg.TemplateParams); err != nil {
		return "", err
	}

	algo := cfg.Algorithm
	if algo == "" {
		algo = commitment.DefaultAlgorithm
	}
	if _, err := commitment.Lookup(algo); err != nil {
		return "", err
	}

	now := e.Clock.Now()
	id := idgen.New()
	v := &model.Vote{
		ID:              id,
		Title:           cfg.Title,
		Description:     cfg.Description,
		TemplateID:      cfg.TemplateID,
		TemplateParams:  cfg.TemplateParams,
		Creator:         cfg.Creator,
		Algorithm:       algo,
		CreatedAt:       now,
		CommitmentStart: now,
		CommitmentEnd:   now.Add(cfg.CommitmentDuration),
		RevealStart:     now.Add(cfg.CommitmentDuration),
		RevealEnd:       now.Add(cfg.CommitmentDuration).Add(cfg.RevealDuration),
		Status:          model.StatusCreated,
	}

	if err := e.Store.InsertVote(ctx, v); err != nil {
		return "", err
	}
	return id, nil
}

func validateText(s string, min, max int, field string) error {
	if len(s) < min || len(s) > max {
		return verr.New(verr.InvalidConfig, "%s must be between %d and %d characters", field, min, max)
	}
	return nil
}

// Commit records voter's opaque commitment hash for vote id. The engine
// never sees the ballot itself at this stage.
func (e *Engine) Commit(ctx context.Context, voteID, voter, commitmentHash string, salt []byte) (string, error) {
	v, err := e.Store.GetVote(ctx, voteID)
	if err != nil {
		return "", err
	}
	now := e.Clock.Now()
	p := phase.Of(v, now)
	if !phase.CanCommit(p) {
		return "", verr.New(verr.OutOfPhase, "vote %q is not accepting commitments (phase %s)", voteID, p)
	}

	if len(voter) < minVoterLen || len(voter) > maxVoterLen {
		return "", verr.New(verr.InvalidConfig, "voter must be between %d and %d characters", minVoterLen, maxVoterLen)
	}
	if !commitment.IsValidHashHex(commitmentHash, 32) {
		return "", verr.New(verr.InvalidConfig, "commitment_hash must be 64 lowercase hex characters")
	}
	if len(salt) == 0 || len(salt) > maxSaltLen {
		return "", verr.New(verr.InvalidConfig, "salt must be nonempty and at most %d bytes", maxSaltLen)
	}

	c := &model.Commitment{
		ID:             idgen.New(),
		VoteID:         voteID,
		Voter:          voter,
		CommitmentHash: commitmentHash,
		Algorithm:      v.Algorithm,
		Salt:           salt,
		CreatedAt:      now,
	}
	if err := e.Store.InsertCommitment(ctx, c); err != nil {
		return "", err
	}

	if v.Status == model.StatusCreated {
		_ = e.Store.UpdateVoteStatus(ctx, voteID, model.StatusCommitmentPhase)
	}
	return c.ID, nil
}

// Reveal discloses voter's ballot and salt, validates it against the
// template, recomputes the commitment hash, and persists the reveal only
// if it reproduces the stored commitment.
func (e *Engine) Reveal(ctx context.Context, voteID, voter string, value any, salt []byte) (string, error) {
	v, err := e.Store.GetVote(ctx, voteID)
	if err != nil {
		return "", err
	}
	now := e.Clock.Now()
	p := phase.Of(v, now)
	if !phase.CanReveal(p) {
		return "", verr.New(verr.OutOfPhase, "vote %q is not accepting reveals (phase %s)", voteID, p)
	}

	c, err := e.Store.GetCommitment(ctx, voteID, voter)
	if err != nil {
		return "", err
	}
	if c == nil {
		return "", verr.New(verr.NoCommitment, "voter %q never committed on vote %q", voter, voteID)
	}
	if !saltsEqual(c.Salt, salt) {
		return "", verr.New(verr.SaltMismatch, "reveal salt does not match committed salt")
	}

	tpl, err := template.Lookup(v.TemplateID)
	if err != nil {
		return "", err
	}
	if err := tpl.ValidateBallot(value, v.TemplateParams); err != nil {
		return "", err
	}
	canonical, err := tpl.Canonicalize(value, v.TemplateParams)
	if err != nil {
		return "", err
	}

	algo, err := commitment.Lookup(c.Algorithm)
	if err != nil {
		return "", err
	}
	if !commitment.Verify(algo, canonical, salt, c.CommitmentHash) {
		return "", verr.New(verr.HashMismatch, "recomputed hash does not match committed hash for voter %q", voter)
	}

	r := &model.Reveal{
		ID:        idgen.New(),
		VoteID:    voteID,
		Voter:     voter,
		Value:     value,
		Salt:      salt,
		CreatedAt: now,
	}
	if err := e.Store.InsertReveal(ctx, r); err != nil {
		return "", err
	}

	if v.Status == model.StatusCommitmentPhase {
		_ = e.Store.UpdateVoteStatus(ctx, voteID, model.StatusRevealPhase)
	}
	return r.ID, nil
}

func saltsEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Results returns the vote's aggregate results, computing and persisting
// them on first call and returning the cached value on every subsequent
// call.
func (e *Engine) Results(ctx context.Context, voteID string) (*model.VoteResults, error) {
	v, err := e.Store.GetVote(ctx, voteID)
	if err != nil {
		return nil, err
	}
	now := e.Clock.Now()
	p := phase.Of(v, now)
	if !phase.CanComputeResults(p) {
		return nil, verr.New(verr.OutOfPhase, "vote %q results are not available yet (phase %s)", voteID, p)
	}
	if v.Results != nil {
		return v.Results, nil
	}

	reveals, err := e.Store.ListReveals(ctx, voteID)
	if err != nil {
		return nil, err
	}
	tpl, err := template.Lookup(v.TemplateID)
	if err != nil {
		return nil, err
	}

	values := make([]any, 0, len(reveals))
	for _, r := range reveals {
		values = append(values, r.Value)
	}
	aggregate, err := tpl.Aggregate(values, v.TemplateParams)
	if err != nil {
		return nil, err
	}

	results := &model.VoteResults{
		VoteID:       voteID,
		TotalVotes:   len(values),
		Results:      aggregate,
		CalculatedAt: now,
	}
	if err := e.Store.UpdateVoteResults(ctx, voteID, results); err != nil {
		return nil, err
	}
	if err := e.Store.UpdateVoteStatus(ctx, voteID, model.StatusCompleted); err != nil {
		return nil, err
	}
	return results, nil
}

// Cancel moves a vote to the terminal Cancelled status regardless of its
// current phase. Operator action, not reachable by ordinary voters.
func (e *Engine) Cancel(ctx context.Context, voteID string) error {
	if _, err := e.Store.GetVote(ctx, voteID); err != nil {
		return err
	}
	return e.Store.UpdateVoteStatus(ctx, voteID, model.StatusCancelled)
}

// Get returns a vote by id.
func (e *Engine) Get(ctx context.Context, voteID string) (*model.Vote, error) {
	return e.Store.GetVote(ctx, voteID)
}

// List returns a filtered, paginated listing of votes (C7).
func (e *Engine) List(ctx context.Context, filter model.Filter, page, size int) (*model.Page, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return e.Store.ListVotes(ctx, filter, page, size)
}
