// Package model holds the persisted entities of the commit-reveal vote
// protocol: Vote, Commitment, Reveal, and VoteResults. The store owns the
// authoritative copies; every other component holds only transient,
// read-only copies.
package model

import "time"

// Status is the cached, advisory phase of a Vote. The phase clock
// (pkg/phase) is the source of truth; Status only tracks the two terminal
// transitions (Completed, Cancelled) plus a lazily-updated cache of the
// temporal phase, written on commit/reveal/results.
type Status string

const (
	StatusCreated         Status = "created"
	StatusCommitmentPhase Status = "commitment_phase"
	StatusRevealPhase     Status = "reveal_phase"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
)

// Vote is a single poll instance.
type Vote struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	TemplateID      string         `json:"template_id"`
	TemplateParams  map[string]any `json:"template_params"`
	Creator         string         `json:"creator"`
	Algorithm       string         `json:"algorithm"`
	CreatedAt       time.Time      `json:"created_at"`
	CommitmentStart time.Time      `json:"commitment_start"`
	CommitmentEnd   time.Time      `json:"commitment_end"`
	RevealStart     time.Time      `json:"reveal_start"`
	RevealEnd       time.Time      `json:"reveal_end"`
	Status          Status         `json:"status"`
	Results         *VoteResults   `json:"results,omitempty"`
}

// Config is the caller-supplied input to create a Vote.
type Config struct {
	Title               string         `json:"title"`
	Description         string         `json:"description"`
	TemplateID          string         `json:"template_id"`
	TemplateParams      map[string]any `json:"template_params"`
	Creator             string         `json:"creator"`
	Algorithm           string         `json:"algorithm,omitempty"`
	CommitmentDuration  time.Duration  `json:"commitment_duration"`
	RevealDuration      time.Duration  `json:"reveal_duration"`
}

// Commitment is one voter's hiding promise.
type Commitment struct {
	ID             string    `json:"id"`
	VoteID         string    `json:"vote_id"`
	Voter          string    `json:"voter"`
	CommitmentHash string    `json:"commitment_hash"`
	Algorithm      string    `json:"algorithm"`
	Salt           []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// Reveal is one voter's disclosed ballot.
type Reveal struct {
	ID        string    `json:"id"`
	VoteID    string    `json:"vote_id"`
	Voter     string    `json:"voter"`
	Value     any       `json:"value"`
	Salt      []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// VoteResults is the aggregate output of a completed vote.
type VoteResults struct {
	VoteID      string         `json:"vote_id"`
	TotalVotes  int            `json:"total_votes"`
	Results     map[string]any `json:"results"`
	CalculatedAt time.Time     `json:"calculated_at"`
}

// Filter selects votes for the listing layer (C7).
type Filter struct {
	Status  Status
	Creator string
}

// Page is a single page of a paginated listing.
type Page struct {
	Items      []*Vote `json:"items"`
	Total      int     `json:"total"`
	PageNum    int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
}
