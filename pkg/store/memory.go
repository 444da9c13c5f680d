package store

import (
	"context"
	"sort"
	"sync"

	"github.com/luckeedao/votecore/pkg/model"
	"github.com/luckeedao/votecore/pkg/verr"
)

type commitKey struct{ voteID, voter string }

// Memory is an in-process Store backed by maps guarded by a single
// read-write mutex. Uniqueness on (vote_id, voter) is enforced by a
// check-and-insert under the same lock held for the whole mutation, giving
// the atomicity the contract requires without a separate CAS primitive.
type Memory struct {
	mu          sync.RWMutex
	votes       map[string]*model.Vote
	commitments map[commitKey]*model.Commitment
	reveals     map[commitKey]*model.Reveal
	// ordering aids: commitments/reveals within a vote must list in
	// created_at ascending order, which on a map requires a side index.
	commitOrder map[string][]string // voteID -> voter insertion order
	revealOrder map[string][]string
}

// NewMemory returns an empty in-memory store, suitable for tests and
// single-process deployments.
func NewMemory() *Memory {
	return &Memory{
		votes:       make(map[string]*model.Vote),
		commitments: make(map[commitKey]*model.Commitment),
		reveals:     make(map[commitKey]*model.Reveal),
		commitOrder: make(map[string][]string),
		revealOrder: make(map[string][]string),
	}
}

func (m *Memory) InsertVote(_ context.Context, v *model.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.votes[v.ID]; exists {
		return verr.New(verr.InvalidConfig, "vote id %q already exists", v.ID)
	}
	cp := *v
	m.votes[v.ID] = &cp
	return nil
}

func (m *Memory) GetVote(_ context.Context, id string) (*model.Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.votes[id]
	if !ok {
		return nil, verr.New(verr.NotFound, "vote %q not found", id)
	}
	cp := *v
	return &cp, nil
}

func (m *Memory) ListVotes(_ context.Context, filter model.Filter, page, size int) (*model.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*model.Vote, 0, len(m.votes))
	for _, v := range m.votes {
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		if filter.Creator != "" && v.Creator != filter.Creator {
			continue
		}
		cp := *v
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	totalPages := (total + size - 1) / size
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	return &model.Page{
		Items:      matched[start:end],
		Total:      total,
		PageNum:    page,
		PageSize:   size,
		TotalPages: totalPages,
	}, nil
}

func (m *Memory) UpdateVoteStatus(_ context.Context, id string, status model.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.votes[id]
	if !ok {
		return verr.New(verr.NotFound, "vote %q not found", id)
	}
	v.Status = status
	return nil
}

func (m *Memory) UpdateVoteResults(_ context.Context, id string, results *model.VoteResults) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.votes[id]
	if !ok {
		return verr.New(verr.NotFound, "vote %q not found", id)
	}
	cp := *results
	v.Results = &cp
	return nil
}

func (m *Memory) InsertCommitment(_ context.Context, c *model.Commitment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := commitKey{c.VoteID, c.Voter}
	if _, exists := m.commitments[key]; exists {
		return verr.New(verr.AlreadyCommitted, "voter %q already committed on vote %q", c.Voter, c.VoteID)
	}
	cp := *c
	m.commitments[key] = &cp
	m.commitOrder[c.VoteID] = append(m.commitOrder[c.VoteID], c.Voter)
	return nil
}

func (m *Memory) GetCommitment(_ context.Context, voteID, voter string) (*model.Commitment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.commitments[commitKey{voteID, voter}]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) ListCommitments(_ context.Context, voteID string) ([]*model.Commitment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	voters := m.commitOrder[voteID]
	out := make([]*model.Commitment, 0, len(voters))
	for _, voter := range voters {
		if c, ok := m.commitments[commitKey{voteID, voter}]; ok {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) InsertReveal(_ context.Context, r *model.Reveal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := commitKey{r.VoteID, r.Voter}
	if _, exists := m.reveals[key]; exists {
		return verr.New(verr.AlreadyRevealed, "voter %q already revealed on vote %q", r.Voter, r.VoteID)
	}
	cp := *r
	m.reveals[key] = &cp
	m.revealOrder[r.VoteID] = append(m.revealOrder[r.VoteID], r.Voter)
	return nil
}

func (m *Memory) GetReveal(_ context.Context, voteID, voter string) (*model.Reveal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reveals[commitKey{voteID, voter}]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) ListReveals(_ context.Context, voteID string) ([]*model.Reveal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	voters := m.revealOrder[voteID]
	out := make([]*model.Reveal, 0, len(voters))
	for _, voter := range voters {
		if r, ok := m.reveals[commitKey{voteID, voter}]; ok {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) DeleteVote(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.votes[id]; !ok {
		return verr.New(verr.NotFound, "vote %q not found", id)
	}
	delete(m.votes, id)
	for _, voter := range m.commitOrder[id] {
		delete(m.commitments, commitKey{id, voter})
	}
	for _, voter := range m.revealOrder[id] {
		delete(m.reveals, commitKey{id, voter})
	}
	delete(m.commitOrder, id)
	delete(m.revealOrder, id)
	return nil
}

var _ Store = (*Memory)(nil)
