// Package verify implements the verification engine (C6): it replays
// commitments and aggregation against persisted evidence and emits a
// report any third party can recompute byte-for-byte from the same store.
package verify

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/luckeedao/votecore/pkg/commitment"
	"github.com/luckeedao/votecore/pkg/model"
	"github.com/luckeedao/votecore/pkg/template"
	"github.com/luckeedao/votecore/pkg/verr"
)

// Report is the independently recomputable evidence summary for a vote.
type Report struct {
	VoteID             string         `json:"vote_id"`
	TotalCommitments   int            `json:"total_commitments"`
	VerifiedCount      int            `json:"verified_commitments"`
	FailedCount        int            `json:"failed_commitments"`
	Issues             []string       `json:"issues"`
	RecomputedTotal    int            `json:"recomputed_total_votes"`
	RecomputedResults  map[string]any `json:"recomputed_results"`
	StoredResults      map[string]any `json:"stored_results,omitempty"`
	IsValid            bool           `json:"is_valid"`
}

// Vote runs the verification procedure over v using its commitments and
// reveals. v.Results must already be populated (the caller checks phase
// and results availability before calling this).
func Vote(v *model.Vote, commitments []*model.Commitment, reveals []*model.Reveal) (*Report, error) {
	if v.Results == nil {
		return nil, verr.New(verr.OutOfPhase, "vote %q has no results to verify yet", v.ID)
	}

	revealByVoter := make(map[string]*model.Reveal, len(reveals))
	for _, r := range reveals {
		revealByVoter[r.Voter] = r
	}

	tpl, err := template.Lookup(v.TemplateID)
	if err != nil {
		return nil, err
	}

	issues := []string{}
	verified := 0
	verifiedValues := make([]any, 0, len(commitments))

	// sort commitments by voter for deterministic issue ordering across
	// processes, independent of the store's insertion-order iteration.
	sorted := make([]*model.Commitment, len(commitments))
	copy(sorted, commitments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Voter < sorted[j].Voter })

	for _, c := range sorted {
		r, ok := revealByVoter[c.Voter]
		if !ok {
			issues = append(issues, fmt.Sprintf("missing reveal for voter %s", c.Voter))
			continue
		}
		if err := tpl.ValidateBallot(r.Value, v.TemplateParams); err != nil {
			issues = append(issues, fmt.Sprintf("commitment mismatch for voter %s", c.Voter))
			continue
		}
		canonical, err := tpl.Canonicalize(r.Value, v.TemplateParams)
		if err != nil {
			issues = append(issues, fmt.Sprintf("commitment mismatch for voter %s", c.Voter))
			continue
		}
		algo, err := commitment.Lookup(c.Algorithm)
		if err != nil {
			issues = append(issues, fmt.Sprintf("commitment mismatch for voter %s", c.Voter))
			continue
		}
		if !commitment.Verify(algo, canonical, r.Salt, c.CommitmentHash) {
			issues = append(issues, fmt.Sprintf("commitment mismatch for voter %s", c.Voter))
			continue
		}
		verified++
		verifiedValues = append(verifiedValues, r.Value)
	}

	recomputed, err := tpl.Aggregate(verifiedValues, v.TemplateParams)
	if err != nil {
		return nil, err
	}
	if !reflect.DeepEqual(recomputed, v.Results.Results) {
		issues = append(issues, "recomputed aggregate differs from stored results")
	}

	return &Report{
		VoteID:            v.ID,
		TotalCommitments:  len(commitments),
		VerifiedCount:     verified,
		FailedCount:       len(commitments) - verified,
		Issues:            issues,
		RecomputedTotal:   len(verifiedValues),
		RecomputedResults: recomputed,
		StoredResults:     v.Results.Results,
		IsValid:           len(issues) == 0,
	}, nil
}
