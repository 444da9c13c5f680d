// Package template holds the pluggable ballot-type algebra (C2): a
// registry of named templates, each providing validate/canonicalize/
// aggregate operations over a ballot shape. Canonicalization is the
// cornerstone of the whole protocol — it must be deterministic, injective
// over distinct ballots, and total over validated ballots, because the
// commitment hash is computed over its output.
//
// No "random_seed" / winner-selection template is implemented here. The
// source this system was distilled from references such a template but
// never implements bias-resistant seeding — the seed it describes is a
// deterministic function of revealed ballots, which any non-revealing
// voter can bias. Shipping that template would imply a security property
// the protocol does not have, so it is left out; see spec.md §9.
package template

import (
	"sort"
	"sync"

	"github.com/luckeedao/votecore/pkg/verr"
)

// Template is a named capability bundle: validate params, validate a
// ballot, canonicalize a ballot to bytes, and aggregate a set of revealed
// ballots. Implementations are registered once at init time; the registry
// is read-only for the lifetime of any vote referencing it.
type Template interface {
	ID() string
	ValidateParams(params map[string]any) error
	ValidateBallot(value any, params map[string]any) error
	Canonicalize(value any, params map[string]any) ([]byte, error)
	Aggregate(values []any, params map[string]any) (map[string]any, error)
	Schema() map[string]any
}

var (
	mu       sync.RWMutex
	registry = map[string]Template{}
)

// Register adds a template to the registry, keyed by its own ID().
// Intended for init-time registration only — there is no hot-reload path,
// matching spec.md §4.2.
func Register(t Template) {
	mu.Lock()
	defer mu.Unlock()
	registry[t.ID()] = t
}

// Lookup resolves a template by ID.
func Lookup(id string) (Template, error) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := registry[id]
	if !ok {
		return nil, verr.New(verr.TemplateUnknown, "unknown template %q", id)
	}
	return t, nil
}

// IDs lists every registered template ID in stable sorted order.
func IDs() []string {
	mu.RLock()
	defer mu.RUnlock()
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func init() {
	Register(YesNo{})
	Register(MultipleChoice{})
	Register(NumericRange{})
	Register(Ranking{})
}
