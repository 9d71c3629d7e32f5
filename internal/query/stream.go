package query

import (
	"context"
	"iter"

	"github.com/seulgie/asteroid-data-processor/pkg/neo"
)

// MatchesAll reports whether every filter in the set accepts the
// approach. The empty set is vacuously true. Evaluation short-circuits
// on the first rejection; order within the set does not matter since
// the combination is a commutative AND.
func MatchesAll(ca *neo.CloseApproach, filters []Filter) bool {
	for _, f := range filters {
		if !f.Matches(ca) {
			return false
		}
	}
	return true
}

// Apply yields the approaches in src that satisfy every filter in the
// set, preserving the input order. The sequence is produced strictly
// on demand: no filter runs for an element until the consumer asks for
// it, and when the consumer stops early the upstream stops producing.
func Apply(src iter.Seq[*neo.CloseApproach], filters []Filter) iter.Seq[*neo.CloseApproach] {
	return func(yield func(*neo.CloseApproach) bool) {
		for ca := range src {
			if !MatchesAll(ca, filters) {
				continue
			}
			if !yield(ca) {
				return
			}
		}
	}
}

// Limit truncates src to at most n elements, preserving order.
// A negative n means no limit and returns src unchanged. Zero yields
// an empty sequence without ever reading from src. A positive n yields
// the first n elements and pulls nothing further from the upstream
// once the count is reached.
func Limit(src iter.Seq[*neo.CloseApproach], n int) iter.Seq[*neo.CloseApproach] {
	if n < 0 {
		return src
	}
	return func(yield func(*neo.CloseApproach) bool) {
		if n == 0 {
			return
		}
		count := 0
		for ca := range src {
			if !yield(ca) {
				return
			}
			count++
			if count >= n {
				return
			}
		}
	}
}

// WithContext stops the sequence when ctx is canceled. The check runs
// once per element, so cancellation takes effect at record granularity.
// The consumer is responsible for inspecting ctx.Err() afterwards to
// distinguish exhaustion from cancellation.
func WithContext(ctx context.Context, src iter.Seq[*neo.CloseApproach]) iter.Seq[*neo.CloseApproach] {
	return func(yield func(*neo.CloseApproach) bool) {
		for ca := range src {
			if ctx.Err() != nil {
				return
			}
			if !yield(ca) {
				return
			}
		}
	}
}

// Slice adapts a materialized slice of approaches to a lazy sequence,
// yielding elements in slice order.
func Slice(approaches []*neo.CloseApproach) iter.Seq[*neo.CloseApproach] {
	return func(yield func(*neo.CloseApproach) bool) {
		for _, ca := range approaches {
			if !yield(ca) {
				return
			}
		}
	}
}

// Describe renders the filter set for logs and dry-run previews.
func Describe(filters []Filter) []string {
	if len(filters) == 0 {
		return nil
	}
	out := make([]string, 0, len(filters))
	for _, f := range filters {
		out = append(out, f.String())
	}
	return out
}
