// Package semantics implements the semantic algebra: named function
// applications over arguments, built bottom-up by pfsearch as it walks
// a completed parse path, reduced once all of a function's argument
// positions are filled, and compared/hashed for deduplication of the
// k-best result set.
package semantics

import (
	"errors"
	"sort"
	"strings"
)

// ErrConflict is returned by MergeSibling when two semantics cannot be
// combined as siblings under the same parent: either they nest the same
// forbid-multiple semantic twice, or one of them forbids occurring
// alongside a same-named sibling.
var ErrConflict = errors.New("semantic: conflicting siblings")

// Semantic is either a function application (IsArg false) or an argument
// leaf (IsArg true). Function applications accumulate Args in the order
// they were reduced and become Reduced once filled; leaves
// are always "reduced" in the sense that they carry no further state.
type Semantic struct {
	// Name is the function name (e.g. "repositories-liked") or, for a
	// leaf, the argument's own name (e.g. "me", an entity id, or the
	// string form of a matched integer).
	Name string

	// IsArg marks this Semantic as an argument leaf rather than a
	// function application.
	IsArg bool

	// Cost is the rule-level cost contributed by reducing this function;
	// zero for leaves.
	Cost float64

	// MinParams and MaxParams bound how many Args a reduced application
	// of this function may carry.
	MinParams, MaxParams int

	// ForbidsMultiple marks a function that may not appear more than
	// once among a set of sibling arguments being merged into a common
	// parent.
	ForbidsMultiple bool

	// Reduced is whether Reduce has already been applied; Args is final
	// once this is true.
	Reduced bool

	// Args holds collected arguments in the order they were reduced.
	Args []Semantic
}

// Func returns a new, non-reduced function-application template: the LHS
// semantic of a rule before any of its RHS arguments have been collected.
func Func(name string, cost float64, minParams, maxParams int, forbidsMultiple bool) Semantic {
	return Semantic{
		Name: name,
		Cost: cost,
		MinParams: minParams,
		MaxParams: maxParams,
		ForbidsMultiple: forbidsMultiple,
	}
}

// Arg returns a new argument leaf semantic (an entity id, integer
// literal, or a fixed name like "me").
func Arg(name string) Semantic {
	return Semantic{Name: name, IsArg: true, Reduced: true}
}

// WithArg returns a copy of s with arg appended to its Args. s must not
// yet be Reduced.
func (s Semantic) WithArg(arg Semantic) Semantic {
	next := s
	next.Args = make([]Semantic, len(s.Args)+1)
	copy(next.Args, s.Args)
	next.Args[len(s.Args)] = arg
	return next
}

// NumArgs returns the number of arguments currently collected.
func (s Semantic) NumArgs() int {
	return len(s.Args)
}

// Eligible reports whether s has collected enough arguments to be
// reduced (MinParams <= len(Args)) without having collected more than it
// can hold (len(Args) <= MaxParams). A semantic with Eligible-to-reduce
// true may still accept further arguments if it isn't yet at MaxParams;
// pfsearch reduces eagerly once MinParams is reached only when no
// further RHS argument position remains for this rule instance.
func (s Semantic) Eligible() bool {
	return !s.IsArg && len(s.Args) >= s.MinParams && len(s.Args) <= s.MaxParams
}

// Full reports whether s has collected as many arguments as it can hold.
func (s Semantic) Full() bool {
	return !s.IsArg && len(s.Args) >= s.MaxParams
}

// Reduce finalizes s: it must have at least MinParams arguments
// collected. Reducing an already-reduced semantic, or one with too few
// arguments, is an invariant violation the caller is expected to have
// already ruled out (pfsearch only calls Reduce once a rule's argument
// positions are all complete).
func (s Semantic) Reduce() Semantic {
	r := s
	r.Reduced = true
	return r
}

// Equal reports whether a and b represent the same semantic tree:
// same name, same leaf/function kind, and recursively equal arguments in
// the same order. Cost is not part of equality -- two parses that reach
// the same meaning via different rule costs are still the same meaning.
func Equal(a, b Semantic) bool {
	if a.IsArg != b.IsArg || a.Name != b.Name {
		return false
	}
	if len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if !Equal(a.Args[i], b.Args[i]) {
			return false
		}
	}
	return true
}

// MergeSibling combines two semantics produced as sibling arguments
// destined for the same parent argument slot. If both are reduced
// functions (or leaves) with the same Name, they are candidates for
// merging:
//
// - identical siblings (Equal) merge idempotently unless a forbids a
// repeat of itself, in which case it is a conflict even against
// itself;
// - non-identical siblings sharing a Name conflict if either forbids
// multiple occurrences;
// - otherwise, distinct siblings combine into a synthetic "intersect"
// function over both, the representation used when a query
// legitimately narrows by more than one independent filter of the
// same family (e.g. two different non-exclusive qualifiers).
func MergeSibling(a, b Semantic) (Semantic, error) {
	if Equal(a, b) {
		if a.ForbidsMultiple {
			return Semantic{}, ErrConflict
		}
		return a, nil
	}
	if a.Name == b.Name && (a.ForbidsMultiple || b.ForbidsMultiple) {
		return Semantic{}, ErrConflict
	}
	merged := Semantic{
		Name:      "intersect",
		MinParams: 2,
		MaxParams: 2,
		Reduced:   true,
		Args:      []Semantic{a, b},
	}
	SortArgsByName(&merged)
	return merged, nil
}

// Cost returns the total cost of s: its own Cost plus the recursive cost
// of every argument.
func Cost(s Semantic) float64 {
	total := s.Cost
	for _, a := range s.Args {
		total += Cost(a)
	}
	return total
}

// CanonicalString renders s as name(arg1,arg2,...), with bare names for
// argument leaves and nested calls for function arguments. This is both
// the display serialization and the key used for k-best deduplication
// (two results are duplicates iff their CanonicalString is identical).
func CanonicalString(s Semantic) string {
	var sb strings.Builder
	writeCanonical(&sb, s)
	return sb.String()
}

func writeCanonical(sb *strings.Builder, s Semantic) {
	sb.WriteString(s.Name)
	if s.IsArg {
		return
	}
	sb.WriteByte('(')
	for i, a := range s.Args {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeCanonical(sb, a)
	}
	sb.WriteByte(')')
}

// SortArgsByName sorts s's Args in place by their canonical string. This
// is never used to change the meaning of a parse (argument order is
// fixed by reduction order) -- it exists solely to give "intersect"
// nodes synthesized by MergeSibling a stable canonical form regardless
// of which operand arrived first.
func SortArgsByName(s *Semantic) {
	sort.SliceStable(s.Args, func(i, j int) bool {
		return CanonicalString(s.Args[i]) < CanonicalString(s.Args[j])
	})
}
