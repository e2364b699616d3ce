package domain

// ---------------------------------------------------------------------------
// Specification pattern: composable query predicates
// ---------------------------------------------------------------------------

// Specification is a predicate over domain objects, kept free of any
// persistence concern.
type Specification[T any] interface {
	IsSatisfiedBy(entity *T) bool
}

// SpecFunc adapts a plain function to Specification.
type SpecFunc[T any] func(entity *T) bool

func (f SpecFunc[T]) IsSatisfiedBy(entity *T) bool { return f(entity) }

// AndSpec combines two specifications with AND logic.
type AndSpec[T any] struct {
	Left  Specification[T]
	Right Specification[T]
}

func (s AndSpec[T]) IsSatisfiedBy(entity *T) bool {
	return s.Left.IsSatisfiedBy(entity) && s.Right.IsSatisfiedBy(entity)
}

// OrSpec combines two specifications with OR logic.
type OrSpec[T any] struct {
	Left  Specification[T]
	Right Specification[T]
}

func (s OrSpec[T]) IsSatisfiedBy(entity *T) bool {
	return s.Left.IsSatisfiedBy(entity) || s.Right.IsSatisfiedBy(entity)
}

// NotSpec negates a specification.
type NotSpec[T any] struct {
	Spec Specification[T]
}

func (s NotSpec[T]) IsSatisfiedBy(entity *T) bool {
	return !s.Spec.IsSatisfiedBy(entity)
}

// All is satisfied when every spec is; no specs means everything matches.
func All[T any](specs ...Specification[T]) Specification[T] {
	return SpecFunc[T](func(entity *T) bool {
		for _, s := range specs {
			if !s.IsSatisfiedBy(entity) {
				return false
			}
		}
		return true
	})
}

// Filter returns the entities satisfying spec, in order.
func Filter[T any](entities []*T, spec Specification[T]) []*T {
	out := make([]*T, 0, len(entities))
	for _, e := range entities {
		if spec.IsSatisfiedBy(e) {
			out = append(out, e)
		}
	}
	return out
}
