package generator

import (
	"context"
	"errors"

	"github.com/dailypost/backend/internal/novelty"
)

// State is a step of the regeneration loop
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateEvaluating State = "evaluating"
	StateAccepted   State = "accepted"
	StateExhausted  State = "exhausted"
)

// Terminal reports whether the loop stops in this state
func (s State) Terminal() bool {
	return s == StateAccepted || s == StateExhausted
}

// ErrInvalidAttempts is returned when the attempt bound is below one
var ErrInvalidAttempts = errors.New("max attempts must be at least 1")

// Attempt records the verdict for one generated candidate
type Attempt struct {
	Number  int             `json:"number"`
	Angle   string          `json:"angle,omitempty"`
	Verdict novelty.Verdict `json:"verdict"`
}

// Outcome is the result of Loop. Candidate is the last one produced; when
// State is StateExhausted it was rejected but is kept anyway.
type Outcome[T any] struct {
	Candidate T
	State     State
	Attempts  []Attempt
}

// Accepted reports whether the final candidate passed the guard
func (o Outcome[T]) Accepted() bool {
	return o.State == StateAccepted
}

// Step hooks observe the loop; any of them may be nil
type Step struct {
	OnState   func(State)
	OnVerdict func(Attempt)
}

// Loop produces candidates until evaluate accepts one or maxAttempts
// candidates were rejected. Each produce call receives the 1-based attempt
// number and the hint from the previous rejection. A produce error ends the
// loop immediately.
func Loop[T any](
	ctx context.Context,
	maxAttempts int,
	produce func(ctx context.Context, attempt int, hint string) (T, string, error),
	evaluate func(T) novelty.Verdict,
	step Step,
) (Outcome[T], error) {
	var out Outcome[T]
	if maxAttempts < 1 {
		return out, ErrInvalidAttempts
	}

	enter := func(s State) {
		out.State = s
		if step.OnState != nil {
			step.OnState(s)
		}
	}

	hint := ""
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		enter(StateGenerating)
		candidate, angle, err := produce(ctx, attempt, hint)
		if err != nil {
			return out, err
		}
		out.Candidate = candidate

		enter(StateEvaluating)
		a := Attempt{Number: attempt, Angle: angle, Verdict: evaluate(candidate)}
		out.Attempts = append(out.Attempts, a)
		if step.OnVerdict != nil {
			step.OnVerdict(a)
		}

		if a.Verdict.Accepted {
			enter(StateAccepted)
			return out, nil
		}
		if attempt >= maxAttempts {
			enter(StateExhausted)
			return out, nil
		}
		hint = a.Verdict.Hint
	}
}
