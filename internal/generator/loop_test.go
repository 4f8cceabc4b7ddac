package generator_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailypost/backend/internal/generator"
	"github.com/dailypost/backend/internal/novelty"
)

func reject() novelty.Verdict {
	return novelty.Verdict{Accepted: false, Hint: novelty.RegenerateHint}
}

func TestLoop_AcceptFirst(t *testing.T) {
	var states []generator.State
	out, err := generator.Loop(context.Background(), 5,
		func(ctx context.Context, attempt int, hint string) (string, string, error) {
			assert.Empty(t, hint)
			return "candidate", "angle-a", nil
		},
		func(string) novelty.Verdict { return novelty.Verdict{Accepted: true} },
		generator.Step{OnState: func(s generator.State) { states = append(states, s) }},
	)

	require.NoError(t, err)
	assert.True(t, out.Accepted())
	assert.Equal(t, "candidate", out.Candidate)
	require.Len(t, out.Attempts, 1)
	assert.Equal(t, "angle-a", out.Attempts[0].Angle)
	assert.Equal(t, []generator.State{
		generator.StateGenerating, generator.StateEvaluating, generator.StateAccepted,
	}, states)
}

func TestLoop_AcceptAfterRejections(t *testing.T) {
	var hints []string
	out, err := generator.Loop(context.Background(), 5,
		func(ctx context.Context, attempt int, hint string) (int, string, error) {
			hints = append(hints, hint)
			return attempt, "", nil
		},
		func(n int) novelty.Verdict {
			if n < 3 {
				return reject()
			}
			return novelty.Verdict{Accepted: true}
		},
		generator.Step{},
	)

	require.NoError(t, err)
	assert.Equal(t, generator.StateAccepted, out.State)
	assert.Equal(t, 3, out.Candidate)
	assert.Len(t, out.Attempts, 3)
	assert.Equal(t, []string{"", novelty.RegenerateHint, novelty.RegenerateHint}, hints)
}

func TestLoop_ExhaustedKeepsLastCandidate(t *testing.T) {
	calls := 0
	var verdicts []int
	out, err := generator.Loop(context.Background(), 5,
		func(ctx context.Context, attempt int, hint string) (string, string, error) {
			calls++
			return fmt.Sprintf("draft-%d", attempt), "", nil
		},
		func(string) novelty.Verdict { return reject() },
		generator.Step{OnVerdict: func(a generator.Attempt) { verdicts = append(verdicts, a.Number) }},
	)

	require.NoError(t, err)
	assert.Equal(t, 5, calls)
	assert.Equal(t, generator.StateExhausted, out.State)
	assert.False(t, out.Accepted())
	assert.Equal(t, "draft-5", out.Candidate)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, verdicts)
	assert.True(t, out.State.Terminal())
}

func TestLoop_ProduceError(t *testing.T) {
	boom := errors.New("model unavailable")
	out, err := generator.Loop(context.Background(), 5,
		func(ctx context.Context, attempt int, hint string) (string, string, error) {
			if attempt == 2 {
				return "", "", boom
			}
			return "x", "", nil
		},
		func(string) novelty.Verdict { return reject() },
		generator.Step{},
	)

	assert.ErrorIs(t, err, boom)
	assert.Len(t, out.Attempts, 1)
	assert.False(t, out.State.Terminal())
}

func TestLoop_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, err := generator.Loop(ctx, 5,
		func(ctx context.Context, attempt int, hint string) (string, string, error) {
			cancel()
			return "x", "", nil
		},
		func(string) novelty.Verdict { return reject() },
		generator.Step{},
	)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoop_InvalidBound(t *testing.T) {
	_, err := generator.Loop(context.Background(), 0,
		func(ctx context.Context, attempt int, hint string) (string, string, error) { return "", "", nil },
		func(string) novelty.Verdict { return novelty.Verdict{Accepted: true} },
		generator.Step{},
	)
	assert.ErrorIs(t, err, generator.ErrInvalidAttempts)
}
