package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil error", err: nil, expected: ""},
		{name: "simple error", err: stderrors.New("something went wrong"), expected: "Error: something went wrong"},
		{name: "kinded error", err: E(KindConflict, "complete", "", nil), expected: "Error: complete: habit already completed in this cycle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Format(tt.err))
		})
	}
}

func TestFormatf(t *testing.T) {
	assert.Equal(t, "Error: failed to load db", Formatf("failed to load %s", "db"))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error is internal", err: stderrors.New("boom"), want: KindInternal},
		{name: "typed error", err: E(KindNotFound, "delete", "", nil), want: KindNotFound},
		{name: "wrapped typed error", err: fmt.Errorf("outer: %w", E(KindValidation, "create", "input text is required", nil)), want: KindValidation},
		{name: "wrapped sentinel", err: fmt.Errorf("outer: %w", ErrUnauthenticated), want: KindUnauthenticated},
		{name: "upstream", err: E(KindUpstreamExtraction, "create", "", stderrors.New("bad json")), want: KindUpstreamExtraction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorIs(t *testing.T) {
	cause := stderrors.New("row missing")
	err := E(KindNotFound, "complete", "", cause)

	assert.True(t, stderrors.Is(err, ErrNotFound))
	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, stderrors.Is(err, &Error{Kind: KindNotFound}))
	assert.False(t, stderrors.Is(err, ErrConflict))
}

func TestMessageHidesInternals(t *testing.T) {
	err := E(KindUpstreamExtraction, "create", "", stderrors.New("status 500 from upstream"))
	assert.Equal(t, "failed to parse habit text", MessageOf(err))
	assert.Equal(t, "internal error", MessageOf(stderrors.New("sql: connection refused")))

	withMsg := E(KindValidation, "create", "input text is required", nil)
	assert.Equal(t, "input text is required", MessageOf(withMsg))
	assert.Equal(t, "create: input text is required", withMsg.Error())
}
