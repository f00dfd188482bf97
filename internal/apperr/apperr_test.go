package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKind(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("resync: %w", Network("could not load schedule", cause))

	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrAuth)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Equal(t, "resync: could not load schedule: connection refused", err.Error())
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("x")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestErrorMessageFallbacks(t *testing.T) {
	assert.Equal(t, "READ_ONLY", (&Error{Kind: KindReadOnly}).Error())
	assert.Equal(t, "title is required", Validation("title is required").Error())
}
