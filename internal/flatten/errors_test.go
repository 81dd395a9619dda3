package flatten

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harrison/flatten/internal/models"
)

func TestErrorKind_String(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindConfiguration, "configuration"},
		{KindIOUnavailable, "io-unavailable"},
		{KindEntryCopy, "entry-copy"},
		{KindEntryRename, "entry-rename"},
		{KindCanceled, "canceled"},
		{ErrorKind(99), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

func TestPipelineError(t *testing.T) {
	err := NewPipelineError(KindIOUnavailable, models.StateInit, "/out", fmt.Errorf("%w: permission denied", ErrOutputUnavailable))

	assert.Equal(t, "io-unavailable (init) /out: output directory unavailable: permission denied", err.Error())
	assert.True(t, errors.Is(err, ErrOutputUnavailable))
	assert.True(t, err.IsFatal())

	wrapped := fmt.Errorf("run: %w", err)
	var pe *PipelineError
	assert.True(t, errors.As(wrapped, &pe))
	assert.Equal(t, "/out", pe.Path)
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), true},
		{"entry copy", NewPipelineError(KindEntryCopy, models.StateCopying, "/a", nil), false},
		{"entry rename", NewPipelineError(KindEntryRename, models.StateRenaming, "/a", nil), false},
		{"configuration", NewPipelineError(KindConfiguration, models.StateInit, "", ErrInvalidConfig), true},
		{"canceled", fmt.Errorf("wrap: %w", NewPipelineError(KindCanceled, models.StateCopying, "", ErrCanceled)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}
