package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAtStage(t *testing.T) {
	require.NoError(t, AtStage(StageEmbed, nil))

	err := AtStage(StageEmbed, ErrProvider)
	require.Error(t, err)
	require.Equal(t, StageEmbed, StageOf(err))
	require.ErrorIs(t, err, ErrProvider)
}

func TestStageOf_Unlabeled(t *testing.T) {
	require.Equal(t, "", StageOf(stderrors.New("plain")))
	require.Equal(t, "", StageOf(nil))
}

func TestStageOf_Wrapped(t *testing.T) {
	inner := AtStage(StageSearch, ErrInternal)
	wrapped := fmt.Errorf("query failed: %w", inner)
	require.Equal(t, StageSearch, StageOf(wrapped))
	require.ErrorIs(t, wrapped, ErrInternal)
}

func TestIsNotFound(t *testing.T) {
	require.True(t, IsNotFound(ErrNotFound))
	require.True(t, IsNotFound(fmt.Errorf("wrap: %w", ErrNotFound)))
	require.False(t, IsNotFound(ErrInvalid))
}
