package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterUnindexedEmptyInput(t *testing.T) {
	// No query is issued for an empty batch; a nil handle proves it.
	repo := NewRepositoryRepo(nil)
	missing, err := repo.FilterUnindexed(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestNullString(t *testing.T) {
	require.False(t, nullString("").Valid)
	v := nullString("text")
	require.True(t, v.Valid)
	require.Equal(t, "text", v.String)
}
