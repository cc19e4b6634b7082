package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJobTerminal(t *testing.T) {
	require.False(t, (&UserJob{Status: JobStatusPending}).Terminal())
	require.False(t, (&UserJob{Status: "fetching stars"}).Terminal())
	require.False(t, (&UserJob{Status: "creating embeddings"}).Terminal())
	require.True(t, (&UserJob{Status: JobStatusCompleted}).Terminal())
	require.True(t, (&UserJob{Status: JobStatusFailed}).Terminal())
}
