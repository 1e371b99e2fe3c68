package cdi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKillProcessesNoMatch(t *testing.T) {
	n, err := KillProcesses(context.Background(), "qual-no-such-process.exe")
	require.NoError(t, err)
	assert.Zero(t, n)
}
