package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastQueryContextDeadline(t *testing.T) {
	ctx, cancel := FastQueryContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	remaining := time.Until(deadline)
	assert.Greater(t, remaining, time.Duration(0))
	assert.LessOrEqual(t, remaining, FastQueryTimeout)
}

func TestSlowQueryContextDeadline(t *testing.T) {
	ctx, cancel := SlowQueryContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.Greater(t, time.Until(deadline), FastQueryTimeout)
}

func TestQueryContextNilParent(t *testing.T) {
	ctx, cancel := FastQueryContext(nil)
	defer cancel()

	_, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.NoError(t, ctx.Err())
}

func TestQueryContextInheritsParentCancel(t *testing.T) {
	parent, parentCancel := context.WithCancel(context.Background())
	ctx, cancel := SlowQueryContext(parent)
	defer cancel()

	parentCancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
