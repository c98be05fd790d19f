package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	_, ok := RequestID(ctx)
	assert.False(t, ok)

	_, ok = RequestID(WithRequestID(ctx, ""))
	assert.False(t, ok, "empty ids are treated as absent")

	id, ok := RequestID(WithRequestID(ctx, "req-1"))
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)
}

func TestPrincipal(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	_, ok := Principal(ctx)
	assert.False(t, ok)

	ctx = WithPrincipal(ctx, "agent-buyer")
	p, ok := Principal(ctx)
	assert.True(t, ok)
	assert.Equal(t, "agent-buyer", p)

	id, _ := RequestID(ctx)
	assert.Equal(t, "req-1", id, "keys do not collide")
}
