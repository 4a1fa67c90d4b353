package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithSessionID(t *testing.T) {
	ctx := WithSessionID(context.Background(), "test-session-123")
	assert.Equal(t, "test-session-123", GetSessionID(ctx))
}

func TestWithScope(t *testing.T) {
	ctx := WithScope(context.Background(), "project:devtools")
	assert.Equal(t, "project:devtools", GetScope(ctx))
}

func TestContextValues_NotPresent(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetSessionID(ctx))
	assert.Empty(t, GetScope(ctx))
}
