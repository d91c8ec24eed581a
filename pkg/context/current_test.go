package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrent_RoundTripsThroughContext(t *testing.T) {
	ctx := WithCurrent(context.Background(), &Current{RequestID: "req-1", Method: "GET"})

	current, ok := FromContext(ctx)

	assert.True(t, ok)
	assert.Equal(t, "req-1", current.RequestID)
	assert.Equal(t, "req-1", RequestID(ctx))
}

func TestGetCurrent_OutsideRequest(t *testing.T) {
	current := GetCurrent(context.Background())

	assert.NotNil(t, current)
	assert.Empty(t, current.RequestID)
}
