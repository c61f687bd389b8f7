package posixaio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForkChildResetsMap(t *testing.T) {
	before := theMap
	before.mu.Lock()
	before.queues[123] = newQueue(123)
	before.mu.Unlock()

	ForkPrepare()
	ForkChild()

	assert.NotSame(t, before, theMap)
	assert.Empty(t, theMap.queues)

	// The abandoned map is left exactly as it was; nothing in the child
	// touches it again.
	assert.Len(t, before.queues, 1)
}

func TestForkPrepareParentRoundTrips(t *testing.T) {
	ForkPrepare()
	ForkParent()
}
