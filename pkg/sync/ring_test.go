package sync

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_Consistency(t *testing.T) {
	a := newRing(64, 200)
	b := newRing(64, 200)

	for i := 0; i < 256; i++ {
		key := []byte(fmt.Sprintf("account%d", i))
		stripe := a.stripe(key)
		assert.True(t, stripe >= 0 && stripe < 64)
		assert.Equal(t, stripe, a.stripe(key))
		assert.Equal(t, stripe, b.stripe(key))
	}
}

func TestRing_Distribution(t *testing.T) {
	const (
		stripes    = 5
		iterations = 200000
		tolerance  = 0.1
	)

	r := newRing(stripes, 200)

	hits := make(map[int]int)
	for i := 0; i < iterations; i++ {
		hits[r.stripe([]byte(fmt.Sprintf("key%d", i)))]++
	}

	expected := float64(iterations) / stripes
	assert.Len(t, hits, stripes)
	for stripe, count := range hits {
		assert.LessOrEqual(t, math.Abs(float64(count)-expected), tolerance*expected, "stripe %d", stripe)
	}
}

func TestRing_SingleStripe(t *testing.T) {
	r := newRing(1, 10)
	for i := 0; i < 100; i++ {
		assert.Equal(t, 0, r.stripe([]byte(fmt.Sprintf("key%d", i))))
	}
}
