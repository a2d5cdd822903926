package id

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUnique(t *testing.T) {
	gen := NewGenerator()

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		s := gen.Generate().String()
		_, dup := seen[s]
		require.False(t, dup, "duplicate id %s", s)
		seen[s] = struct{}{}
	}
}

func TestTypedIDPrefixes(t *testing.T) {
	assert.True(t, strings.HasPrefix(NewTraceID().String(), "trace_"))
	assert.True(t, strings.HasPrefix(NewSpanID().String(), "span_"))
	assert.True(t, strings.HasPrefix(NewSubscriberID().String(), "sub_"))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(NewTraceID().String()))
	assert.True(t, IsValid(NewGenerator().Generate().String()))

	for _, s := range []string{"", "invalid", "trace_invalid", "zzzzzzzzzzzzzzzzzzzzzzzzzz"} {
		assert.False(t, IsValid(s), s)
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	ts, err := Timestamp(NewSpanID().String())
	require.NoError(t, err)
	assert.True(t, ts.After(before))

	_, err = Timestamp("span_nope")
	assert.Error(t, err)
}

func TestConcurrentGeneration(t *testing.T) {
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen = make(map[SubscriberID]struct{})
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s := NewSubscriberID()
				mu.Lock()
				seen[s] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 800)
}
