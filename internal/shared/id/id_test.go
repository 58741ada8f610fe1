package id

import (
	"bytes"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	assert.NotEqual(t, id1, id2, "Generated IDs should be unique")
	assert.Len(t, gen.GenerateString(), 26)
}

func TestTypedIDGeneration(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		prefix string
	}{
		{"session", NewSessionID().String(), SessionPrefix},
		{"run", NewRunID().String(), RunPrefix},
		{"call", NewCallID().String(), CallPrefix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, strings.HasPrefix(tt.id, tt.prefix+"_"), tt.id)
			assert.True(t, IsValid(tt.id))
			assert.True(t, IsValid(strings.TrimPrefix(tt.id, tt.prefix+"_")))
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"plain ulid", "01ARZ3NDEKTSV4RRFFQ69G5FAV", true},
		{"prefixed", "sess_01ARZ3NDEKTSV4RRFFQ69G5FAV", true},
		{"empty", "", false},
		{"short", "01ARZ3", false},
		{"bad prefix payload", "sess_nope", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.input))
		})
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	sid := NewSessionID()
	after := time.Now().Add(time.Second)

	ts, err := sid.Time()
	require.NoError(t, err)
	assert.True(t, ts.After(before) && ts.Before(after), "timestamp %s outside [%s, %s]", ts, before, after)

	_, err = Timestamp("garbage")
	assert.Error(t, err)
}

func TestDeterministicEntropy(t *testing.T) {
	a := NewGeneratorWithEntropy(bytes.NewReader(make([]byte, 64)))
	id := a.Generate()
	assert.Equal(t, make([]byte, 10), id.Entropy())
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()
	const workers, each = 8, 200

	var (
		mu   sync.Mutex
		seen = make(map[string]bool, workers*each)
		wg   sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range each {
				id := gen.GenerateString()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*each)
}

func TestLexicographicSorting(t *testing.T) {
	gen := NewGenerator()

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = gen.GenerateWithPrefix(SessionPrefix)
	}
	assert.True(t, sort.StringsAreSorted(ids), "monotonic IDs sort in creation order")
}

func TestDefaultGenerator(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func BenchmarkGenerateWithPrefix(b *testing.B) {
	gen := NewGenerator()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = gen.GenerateWithPrefix(SessionPrefix)
	}
}
