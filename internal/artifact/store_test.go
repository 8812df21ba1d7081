package artifact

import (
	"fmt"
	"sync"
	"testing"

	"github.com/firestige/otus-bench/internal/model"
	"github.com/stretchr/testify/require"
)

// Setting an existing key is an error; reading a missing key is an error.
func TestSingleAssignment(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Set("DEVS", model.ArtifactValue{StringList: []string{"/dev/loop0"}}))
	require.Error(t, s.Set("DEVS", model.ArtifactValue{StringList: []string{"/dev/loop1"}}))

	_, err := s.Get("MISSING")
	require.Error(t, err)
}

func TestGetReturnsClone(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Set("DEVS", model.ArtifactValue{StringList: []string{"/dev/loop0"}}))

	v, err := s.Get("DEVS")
	require.NoError(t, err)
	v.StringList[0] = "mutated"

	v2, err := s.Get("DEVS")
	require.NoError(t, err)
	require.Equal(t, "/dev/loop0", v2.StringList[0])
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			_ = s.Set(key, model.ArtifactValue{StringList: []string{key}})
			_, _ = s.Get(key)
		}(i)
	}
	wg.Wait()
}
