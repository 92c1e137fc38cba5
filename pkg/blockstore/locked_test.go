package blockstore

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockedConcurrentAccess(t *testing.T) {
	l := NewLocked(newTestStore(t, 8))

	const workers = 8
	const rounds = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				key := fmt.Sprintf("w%d-%d", w, i%10)
				value := []byte(strings.Repeat(key, 1+i%4))

				l.Insert(key, value)
				got, ok := l.Get(key)
				if !ok || !bytes.Equal(got, value) {
					t.Errorf("worker %d read back %q for %q", w, got, key)
					return
				}
				if i%3 == 0 {
					l.Remove(key)
				}
			}
		}(w)
	}
	wg.Wait()

	require.NoError(t, l.Check())

	l.Do(func(s *Store) {
		require.Equal(t, len(s.Keys()), s.Len())
		require.Equal(t, s.ArenaBlocks()*8, s.ArenaSize())
	})
}

func TestLockedStreams(t *testing.T) {
	l := NewLocked(newTestStore(t, 4))

	_, err := l.Push("a", strings.NewReader("streamed value"))
	require.NoError(t, err)
	require.NoError(t, l.Verify("a"))

	var out bytes.Buffer
	_, err = l.Pull("a", &out)
	require.NoError(t, err)
	require.Equal(t, "streamed value", out.String())

	entry, ok := l.Lookup("a")
	require.True(t, ok)
	require.Len(t, entry.Blocks, 4)
	require.Equal(t, []string{"a"}, l.Keys())

	require.True(t, l.Remove("a"))
	require.Equal(t, []int{0, 4, 8, 12}, l.FreeBlocks())
	require.Equal(t, uint64(1), l.Stats()["push_ops"])
}
