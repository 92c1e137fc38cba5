package blockstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInspection(t *testing.T) {
	s := newTestStore(t, 4)

	s.Insert("b", []byte("12345"))
	s.Insert("a", []byte("xyz"))
	s.Insert("c", nil)

	require.Equal(t, 4, s.BlockSize())
	require.Equal(t, 12, s.ArenaSize())
	require.Equal(t, 3, s.ArenaBlocks())
	require.Equal(t, 3, s.Len())
	require.Equal(t, []string{"a", "b", "c"}, s.Keys())
	require.True(t, s.Contains("c"))
	require.False(t, s.Contains("d"))

	_, ok := s.Lookup("d")
	require.False(t, ok)

	// Lookup hands out a copy.
	entry, ok := s.Lookup("b")
	require.True(t, ok)
	entry.Blocks[0] = 99
	again, _ := s.Lookup("b")
	require.Equal(t, []int{0, 4}, again.Blocks)

	// FreeBlocks hands out a copy.
	require.True(t, s.Remove("b"))
	free := s.FreeBlocks()
	free[0] = 99
	require.Equal(t, []int{0, 4}, s.FreeBlocks())
}

func TestStatsReflectOperations(t *testing.T) {
	s := newTestStore(t, 4)

	s.Insert("a", []byte("abcdefgh"))
	s.Get("a")
	s.Get("missing")
	s.Remove("a")
	s.Insert("b", []byte("abcdefghij"))

	st := s.Stats()
	require.Equal(t, uint64(2), st["insert_ops"])
	require.Equal(t, uint64(2), st["get_ops"])
	require.Equal(t, uint64(1), st["remove_ops"])
	require.Equal(t, uint64(1), st["get_hits"])
	require.Equal(t, uint64(1), st["get_misses"])
	require.Equal(t, uint64(18), st["total_bytes_written"])
	require.Equal(t, uint64(8), st["total_bytes_read"])
	require.Equal(t, uint64(2), st["blocks_reused"])
	require.Equal(t, uint64(3), st["blocks_appended"])
	require.Equal(t, uint64(12), st["arena_bytes"])
	require.Equal(t, uint64(0), st["arena_free_blocks"])
	require.Equal(t, uint64(1), st["arena_live_keys"])
	require.Equal(t, uint64(3), st["arena_live_blocks"])
	require.Equal(t, uint64(0), st["arena_orphaned_blocks"])
}

func TestVerify(t *testing.T) {
	s := newTestStore(t, 4)
	s.Insert("a", []byte("abcdefgh"))

	require.NoError(t, s.Verify("a"))
	require.ErrorIs(t, s.Verify("missing"), ErrKeyNotFound)

	s.arena[0] ^= 0xff
	require.ErrorIs(t, s.Verify("a"), ErrChecksumMismatch)

	// Without checksum verification Get still serves the damaged bytes.
	value, ok := s.Get("a")
	require.True(t, ok)
	require.NotEqual(t, "abcdefgh", string(value))
}

func TestVerifyIgnoresPadding(t *testing.T) {
	s := newTestStore(t, 4)
	s.Insert("a", []byte("abcde"))

	s.arena[7] = 'x'
	require.NoError(t, s.Verify("a"))
}

func TestCheckDetectsCorruption(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Store)
	}{
		{
			name: "arena not block aligned",
			mutate: func(s *Store) {
				s.arena = append(s.arena, 0)
			},
		},
		{
			name: "free offset still live",
			mutate: func(s *Store) {
				s.free.push(s.index["a"].Blocks[0])
			},
		},
		{
			name: "free offset queued twice",
			mutate: func(s *Store) {
				s.free.push(8, 8)
			},
		},
		{
			name: "unaligned offset",
			mutate: func(s *Store) {
				entry := s.index["a"]
				entry.Blocks[0] = 1
			},
		},
		{
			name: "offset out of bounds",
			mutate: func(s *Store) {
				entry := s.index["b"]
				entry.Blocks[0] = 400
			},
		},
		{
			name: "two keys share a block",
			mutate: func(s *Store) {
				s.index["b"].Blocks[0] = s.index["a"].Blocks[0]
			},
		},
		{
			name: "length exceeds blocks",
			mutate: func(s *Store) {
				entry := s.index["a"]
				entry.Length = 9
				s.index["a"] = entry
			},
		},
		{
			name: "live block count drift",
			mutate: func(s *Store) {
				s.liveBlocks++
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, 4)
			s.Insert("a", []byte("abcdefgh"))
			s.Insert("b", []byte("ijkl"))
			s.Insert("c", []byte("mnop"))
			require.True(t, s.Remove("c"))
			require.NoError(t, s.Check())

			tt.mutate(s)

			err := s.Check()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrCorrupted))
		})
	}
}
