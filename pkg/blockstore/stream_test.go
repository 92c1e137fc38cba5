package blockstore

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type failingWriter struct {
	limit int
	buf   bytes.Buffer
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.buf.Len()+len(p) > w.limit {
		return 0, errBoom
	}
	return w.buf.Write(p)
}

func TestPushPullRoundTrip(t *testing.T) {
	s := newTestStore(t, 4)

	n, err := s.Push("a", strings.NewReader("this is test!"))
	require.NoError(t, err)
	require.Equal(t, int64(13), n)

	entry, ok := s.Lookup("a")
	require.True(t, ok)
	require.Equal(t, 13, entry.Length)
	require.Equal(t, []int{0, 4, 8, 12}, entry.Blocks)

	var out bytes.Buffer
	n, err = s.Pull("a", &out)
	require.NoError(t, err)
	require.Equal(t, int64(13), n)
	require.Equal(t, "this is test!", out.String())

	// Pushed and inserted values are interchangeable.
	value, ok := s.Get("a")
	require.True(t, ok)
	require.Equal(t, "this is test!", string(value))
	require.NoError(t, s.Verify("a"))
}

func TestPushUsesFreeBlocks(t *testing.T) {
	s := newTestStore(t, 4)

	s.Insert("a", []byte("this is test"))
	require.True(t, s.Remove("a"))

	// One byte at a time still fills whole blocks.
	_, err := s.Push("b", iotest.OneByteReader(strings.NewReader("this is new test")))
	require.NoError(t, err)

	entry, _ := s.Lookup("b")
	require.Equal(t, []int{0, 4, 8, 12}, entry.Blocks)
	require.Equal(t, 16, s.ArenaSize())

	value, _ := s.Get("b")
	require.Equal(t, "this is new test", string(value))
}

func TestPushEmptyReader(t *testing.T) {
	s := newTestStore(t, 4)

	n, err := s.Push("empty", strings.NewReader(""))
	require.NoError(t, err)
	require.Zero(t, n)

	entry, ok := s.Lookup("empty")
	require.True(t, ok)
	require.Empty(t, entry.Blocks)
	require.NoError(t, s.Verify("empty"))

	value, ok := s.Get("empty")
	require.True(t, ok)
	require.Empty(t, value)
}

func TestPushReadErrorLeavesIndexUnchanged(t *testing.T) {
	s := newTestStore(t, 4)
	s.Insert("a", []byte("keep"))

	r := io.MultiReader(strings.NewReader("123456"), iotest.ErrReader(errBoom))
	n, err := s.Push("a", r)
	require.ErrorIs(t, err, errBoom)
	require.Equal(t, int64(6), n)

	value, ok := s.Get("a")
	require.True(t, ok)
	require.Equal(t, "keep", string(value))

	// Both claimed blocks were appended, then handed back in claim order.
	require.Equal(t, []int{4, 8}, s.FreeBlocks())
	require.Equal(t, 12, s.ArenaSize())
	require.Zero(t, s.OrphanedBlocks())
	require.NoError(t, s.Check())
}

func TestPushReclaimsPriorOnlyAfterSuccess(t *testing.T) {
	s := newTestStore(t, 4, WithReclaimOnOverwrite(true))
	s.Insert("a", []byte("abcdefgh"))

	_, err := s.Push("a", strings.NewReader("12345678"))
	require.NoError(t, err)

	entry, _ := s.Lookup("a")
	require.Equal(t, []int{8, 12}, entry.Blocks)
	require.Equal(t, []int{0, 4}, s.FreeBlocks())
	require.Zero(t, s.OrphanedBlocks())
}

func TestPushOverwriteOrphansByDefault(t *testing.T) {
	s := newTestStore(t, 4)
	s.Insert("a", []byte("abcdefgh"))

	_, err := s.Push("a", strings.NewReader("1234"))
	require.NoError(t, err)

	require.Empty(t, s.FreeBlocks())
	require.Equal(t, 2, s.OrphanedBlocks())
}

func TestPullMissingKey(t *testing.T) {
	s := newTestStore(t, 4)

	var out bytes.Buffer
	n, err := s.Pull("missing", &out)
	require.ErrorIs(t, err, ErrKeyNotFound)
	require.Zero(t, n)
	require.Zero(t, out.Len())
}

func TestPullWriterError(t *testing.T) {
	s := newTestStore(t, 4)
	s.Insert("a", []byte("abcdefghij"))

	w := &failingWriter{limit: 6}
	n, err := s.Pull("a", w)
	require.ErrorIs(t, err, errBoom)
	require.Equal(t, int64(4), n)
	require.Equal(t, "abcd", w.buf.String())
}
