package blockstore

import (
	"bytes"
	"fmt"
	"io"
	"testing"
)

func BenchmarkInsert(b *testing.B) {
	for _, blockSize := range []int{64, 4096} {
		b.Run(fmt.Sprintf("block-%d", blockSize), func(b *testing.B) {
			s := newTestStore(b, blockSize)
			value := bytes.Repeat([]byte{'v'}, 1000)
			b.SetBytes(int64(len(value)))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				s.Insert(fmt.Sprintf("key-%d", i), value)
			}
		})
	}
}

func BenchmarkChurn(b *testing.B) {
	s := newTestStore(b, 64)
	value := bytes.Repeat([]byte{'v'}, 1000)
	keys := make([]string, 1024)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
		s.Insert(keys[i], value)
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		key := keys[i%len(keys)]
		s.Remove(key)
		s.Insert(key, value)
	}
	b.StopTimer()

	b.ReportMetric(float64(s.ArenaSize()), "arena-bytes")
}

func BenchmarkGet(b *testing.B) {
	s := newTestStore(b, 256)
	value := bytes.Repeat([]byte{'v'}, 1000)
	for i := 0; i < 1024; i++ {
		s.Insert(fmt.Sprintf("key-%d", i), value)
	}
	b.SetBytes(int64(len(value)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		s.Get(fmt.Sprintf("key-%d", i%1024))
	}
}

func BenchmarkPull(b *testing.B) {
	s := newTestStore(b, 256)
	s.Insert("key", bytes.Repeat([]byte{'v'}, 1<<16))
	b.SetBytes(1 << 16)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := s.Pull("key", io.Discard); err != nil {
			b.Fatal(err)
		}
	}
}
