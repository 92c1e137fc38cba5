package blockstore

// Entry describes how to rebuild one key's value from the arena.
type Entry struct {
	// Length is the value length as supplied by the caller, without padding
	Length int

	// Blocks holds block start offsets in the order they are concatenated
	Blocks []int

	// Checksum is the xxhash64 digest of the value
	Checksum uint64
}

// clone returns a copy whose Blocks slice does not alias the store's.
func (e Entry) clone() Entry {
	blocks := make([]int, len(e.Blocks))
	copy(blocks, e.Blocks)
	e.Blocks = blocks
	return e
}

// padding is the number of zero bytes at the end of the last block.
func (e Entry) padding(blockSize int) int {
	return len(e.Blocks)*blockSize - e.Length
}
