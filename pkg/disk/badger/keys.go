package badger

import "encoding/binary"

// Database Key Namespace Design
// ==============================
//
// The container is split into fixed-size pages so a small write touches only
// the pages it covers.
//
// Data Type     Prefix   Key Format                 Value Type
// ================================================================
// Page          "blk:"   blk:<uint64 BE index>       pageSize bytes
// Capacity      "cfg:"   cfg:capacity                uint64 (BE)
//
// Pages that were never written are absent and read as zeros, so a freshly
// initialized 1 MiB container costs a single key.

const (
	prefixPage = "blk:"
	keyCap     = "cfg:capacity"
)

func keyPage(index int64) []byte {
	key := make([]byte, len(prefixPage)+8)
	copy(key, prefixPage)
	binary.BigEndian.PutUint64(key[len(prefixPage):], uint64(index))
	return key
}

func keyCapacity() []byte {
	return []byte(keyCap)
}
