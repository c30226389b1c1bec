package store

import "sync"

// keyPool recycles the byte slices used to build badger keys, keeping the
// read paths allocation-free.
var keyPool = sync.Pool{
	New: func() any {
		// 256 bytes covers any prefix plus a prefixed NanoID.
		return make([]byte, 0, 256)
	},
}

// buildKey joins prefix and suffix in a pooled buffer. The result is only
// valid until releaseKey; callers must release it when the transaction is
// done with it:
//
//	key := buildKey(bookPrefix, bookID)
//	defer releaseKey(key)
//	item, err := txn.Get(key)
func buildKey(prefix, suffix string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = append(buf[:0], prefix...)
	return append(buf, suffix...)
}

// releaseKey returns a key buffer to the pool. The slice must not be touched
// afterwards. Oversized buffers are left for the GC instead of being pooled.
func releaseKey(key []byte) {
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}
