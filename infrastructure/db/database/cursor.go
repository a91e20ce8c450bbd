package database

// Cursor iterates over database entries given some bucket.
type Cursor interface {
	// Next moves the iterator to the next key/value pair. It returns whether
	// the iterator is exhausted. Panics if the cursor is closed.
	Next() bool

	// First moves the iterator to the first key/value pair. It returns false
	// if such a pair does not exist. Panics if the cursor is closed.
	First() bool

	// Seek moves the iterator to the first key/value pair whose key is at or
	// past the given key in the bucket's ordering. It returns ErrNotFound if
	// no such pair exists.
	Seek(key *Key) error

	// Key returns the key of the current key/value pair, or ErrNotFound if
	// done. Note that the key is trimmed to not include any prefixes.
	Key() (*Key, error)

	// Value returns the value of the current key/value pair, or ErrNotFound
	// if done.
	Value() ([]byte, error)

	// Close releases the iterator.
	Close() error
}
