// Package kv provides the durable key-value store backing the recording
// library. The keyspace is split into named partitions: one for raw audio
// payloads and one for recording metadata. Each partition maps a recording
// id to an opaque byte value; operations are transactional per call, and
// there are no cross-partition transactions.
//
// The package includes a BadgerDB-backed implementation for production use
// and an in-memory implementation for testing.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when an id does not exist in a partition.
	ErrNotFound = errors.New("kv: not found")
)

// Partition names a keyspace within the store.
type Partition string

// The two partitions used by the recording library.
const (
	// Audio holds raw little-endian float32 sample payloads.
	Audio Partition = "audio"

	// Meta holds msgpack-encoded recording metadata.
	Meta Partition = "meta"
)

// separator joins the partition name and the id in the encoded key.
// Ids must not contain it; recording ids are hex-and-hyphen strings,
// which never do.
const separator byte = ':'

// Store is the interface for a partitioned key-value store.
type Store interface {
	// Get retrieves the value for an id. Returns ErrNotFound if not present.
	Get(ctx context.Context, p Partition, id string) ([]byte, error)

	// Put stores a value under an id. Overwrites any existing value.
	Put(ctx context.Context, p Partition, id string, value []byte) error

	// Keys iterates over all ids present in a partition.
	// The iteration order is lexicographic by id.
	Keys(ctx context.Context, p Partition) iter.Seq2[string, error]

	// Close releases any resources held by the store.
	Close() error
}

// encodeKey converts a (partition, id) pair to its byte representation.
func encodeKey(p Partition, id string) []byte {
	if strings.IndexByte(id, separator) >= 0 {
		panic("kv: id contains separator: " + id)
	}
	buf := make([]byte, 0, len(p)+1+len(id))
	buf = append(buf, p...)
	buf = append(buf, separator)
	buf = append(buf, id...)
	return buf
}

// keyPrefix returns the encoded prefix for a partition, including the
// trailing separator so "audio" never matches keys in "audiox".
func keyPrefix(p Partition) []byte {
	buf := make([]byte, 0, len(p)+1)
	buf = append(buf, p...)
	buf = append(buf, separator)
	return buf
}
