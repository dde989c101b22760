// Package sitedata implements the server-side store that persists the site document as many
// small shards with merge-on-read semantics.
package sitedata

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrShardNotFound is returned by ShardBackend.Read for keys that were never written or were deleted
var ErrShardNotFound = errors.New("shard not found")

// ShardBackend stores opaque payloads by key.
// Keys are one or more segments of [A-Za-z0-9_-] joined by '/'.
// This interface is implemented by the infrastructure layer (filesystem, S3, SQL, memory).
type ShardBackend interface {
	// Read returns the payload of key or ErrShardNotFound
	Read(ctx context.Context, key string) ([]byte, error)

	// Write stores data under key, replacing any previous payload.
	// A successful Write is visible to the next Read.
	Write(ctx context.Context, key string, data []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns every stored key starting with prefix, in no particular order
	List(ctx context.Context, prefix string) ([]string, error)
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}(/[A-Za-z0-9_-]{1,128})*$`)

// ValidateKey rejects keys that could escape a backend's namespace
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("invalid shard key %q", key)
	}
	return nil
}
