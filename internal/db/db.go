// Package db holds the storage-neutral types shared by the Redis-backed film
// index and the result cache.
package db

// HashSetItem is one film hash written by a pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}
