// Package statestore provides the auxiliary key-value store the boot
// provisioning supervisor uses to remember the vector store id across
// restarts. It is consumed purely as get(key)/set(key, value).
package statestore

import "context"

// Store is the minimal contract every backing implementation satisfies.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}
