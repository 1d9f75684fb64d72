// Package connector contains the connectors used to join the stages.
package connector

import "context"

// Connector is a bounded FIFO queue shared between producer and consumer stages.
type Connector[T any] interface {
	// Publish blocks until a slot is free, stores the item and returns the slot index.
	Publish(ctx context.Context, item T) (int, error)
	// Take blocks until an item is available and removes it.
	Take(ctx context.Context) (T, error)
	// Len returns the number of stored items.
	Len() int
	// Cap returns the capacity.
	Cap() int
	// Close closes the connector waking up the blocked callers.
	Close()
}
