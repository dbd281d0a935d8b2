package core

import "context"

// SlotStorage is a named-slot key-value backend holding the serialized state of a store.
type SlotStorage interface {
	// Load returns the raw value of the slot; found is false when the slot was never written.
	Load(ctx context.Context, slot string) (value []byte, found bool, err error)
	// Save replaces the value of the slot.
	Save(ctx context.Context, slot string, value []byte) error
	Close() error
}
