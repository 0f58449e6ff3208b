package atlas

import (
	"errors"
	"fmt"
)

// Sentinel errors for the atlas package.
var (
	// ErrInvalidItem is wrapped by every ItemError.
	ErrInvalidItem = errors.New("atlas: invalid item")

	// ErrNoSurface is returned when an operation needs a surface and none is allocated.
	ErrNoSurface = errors.New("atlas: no surface allocated")

	// ErrClosed is returned when operating on a closed manager or store.
	ErrClosed = errors.New("atlas: closed")

	// ErrUnknownSource is returned by Update when Props.Source is nil.
	ErrUnknownSource = errors.New("atlas: props have no source")

	// ErrNilIconFunc is returned when Props.Icon is nil.
	ErrNilIconFunc = errors.New("atlas: props have no icon func")

	// ErrNilFetcher is returned when the configuration has no fetcher.
	ErrNilFetcher = errors.New("atlas: nil fetcher")
)

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "atlas: invalid config." + e.Field + ": " + e.Reason
}

// ItemError reports an item that cannot be packed.
type ItemError struct {
	Key    string
	Reason string
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("atlas: item %q: %s", e.Key, e.Reason)
}

// Unwrap makes errors.Is(err, ErrInvalidItem) hold for every ItemError.
func (e *ItemError) Unwrap() error {
	return ErrInvalidItem
}
