// Package blob abstracts object storage behind a location-keyed interface.
//
// Locations are relative, slash-separated keys like
// "alice@example.com/REF123_output.csv". The filesystem implementation maps
// them under a root directory; the interface keeps the pipeline independent
// of where bytes actually live.
package blob

import "context"

// Store reads and writes byte payloads addressed by location keys.
type Store interface {
	// Get returns the payload at the location.
	Get(ctx context.Context, location string) ([]byte, error)
	// Put writes the payload and returns the final location.
	Put(ctx context.Context, location string, data []byte) (string, error)
}
