package models

import "time"

// Lookup is a journal entry describing one pipeline invocation.
type Lookup struct {
	ID          int64        `json:"id"`                    // ID is assigned by the database.
	Address     Address      `json:"address"`               // Address as supplied by the caller.
	Coordinates *Coordinates `json:"coordinates,omitempty"` // Coordinates is nil when geocoding did not succeed.
	BlockFIPS   string       `json:"block_fips,omitempty"`  // BlockFIPS is empty when tract resolution did not succeed.
	Tract       *Tract       `json:"tract,omitempty"`       // Tract is nil when tract resolution did not succeed.
	Outcome     string       `json:"outcome"`               // Outcome is one of the Outcome* labels.
	Error       string       `json:"error,omitempty"`       // Error holds the failure message, if any.
	CreatedAt   time.Time    `json:"created_at"`            // CreatedAt is set by the database.
}
