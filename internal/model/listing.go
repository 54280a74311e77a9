package model

import "time"

// Listing is one row of the unified raw listing store. Public and Restricted
// are independently sourced payloads; Restricted may be nil when the feed
// never produced one. ListingKey is immutable once created.
type Listing struct {
	ListingKey string    `json:"listing_key"`
	Public     Payload   `json:"public_payload"`
	Restricted Payload   `json:"restricted_payload,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CleanListing is the sparse projection of a Listing: both payloads with
// null-valued and empty-array keys removed. Re-derivable from the raw row at
// any time; never edited independently.
type CleanListing struct {
	ListingKey string    `json:"listing_key"`
	Public     Payload   `json:"public_payload"`
	Restricted Payload   `json:"restricted_payload,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SoldListing is a raw listing whose classified lifecycle state is terminal.
// Payloads are carried verbatim. ClosedDate is nil when no close signal could
// be parsed from the restricted payload.
type SoldListing struct {
	ListingKey string     `json:"listing_key"`
	Public     Payload    `json:"public_payload"`
	Restricted Payload    `json:"restricted_payload,omitempty"`
	Status     string     `json:"status"`
	ClosedDate *time.Time `json:"closed_date,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
