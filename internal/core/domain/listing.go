package domain

import "time"

// ListingSyncStatus is the marketplace sync state of a listing
type ListingSyncStatus string

const (
	ListingSyncStatusSynced   ListingSyncStatus = "synced"
	ListingSyncStatusPending  ListingSyncStatus = "pending"
	ListingSyncStatusUnsynced ListingSyncStatus = "unsynced"
)

// Listing is a product record that may be linked to a marketplace provider.
// Listings are owned by the sync jobs; this service only unlinks them.
type Listing struct {
	ID             string            `json:"id"`
	OrganizationID string            `json:"organization_id"`
	Provider       ProviderType      `json:"provider,omitempty"`
	ExternalID     string            `json:"external_id,omitempty"`
	ExternalURL    string            `json:"external_url,omitempty"`
	SyncStatus     ListingSyncStatus `json:"sync_status"`
	LastSyncedAt   *time.Time        `json:"last_synced_at,omitempty"`
}

// Unlink clears provider sync fields while keeping the record.
// ExternalID is kept as a reference to the former marketplace listing.
func (l *Listing) Unlink() {
	l.SyncStatus = ListingSyncStatusUnsynced
	l.ExternalURL = ""
	l.LastSyncedAt = nil
}
