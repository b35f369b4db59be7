package pubsub

import "fmt"

// Channel naming: {prefix}:{entity}:{id}:to_{target}.
const (
	// Catalog -> search indexer
	ChannelApartmentToIndex = "sync:apartment:%s:to_index"
	ChannelProjectToIndex   = "sync:project:%s:to_index"

	// PatternToIndex matches every catalog -> indexer channel.
	PatternToIndex = "sync:*:*:to_index"
)

// Event types for catalog -> indexer communication.
const (
	EventApartmentUpserted = "apartment.upserted"
	EventApartmentDeleted  = "apartment.deleted"
	EventProjectUpdated    = "project.updated"
)

// ApartmentToIndexChannel returns the channel for an apartment sync event.
func ApartmentToIndexChannel(apartmentID string) string {
	return fmt.Sprintf(ChannelApartmentToIndex, apartmentID)
}

// ProjectToIndexChannel returns the channel for a project sync event.
func ProjectToIndexChannel(projectID string) string {
	return fmt.Sprintf(ChannelProjectToIndex, projectID)
}
