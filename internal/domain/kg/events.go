package kg

import "time"

// EventSnapshotLoaded is the event type announcing a committed bulk load.
const EventSnapshotLoaded = "kg.snapshot.loaded"

// SnapshotLoaded announces that a bulk load committed.  Serving processes
// react by reloading their snapshot.
type SnapshotLoaded struct {
	LoadID         string    `json:"load_id"`
	Checksum       string    `json:"snapshot_checksum"`
	Source         string    `json:"source"`
	TotalEntities  int64     `json:"total_entities"`
	TotalRelations int64     `json:"total_relations"`
	LoadedAt       time.Time `json:"loaded_at"`
}

//Personal.AI order the ending
