package model

import "time"

// Document is a registered, ingested document. Its extracted segments live
// alongside it in the store.
type Document struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"` // Original file name
	SegmentCount int       `json:"segment_count"`
	CreatedAt    time.Time `json:"created_at"`
}
