package models

import "time"

// InventorySnapshot is the daily dashboard summary archived in MongoDB.
type InventorySnapshot struct {
	Date            time.Time                      `bson:"date" json:"date"`
	TotalLots       int                            `bson:"total_lots" json:"totalLots"`
	ArchivedLots    int                            `bson:"archived_lots" json:"archivedLots"`
	Counts          StatusCounts                   `bson:"counts" json:"counts"`
	ByInventoryType map[InventoryType]StatusCounts `bson:"by_inventory_type" json:"byInventoryType"`
	TotalRemaining  string                         `bson:"total_remaining" json:"totalRemaining"`
	TotalWithdrawn  string                         `bson:"total_withdrawn" json:"totalWithdrawn"`
	CriticalLots    []string                       `bson:"critical_lots" json:"criticalLots"`
	Diagnostics     int                            `bson:"diagnostics" json:"diagnostics"`
	CreatedAt       time.Time                      `bson:"created_at" json:"createdAt"`
}
