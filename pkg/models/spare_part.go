package models

import (
	"time"

	"github.com/google/uuid"
)

// SparePart is an inventory item consumable against work orders.
type SparePart struct {
	ID           uuid.UUID `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	MinStock     int       `json:"min_stock"`
	CurrentStock int       `json:"current_stock"`
	UnitPrice    float64   `json:"unit_price"`
	Location     string    `json:"location,omitempty"`
}

// PartUsage records a consumption of spare parts against a work order.
// Inserting a usage row and decrementing the part's stock happen in the
// same transaction.
type PartUsage struct {
	ID          uuid.UUID `json:"id"`
	WorkOrderID uuid.UUID `json:"work_order_id"`
	PartID      uuid.UUID `json:"part_id"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
}

// LaborEntry records time a user spent on a work order.
type LaborEntry struct {
	ID          uuid.UUID `json:"id"`
	WorkOrderID uuid.UUID `json:"work_order_id"`
	UserID      uuid.UUID `json:"user_id"`
	Minutes     int       `json:"minutes"`
	HourlyRate  float64   `json:"hourly_rate"`
	CreatedAt   time.Time `json:"created_at"`
}

// Attachment is a file stored against a work order (photo evidence,
// signed sheets). Only the path reference lives in the database.
type Attachment struct {
	ID          uuid.UUID `json:"id"`
	WorkOrderID uuid.UUID `json:"work_order_id"`
	FilePath    string    `json:"file_path"`
	FileType    string    `json:"file_type,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
