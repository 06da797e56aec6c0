package models

import "time"

// Equipment represents one physical equipment unit. Inventory counts per
// name are derived by counting rows sharing the same name.
type Equipment struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EventEquipment links an event request to an equipment unit with a quantity.
type EventEquipment struct {
	ID          string `db:"id" json:"id"`
	EventID     string `db:"event_id" json:"event_id"`
	EquipmentID string `db:"equipment_id" json:"equipment_id"`
	Quantity    int    `db:"quantity" json:"quantity"`
}
