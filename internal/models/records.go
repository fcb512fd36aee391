package models

import (
	"time"

	"gorm.io/datatypes"
)

// CenterScoped is implemented by every entity that lives under a center
type CenterScoped interface {
	GetID() string
	GetCenterID() string
	GetCreatedAt() time.Time
	DisplayName() string
}

// stamp fills the identity and timestamp fields shared by center-scoped records
func stamp(id *string, centerID *string, centerName *string, createdAt, updatedAt *time.Time,
	newID, center, name string, created, now time.Time) {
	if *id == "" {
		*id = newID
	}
	*centerID = center
	*centerName = name
	switch {
	case !created.IsZero():
		*createdAt = created
	case createdAt.IsZero():
		*createdAt = now
	}
	*updatedAt = now
}

// Technician is a repair technician employed by a center
type Technician struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	CenterID    string    `gorm:"not null;index" json:"centerId"`
	CenterName  string    `json:"centerName,omitempty"`
	Name        string    `gorm:"not null" json:"name"`
	PhoneNumber string    `json:"phoneNumber"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Technician) TableName() string { return "technicians" }
func (t Technician) GetID() string { return t.ID }
func (t Technician) GetCenterID() string { return t.CenterID }
func (t Technician) GetCreatedAt() time.Time { return t.CreatedAt }
func (t Technician) DisplayName() string { return t.Name }

// Stamp assigns id (when empty), center and timestamps. A non-zero created
// overrides CreatedAt.
func (t *Technician) Stamp(id, centerID, centerName string, created, now time.Time) {
	stamp(&t.ID, &t.CenterID, &t.CenterName, &t.CreatedAt, &t.UpdatedAt, id, centerID, centerName, created, now)
}

// CustomerType distinguishes resellers from end consumers
type CustomerType string

const (
	CustomerDistributor CustomerType = "distributor"
	CustomerConsumer    CustomerType = "consumer"
)

// Customer is a person or company served by a center
type Customer struct {
	ID          string       `gorm:"primaryKey;type:uuid" json:"id"`
	CenterID    string       `gorm:"not null;index" json:"centerId"`
	CenterName  string       `json:"centerName,omitempty"`
	Name        string       `gorm:"not null" json:"name"`
	PhoneNumber string       `json:"phoneNumber"`
	Type        CustomerType `gorm:"type:varchar(16);default:'consumer'" json:"type"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func (Customer) TableName() string { return "customers" }
func (c Customer) GetID() string { return c.ID }
func (c Customer) GetCenterID() string { return c.CenterID }
func (c Customer) GetCreatedAt() time.Time { return c.CreatedAt }
func (c Customer) DisplayName() string { return c.Name }

// Stamp assigns id (when empty), center and timestamps
func (c *Customer) Stamp(id, centerID, centerName string, created, now time.Time) {
	stamp(&c.ID, &c.CenterID, &c.CenterName, &c.CreatedAt, &c.UpdatedAt, id, centerID, centerName, created, now)
}

// LowStockThreshold marks inventory items that need restocking
const LowStockThreshold = 10

// InventoryItem is a stock line held by a center
type InventoryItem struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	CenterID   string    `gorm:"not null;index" json:"centerId"`
	CenterName string    `json:"centerName,omitempty"`
	Name       string    `gorm:"not null" json:"name"`
	Quantity   int       `gorm:"default:0" json:"quantity"`
	Price      float64   `json:"price"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (InventoryItem) TableName() string { return "inventory_items" }
func (i InventoryItem) GetID() string { return i.ID }
func (i InventoryItem) GetCenterID() string { return i.CenterID }
func (i InventoryItem) GetCreatedAt() time.Time { return i.CreatedAt }
func (i InventoryItem) DisplayName() string { return i.Name }

// Stamp assigns id (when empty), center and timestamps
func (i *InventoryItem) Stamp(id, centerID, centerName string, created, now time.Time) {
	stamp(&i.ID, &i.CenterID, &i.CenterName, &i.CreatedAt, &i.UpdatedAt, id, centerID, centerName, created, now)
}

// Sale records items sold to a customer
type Sale struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	CenterID      string    `gorm:"not null;index" json:"centerId"`
	CenterName    string    `json:"centerName,omitempty"`
	ItemID        string    `gorm:"index" json:"itemId"`
	ItemName      string    `json:"itemName"`
	Quantity      int       `json:"quantity"`
	CustomerName  string    `json:"customerName"`
	CustomerPhone string    `json:"customerPhone"`
	TotalPrice    float64   `json:"totalPrice"`
	Date          time.Time `gorm:"index" json:"date"`
	Note          string    `json:"note,omitempty"`
	CreatedBy     string    `json:"createdBy,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Sale) TableName() string { return "sales" }
func (s Sale) GetID() string { return s.ID }
func (s Sale) GetCenterID() string { return s.CenterID }
func (s Sale) GetCreatedAt() time.Time { return s.CreatedAt }
func (s Sale) DisplayName() string { return s.ItemName }

// Stamp assigns id (when empty), center and timestamps
func (s *Sale) Stamp(id, centerID, centerName string, created, now time.Time) {
	stamp(&s.ID, &s.CenterID, &s.CenterName, &s.CreatedAt, &s.UpdatedAt, id, centerID, centerName, created, now)
}

// MaintenanceStatus is the state of a repair request
type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "pending"
	MaintenanceInProgress MaintenanceStatus = "in-progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

// Valid reports whether s is a known status
func (s MaintenanceStatus) Valid() bool {
	switch s {
	case MaintenancePending, MaintenanceInProgress, MaintenanceCompleted, MaintenanceCancelled:
		return true
	}
	return false
}

// MaintenancePart is an inventory part consumed by a repair
type MaintenancePart struct {
	ItemID    string  `json:"itemId"`
	ItemName  string  `json:"itemName"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// LifecycleEntry is one step in a maintenance request's history
type LifecycleEntry struct {
	ID                 string            `json:"id"`
	Timestamp          time.Time         `json:"timestamp"`
	Status             MaintenanceStatus `json:"status"`
	Action             string            `json:"action"`
	PerformedBy        string            `json:"performedBy"`
	Notes              string            `json:"notes,omitempty"`
	TechnicianAssigned string            `json:"technicianAssigned,omitempty"`
}

// MaintenanceRequest is a repair job handled by a center
type MaintenanceRequest struct {
	ID             string                               `gorm:"primaryKey;type:uuid" json:"id"`
	CenterID       string                               `gorm:"not null;index" json:"centerId"`
	CenterName     string                               `json:"centerName,omitempty"`
	CustomerID     string                               `gorm:"index" json:"customerId,omitempty"`
	CustomerName   string                               `gorm:"not null" json:"customerName"`
	PhoneNumber    string                               `json:"phoneNumber,omitempty"`
	DeviceType     string                               `json:"deviceType"`
	Description    string                               `json:"description"`
	Status         MaintenanceStatus                    `gorm:"type:varchar(16);default:'pending';index" json:"status"`
	TechnicianID   string                               `gorm:"index" json:"technicianId,omitempty"`
	TechnicianName string                               `json:"technicianName,omitempty"`
	IsWarranty     bool                                 `json:"isWarranty"`
	Parts          datatypes.JSONSlice[MaintenancePart] `gorm:"type:jsonb" json:"parts,omitempty"`
	TotalCost      float64                              `json:"totalCost"`
	Notes          string                               `json:"notes,omitempty"`
	Lifecycle      datatypes.JSONSlice[LifecycleEntry]  `gorm:"type:jsonb" json:"lifecycle"`
	CompletedAt    *time.Time                           `json:"completedAt,omitempty"`
	CreatedAt      time.Time                            `json:"createdAt"`
	UpdatedAt      time.Time                            `json:"updatedAt"`
}

func (MaintenanceRequest) TableName() string { return "maintenance_requests" }
func (m MaintenanceRequest) GetID() string { return m.ID }
func (m MaintenanceRequest) GetCenterID() string { return m.CenterID }
func (m MaintenanceRequest) GetCreatedAt() time.Time { return m.CreatedAt }
func (m MaintenanceRequest) DisplayName() string { return m.CustomerName + " / " + m.DeviceType }

// Stamp assigns id (when empty), center and timestamps
func (m *MaintenanceRequest) Stamp(id, centerID, centerName string, created, now time.Time) {
	stamp(&m.ID, &m.CenterID, &m.CenterName, &m.CreatedAt, &m.UpdatedAt, id, centerID, centerName, created, now)
}
