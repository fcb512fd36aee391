// Package store is the persistence boundary for centers, sessions, activities and the
// center-scoped reference records. GormStore talks to postgres; MemoryStore backs tests
// and single-process demo runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/xelth-com/centerhub/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrActiveSessionExists is returned when a center already has an open session
	ErrActiveSessionExists = errors.New("center already has an active session")
	// ErrSessionNotOpen is returned when closing a session that is already closed
	ErrSessionNotOpen = errors.New("session is not active")
	// ErrInsufficientStock is returned when a decrement would take an item below zero
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDuplicate is returned when a write collides with a unique key
	ErrDuplicate = errors.New("duplicate key")
)

// ActivityQuery narrows an activity listing. Zero values mean "no constraint".
type ActivityQuery struct {
	From     *time.Time
	To       *time.Time
	Category models.Category
	CenterID string
	Limit    int
}

// CenterStore persists centers
type CenterStore interface {
	ListCenters(ctx context.Context) ([]models.Center, error)
	GetCenter(ctx context.Context, id string) (*models.Center, error)
	GetCenterByEmail(ctx context.Context, email string) (*models.Center, error)
	CreateCenter(ctx context.Context, c *models.Center) error
	UpdateCenter(ctx context.Context, c *models.Center) error
	DeleteCenter(ctx context.Context, id string) error
}

// ActivityStore persists the center-scoped and the global activity logs.
// The two appends are independent writes.
type ActivityStore interface {
	AppendLocal(ctx context.Context, rec *models.ActivityRecord) error
	AppendGlobal(ctx context.Context, rec *models.GlobalActivity) error
	ListLocal(ctx context.Context, centerID string, q ActivityQuery) ([]models.ActivityRecord, error)
	ListGlobal(ctx context.Context, q ActivityQuery) ([]models.GlobalActivity, error)
	CountLocal(ctx context.Context, centerID string, from time.Time, to *time.Time) (int64, error)
	HasLocal(ctx context.Context, id string) (bool, error)
	// LocalWithoutMirror returns local records that have no global copy, oldest first
	LocalWithoutMirror(ctx context.Context, limit int) ([]models.ActivityRecord, error)
}

// SessionStore persists center sessions
type SessionStore interface {
	ActiveSession(ctx context.Context, centerID string) (*models.CenterSession, error)
	CreateSession(ctx context.Context, s *models.CenterSession) error
	CloseSession(ctx context.Context, centerID, id string, end time.Time, endedBy string) (*models.CenterSession, error)
	GetSession(ctx context.Context, centerID, id string) (*models.CenterSession, error)
	ListSessions(ctx context.Context, centerID string, limit int) ([]models.CenterSession, error)
	ListActiveSessions(ctx context.Context) ([]models.CenterSession, error)
}

// Records persists one kind of center-scoped entity.
// An empty centerID in List means every center.
type Records[T models.CenterScoped] interface {
	List(ctx context.Context, centerID string) ([]T, error)
	Get(ctx context.Context, centerID, id string) (T, error)
	Create(ctx context.Context, rec T) error
	Update(ctx context.Context, rec T) error
	Delete(ctx context.Context, centerID, id string) error
}

// InventoryRecords adds an atomic stock adjustment to the inventory repository.
// AdjustQuantity applies delta only if the result stays >= 0, otherwise it
// returns ErrInsufficientStock and leaves the item untouched.
type InventoryRecords interface {
	Records[models.InventoryItem]
	AdjustQuantity(ctx context.Context, centerID, id string, delta int) (models.InventoryItem, error)
}

// Store groups every repository the services need
type Store struct {
	Centers     CenterStore
	Activities  ActivityStore
	Sessions    SessionStore
	Technicians Records[models.Technician]
	Customers   Records[models.Customer]
	Inventory   InventoryRecords
	Sales       Records[models.Sale]
	Maintenance Records[models.MaintenanceRequest]
}

// Models lists every persisted model for schema migration
func Models() []interface{} {
	return []interface{}{
		&models.Center{},
		&models.CenterSession{},
		&models.ActivityRecord{},
		&models.GlobalActivity{},
		&models.Technician{},
		&models.Customer{},
		&models.InventoryItem{},
		&models.Sale{},
		&models.MaintenanceRequest{},
	}
}
