package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xelth-com/centerhub/internal/activity"
	"github.com/xelth-com/centerhub/internal/auth"
	"github.com/xelth-com/centerhub/internal/models"
	"github.com/xelth-com/centerhub/internal/store"
	"gorm.io/datatypes"
)

// Technicians manages repair technicians
type Technicians struct {
	*Crud[models.Technician, *models.Technician]
}

// NewTechnicians creates the technician service
func NewTechnicians(repo store.Records[models.Technician], d Deps) *Technicians {
	return &Technicians{newCrud[models.Technician, *models.Technician](repo, d, models.CategoryTechnician, "technician",
		func(t *models.Technician) error {
			return required("name", t.Name)
		})}
}

// Customers manages customers
type Customers struct {
	*Crud[models.Customer, *models.Customer]
}

func NewCustomers(repo store.Records[models.Customer], d Deps) *Customers {
	return &Customers{newCrud[models.Customer, *models.Customer](repo, d, models.CategoryCustomer, "customer",
		func(c *models.Customer) error {
			if err := required("name", c.Name); err != nil {
				return err
			}
			switch c.Type {
			case "":
				c.Type = models.CustomerConsumer
			case models.CustomerConsumer, models.CustomerDistributor:
			default:
				return invalid("unknown customer type %q", c.Type)
			}
			return nil
		})}
}

// Inventory manages stock lines
type Inventory struct {
	*Crud[models.InventoryItem, *models.InventoryItem]
}

func NewInventory(repo store.Records[models.InventoryItem], d Deps) *Inventory {
	return &Inventory{newCrud[models.InventoryItem, *models.InventoryItem](repo, d, models.CategoryInventory, "item",
		validateItem)}
}

func validateItem(i *models.InventoryItem) error {
	if err := required("name", i.Name); err != nil {
		return err
	}
	if i.Quantity < 0 {
		return invalid("quantity must not be negative")
	}
	if i.Price < 0 {
		return invalid("price must not be negative")
	}
	return nil
}

// Sales records sales and takes the sold quantity out of stock
type Sales struct {
	*Crud[models.Sale, *models.Sale]
	inventory store.InventoryRecords
}

// NewSales creates the sales service. inventory is the store sales draw stock from.
func NewSales(repo store.Records[models.Sale], inventory store.InventoryRecords, d Deps) *Sales {
	return &Sales{
		Crud:      newCrud[models.Sale, *models.Sale](repo, d, models.CategorySales, "sale", validateSale),
		inventory: inventory,
	}
}

func validateSale(s *models.Sale) error {
	if err := required("itemId", s.ItemID); err != nil {
		return err
	}
	if s.Quantity <= 0 {
		return invalid("quantity must be positive")
	}
	if s.TotalPrice < 0 {
		return invalid("totalPrice must not be negative")
	}
	return nil
}

// Create stores the sale and decrements the item's quantity. It fails with
// ErrValidation when the item does not hold enough stock.
func (s *Sales) Create(ctx context.Context, actor auth.Principal, sale models.Sale) (models.Sale, error) {
	if err := validateSale(&sale); err != nil {
		return models.Sale{}, err
	}
	centerID, err := scope(actor, sale.CenterID)
	if err != nil {
		return models.Sale{}, err
	}
	if centerID == "" {
		return models.Sale{}, invalid("centerId is required")
	}

	item, err := s.inventory.Get(ctx, centerID, sale.ItemID)
	if err != nil {
		return models.Sale{}, fmt.Errorf("sale item %s: %w", sale.ItemID, err)
	}

	item, err = s.inventory.AdjustQuantity(ctx, centerID, item.ID, -sale.Quantity)
	if errors.Is(err, store.ErrInsufficientStock) {
		return models.Sale{}, invalid("only %d of %s in stock", item.Quantity, item.Name)
	}
	if err != nil {
		return models.Sale{}, fmt.Errorf("update stock: %w", err)
	}

	sale.CenterID = centerID
	sale.ItemName = item.Name
	if sale.TotalPrice == 0 {
		sale.TotalPrice = item.Price * float64(sale.Quantity)
	}
	if sale.Date.IsZero() {
		sale.Date = s.now()
	}
	if sale.CreatedBy == "" {
		sale.CreatedBy = actor.ActorName()
	}

	created, err := s.insert(ctx, actor, sale, "added sale")
	if err != nil {
		_, _ = s.inventory.AdjustQuantity(ctx, centerID, item.ID, sale.Quantity)
		return models.Sale{}, err
	}
	return created, nil
}

// Delete removes the sale and puts its quantity back into stock. A sale whose
// item no longer exists is deleted without restocking.
func (s *Sales) Delete(ctx context.Context, actor auth.Principal, centerID, id string) error {
	old, err := s.Get(ctx, actor, centerID, id)
	if err != nil {
		return err
	}
	if err := s.drop(ctx, actor, old); err != nil {
		return err
	}
	_, err = s.inventory.AdjustQuantity(ctx, old.CenterID, old.ItemID, old.Quantity)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("restock %s: %w", old.ItemID, err)
	}
	return nil
}

// Update edits customer and note fields. Item and quantity are fixed once the
// stock has been taken.
func (s *Sales) Update(ctx context.Context, actor auth.Principal, id string, sale models.Sale) (models.Sale, error) {
	old, err := s.Get(ctx, actor, sale.CenterID, id)
	if err != nil {
		return models.Sale{}, err
	}
	sale.ItemID = old.ItemID
	sale.ItemName = old.ItemName
	sale.Quantity = old.Quantity
	sale.CreatedBy = old.CreatedBy
	if sale.Date.IsZero() {
		sale.Date = old.Date
	}
	if err := validateSale(&sale); err != nil {
		return models.Sale{}, err
	}
	return s.save(ctx, actor, old, sale, "updated sale")
}

// Maintenance manages repair requests and their status history
type Maintenance struct {
	*Crud[models.MaintenanceRequest, *models.MaintenanceRequest]
}

func NewMaintenance(repo store.Records[models.MaintenanceRequest], d Deps) *Maintenance {
	return &Maintenance{newCrud[models.MaintenanceRequest, *models.MaintenanceRequest](repo, d,
		models.CategoryMaintenance, "maintenance request", validateMaintenance)}
}

func validateMaintenance(m *models.MaintenanceRequest) error {
	if err := required("customerName", m.CustomerName); err != nil {
		return err
	}
	if err := required("deviceType", m.DeviceType); err != nil {
		return err
	}
	if m.Status == "" {
		m.Status = models.MaintenancePending
	}
	if !m.Status.Valid() {
		return invalid("unknown status %q", m.Status)
	}
	if m.TotalCost < 0 {
		return invalid("totalCost must not be negative")
	}
	return nil
}

// Create opens a request with a first lifecycle entry
func (m *Maintenance) Create(ctx context.Context, actor auth.Principal, req models.MaintenanceRequest) (models.MaintenanceRequest, error) {
	if err := validateMaintenance(&req); err != nil {
		return models.MaintenanceRequest{}, err
	}
	req.CompletedAt = nil
	req.Lifecycle = datatypes.JSONSlice[models.LifecycleEntry]{{
		ID:                 uuid.NewString(),
		Timestamp:          m.now(),
		Status:             req.Status,
		Action:             "created",
		PerformedBy:        actor.ActorName(),
		TechnicianAssigned: req.TechnicianName,
	}}
	return m.insert(ctx, actor, req, "added maintenance request")
}

// Update edits the request's details. Status and history only move through
// ChangeStatus.
func (m *Maintenance) Update(ctx context.Context, actor auth.Principal, id string, req models.MaintenanceRequest) (models.MaintenanceRequest, error) {
	old, err := m.Get(ctx, actor, req.CenterID, id)
	if err != nil {
		return models.MaintenanceRequest{}, err
	}
	req.Status = old.Status
	if err := validateMaintenance(&req); err != nil {
		return models.MaintenanceRequest{}, err
	}
	req.Lifecycle = old.Lifecycle
	req.CompletedAt = old.CompletedAt
	return m.save(ctx, actor, old, req, "updated maintenance request")
}

// StatusChange is a request to move a maintenance request to another status
type StatusChange struct {
	CenterID       string                   `json:"centerId,omitempty"`
	Status         models.MaintenanceStatus `json:"status"`
	Notes          string                   `json:"notes,omitempty"`
	TechnicianID   string                   `json:"technicianId,omitempty"`
	TechnicianName string                   `json:"technicianName,omitempty"`
}

// ChangeStatus appends a lifecycle entry and sets CompletedAt when the request
// becomes completed.
func (m *Maintenance) ChangeStatus(ctx context.Context, actor auth.Principal, id string, ch StatusChange) (models.MaintenanceRequest, error) {
	if !ch.Status.Valid() {
		return models.MaintenanceRequest{}, invalid("unknown status %q", ch.Status)
	}
	old, err := m.Get(ctx, actor, ch.CenterID, id)
	if err != nil {
		return models.MaintenanceRequest{}, err
	}

	now := m.now()
	updated := old
	updated.Lifecycle = append(old.Lifecycle[:len(old.Lifecycle):len(old.Lifecycle)], models.LifecycleEntry{
		ID:                 uuid.NewString(),
		Timestamp:          now,
		Status:             ch.Status,
		Action:             fmt.Sprintf("status changed from %s to %s", old.Status, ch.Status),
		PerformedBy:        actor.ActorName(),
		Notes:              ch.Notes,
		TechnicianAssigned: ch.TechnicianName,
	})
	updated.Status = ch.Status
	if ch.TechnicianID != "" || ch.TechnicianName != "" {
		updated.TechnicianID = ch.TechnicianID
		updated.TechnicianName = ch.TechnicianName
	}
	switch ch.Status {
	case models.MaintenanceCompleted:
		if updated.CompletedAt == nil {
			updated.CompletedAt = &now
		}
	default:
		updated.CompletedAt = nil
	}

	return m.save(ctx, actor, old, updated, "changed maintenance status to "+string(ch.Status))
}

// CenterInput carries the writable center fields. Password is plain text and
// stored as a bcrypt hash; on update an empty Password keeps the current one.
type CenterInput struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password,omitempty"`
	ManagerName string `json:"managerName,omitempty"`
	Address     string `json:"address,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// Centers is the administrator's center registry
type Centers struct {
	centers store.CenterStore
	rec     activity.Recorder
	now     func() time.Time
}

func NewCenters(d Deps) *Centers {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Centers{centers: d.Centers, rec: d.Recorder, now: now}
}

func adminOnly(actor auth.Principal) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// List returns every center
func (c *Centers) List(ctx context.Context, actor auth.Principal) ([]models.Center, error) {
	if err := adminOnly(actor); err != nil {
		return nil, err
	}
	return c.centers.ListCenters(ctx)
}

// Create registers a center
func (c *Centers) Create(ctx context.Context, actor auth.Principal, in CenterInput) (*models.Center, error) {
	if err := adminOnly(actor); err != nil {
		return nil, err
	}
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	if err := required("email", in.Email); err != nil {
		return nil, err
	}
	if err := required("password", in.Password); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	now := c.now()
	center := &models.Center{
		ID:           id,
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		ManagerName:  in.ManagerName,
		Address:      in.Address,
		Phone:        in.Phone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.centers.CreateCenter(ctx, center); err != nil {
		return nil, fmt.Errorf("create center: %w", err)
	}

	c.rec.Log(ctx, actor.InCenter(center.ID, center.Name), activity.Entry{
		Category:    models.CategoryOther,
		Action:      "created center",
		Description: "created center " + center.Name,
		TargetID:    center.ID,
		TargetName:  center.Name,
		Details:     center,
	})
	return center, nil
}

// Update changes a center's profile and, when given, its password
func (c *Centers) Update(ctx context.Context, actor auth.Principal, id string, in CenterInput) (*models.Center, error) {
	if err := adminOnly(actor); err != nil {
		return nil, err
	}
	old, err := c.centers.GetCenter(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	if err := required("email", in.Email); err != nil {
		return nil, err
	}

	updated := *old
	updated.Name = strings.TrimSpace(in.Name)
	updated.Email = strings.ToLower(strings.TrimSpace(in.Email))
	updated.ManagerName = in.ManagerName
	updated.Address = in.Address
	updated.Phone = in.Phone
	updated.UpdatedAt = c.now()
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		updated.PasswordHash = hash
	}
	if err := c.centers.UpdateCenter(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update center: %w", err)
	}

	c.rec.Log(ctx, actor.InCenter(updated.ID, updated.Name), activity.Entry{
		Category:    models.CategoryOther,
		Action:      "updated center",
		Description: "updated center " + updated.Name,
		TargetID:    updated.ID,
		TargetName:  updated.Name,
		Details:     activity.Change{Old: old, New: updated},
	})
	return &updated, nil
}

// Delete removes a center. Its activities and sessions stay.
func (c *Centers) Delete(ctx context.Context, actor auth.Principal, id string) error {
	if err := adminOnly(actor); err != nil {
		return err
	}
	old, err := c.centers.GetCenter(ctx, id)
	if err != nil {
		return err
	}
	if err := c.centers.DeleteCenter(ctx, id); err != nil {
		return fmt.Errorf("delete center: %w", err)
	}
	c.rec.Log(ctx, actor.InCenter(old.ID, old.Name), activity.Entry{
		Category:    models.CategoryOther,
		Action:      "deleted center",
		Description: "deleted center " + old.Name,
		TargetID:    old.ID,
		TargetName:  old.Name,
		Details:     old,
	})
	return nil
}
