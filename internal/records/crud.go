// Package records holds the CRUD services for center-scoped reference data.
// Every successful mutation is written to the activity log.
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
)

var (
	// ErrValidation wraps every input error
	ErrValidation = errors.New("validation failed")
	// ErrForbidden is returned when the caller has no center to act for
	ErrForbidden = errors.New("no center in scope")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid("%s is required", field)
	}
	return nil
}

// record is a center-scoped model stamped through its pointer
type record[T any] interface {
	*T
	models.CenterScoped
	Stamp(id, centerID, centerName string, created, now time.Time)
}

// Crud is the create/read/update/delete flow shared by every entity.
// Center operators are confined to their own center. The administrator reads
// across centers and writes to the center named on the record.
type Crud[T models.CenterScoped, PT record[T]] struct {
	repo     store.Records[T]
	centers  store.CenterStore
	rec      activity.Recorder
	now      func() time.Time
	category models.Category
	noun     string
	validate func(*T) error
}

// Deps are the collaborators every entity service needs
type Deps struct {
	Centers  store.CenterStore
	Recorder activity.Recorder
	Now      func() time.Time
}

func newCrud[T models.CenterScoped, PT record[T]](repo store.Records[T], d Deps,
	category models.Category, noun string, validate func(*T) error) *Crud[T, PT] {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Crud[T, PT]{
		repo:     repo,
		centers:  d.Centers,
		rec:      d.Recorder,
		now:      now,
		category: category,
		noun:     noun,
		validate: validate,
	}
}

// scope returns the center an actor works in. Admins may name one explicitly.
func scope(actor auth.Principal, requested string) (string, error) {
	if actor.IsAdmin() {
		return requested, nil
	}
	if actor.CenterID == "" {
		return "", ErrForbidden
	}
	return actor.CenterID, nil
}

// List returns the records visible to actor. centerID narrows an admin's view.
func (c *Crud[T, PT]) List(ctx context.Context, actor auth.Principal, centerID string) ([]T, error) {
	centerID, err := scope(actor, centerID)
	if err != nil {
		return nil, err
	}
	return c.repo.List(ctx, centerID)
}

// Get returns one record. centerID is ignored for center operators.
func (c *Crud[T, PT]) Get(ctx context.Context, actor auth.Principal, centerID, id string) (T, error) {
	var zero T
	centerID, err := scope(actor, centerID)
	if err != nil {
		return zero, err
	}
	if centerID == "" {
		return zero, invalid("centerId is required")
	}
	return c.repo.Get(ctx, centerID, id)
}

// Create validates and stores rec
func (c *Crud[T, PT]) Create(ctx context.Context, actor auth.Principal, rec T) (T, error) {
	var zero T
	if c.validate != nil {
		if err := c.validate(&rec); err != nil {
			return zero, err
		}
	}
	return c.insert(ctx, actor, rec, "added "+c.noun)
}

func (c *Crud[T, PT]) insert(ctx context.Context, actor auth.Principal, rec T, action string) (T, error) {
	var zero T
	centerID, err := scope(actor, rec.GetCenterID())
	if err != nil {
		return zero, err
	}
	if centerID == "" {
		return zero, invalid("centerId is required")
	}
	actor = c.actorIn(ctx, actor, centerID)
	PT(&rec).Stamp(uuid.NewString(), centerID, actor.CenterName, time.Time{}, c.now())

	if err := c.repo.Create(ctx, rec); err != nil {
		return zero, fmt.Errorf("create %s: %w", c.noun, err)
	}

	c.rec.Log(ctx, actor, activity.Entry{
		Category:    c.category,
		Action:      action,
		Description: fmt.Sprintf("%s %s", action, rec.DisplayName()),
		TargetID:    rec.GetID(),
		TargetName:  rec.DisplayName(),
		Details:     rec,
	})
	return rec, nil
}

// Update replaces record id with rec. The stored id, center and creation time
// are kept.
func (c *Crud[T, PT]) Update(ctx context.Context, actor auth.Principal, id string, rec T) (T, error) {
	var zero T
	old, err := c.Get(ctx, actor, rec.GetCenterID(), id)
	if err != nil {
		return zero, err
	}
	if c.validate != nil {
		if err := c.validate(&rec); err != nil {
			return zero, err
		}
	}
	return c.save(ctx, actor, old, rec, "updated "+c.noun)
}

// save persists updated in place of old and logs the change under action
func (c *Crud[T, PT]) save(ctx context.Context, actor auth.Principal, old, updated T, action string) (T, error) {
	var zero T
	actor = c.actorIn(ctx, actor, old.GetCenterID())
	PT(&updated).Stamp(old.GetID(), old.GetCenterID(), actor.CenterName, old.GetCreatedAt(), c.now())

	if err := c.repo.Update(ctx, updated); err != nil {
		return zero, fmt.Errorf("update %s: %w", c.noun, err)
	}

	c.rec.Log(ctx, actor, activity.Entry{
		Category:    c.category,
		Action:      action,
		Description: fmt.Sprintf("%s %s", action, updated.DisplayName()),
		TargetID:    updated.GetID(),
		TargetName:  updated.DisplayName(),
		Details:     activity.Change{Old: old, New: updated},
	})
	return updated, nil
}

// Delete removes a record and logs what was removed
func (c *Crud[T, PT]) Delete(ctx context.Context, actor auth.Principal, centerID, id string) error {
	old, err := c.Get(ctx, actor, centerID, id)
	if err != nil {
		return err
	}
	return c.drop(ctx, actor, old)
}

// drop deletes a record that was already read and logs it
func (c *Crud[T, PT]) drop(ctx context.Context, actor auth.Principal, old T) error {
	if err := c.repo.Delete(ctx, old.GetCenterID(), old.GetID()); err != nil {
		return fmt.Errorf("delete %s: %w", c.noun, err)
	}

	c.rec.Log(ctx, c.actorIn(ctx, actor, old.GetCenterID()), activity.Entry{
		Category:    c.category,
		Action:      "deleted " + c.noun,
		Description: fmt.Sprintf("deleted %s %s", c.noun, old.DisplayName()),
		TargetID:    old.GetID(),
		TargetName:  old.DisplayName(),
		Details:     old,
	})
	return nil
}

// actorIn returns actor bound to centerID with the center's current name
func (c *Crud[T, PT]) actorIn(ctx context.Context, actor auth.Principal, centerID string) auth.Principal {
	return bindCenter(ctx, c.centers, actor, centerID)
}

func bindCenter(ctx context.Context, centers store.CenterStore, actor auth.Principal, centerID string) auth.Principal {
	if actor.CenterID == centerID && actor.CenterName != "" {
		return actor
	}
	name := ""
	if centers != nil {
		if center, err := centers.GetCenter(ctx, centerID); err == nil {
			name = center.Name
		}
	}
	return actor.InCenter(centerID, name)
}
