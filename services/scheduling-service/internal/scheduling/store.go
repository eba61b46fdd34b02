package scheduling

import (
	"context"
	"time"

	"github.com/glowdesk/glowdesk/libs/eventx"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/availability"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"
)

// StoreTx is the per-transaction view of appointment storage. It doubles
// as the availability sources so admission checks read the same snapshot
// the insert writes to.
type StoreTx interface {
	availability.AppointmentSource
	availability.ScheduleSource

	Get(ctx context.Context, id string) (model.Appointment, error)
	Insert(ctx context.Context, appt *model.Appointment) error
	Update(ctx context.Context, appt model.Appointment) error
	SetStatus(ctx context.Context, id string, status model.Status, reason string, at time.Time) error
	Delete(ctx context.Context, id string) (bool, error)
	Emit(ctx context.Context, evt eventx.Event) error
}

// Store opens transactions over appointment storage. WithSlotLock
// additionally serializes all bookings for the date with an advisory
// lock, closing the window between the availability check and the insert.
type Store interface {
	WithSlotLock(ctx context.Context, date string, fn func(tx StoreTx) error) error
	WithTx(ctx context.Context, fn func(tx StoreTx) error) error

	Get(ctx context.Context, id string) (model.Appointment, error)
	ListByDate(ctx context.Context, date, professionalID string) ([]model.Appointment, error)
	ListByClient(ctx context.Context, clientID string, limit int) ([]model.Appointment, error)
}

// CatalogService is the subset of a catalog entry the scheduler needs.
type CatalogService struct {
	ID              string
	Name            string
	DurationMinutes int
	Price           string
	Active          bool
}

// Directory resolves references against the locally cached directory data.
type Directory interface {
	ClientExists(ctx context.Context, id string) (bool, error)
	ProfessionalExists(ctx context.Context, id string) (bool, error)
	GetService(ctx context.Context, id string) (CatalogService, bool, error)
}
