package registry

import (
	"context"
	"time"
)

// PatientRepository persists patient rows. Every read and delete is scoped to
// the owning user.
type PatientRepository interface {
	List(ctx context.Context, userID string) ([]*Patient, error)
	GetByID(ctx context.Context, userID string, id int64) (*Patient, error)
	// FindOrCreate resolves the patient identified by the (user, first, last)
	// triple, inserting the row if absent. Must be safe under concurrent
	// callers: two simultaneous calls for a brand-new name return the same id.
	FindOrCreate(ctx context.Context, userID, firstName, lastName string) (int64, error)
	Delete(ctx context.Context, userID string, id int64) error
	ListUserIDs(ctx context.Context) ([]string, error)
	TouchLastNotified(ctx context.Context, id int64, at time.Time) error
}

// VisitRepository persists visit rows. User scoping happens through the
// owning patient row.
type VisitRepository interface {
	ListByUser(ctx context.Context, userID string) ([]*Visit, error)
	GetByID(ctx context.Context, userID string, id int64) (*Visit, error)
	Create(ctx context.Context, v *Visit) error
	Update(ctx context.Context, userID string, v *Visit) error
	DeleteByID(ctx context.Context, userID string, id int64) error
	// DeleteByPatientDate removes every visit of the patient on the given
	// date and returns the count. The composite key is a compatibility
	// fallback; date is not unique per patient.
	DeleteByPatientDate(ctx context.Context, userID string, patientID int64, date Date) (int64, error)
	DeleteByPatient(ctx context.Context, patientID int64) error
}

// TxRunner runs a function within a database transaction. Repository calls
// made with the context passed to fn join that transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
