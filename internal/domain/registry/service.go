package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/visitregistry/visitregistry/internal/domain/photos"
)

type Service struct {
	patients PatientRepository
	visits   VisitRepository
	tx       TxRunner
}

func NewService(patients PatientRepository, visits VisitRepository, tx TxRunner) *Service {
	return &Service{patients: patients, visits: visits, tx: tx}
}

// ListPatientsWithVisits returns the user's patients with their visit
// histories attached in chronological order.
func (s *Service) ListPatientsWithVisits(ctx context.Context, userID string) ([]*Patient, error) {
	patients, err := s.patients.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	if patients == nil {
		patients = []*Patient{}
	}

	visits, err := s.visits.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}

	byPatient := make(map[int64][]*Visit, len(patients))
	for _, v := range visits {
		byPatient[v.PatientID] = append(byPatient[v.PatientID], v)
	}

	for _, p := range patients {
		pv := byPatient[p.ID]
		sort.SliceStable(pv, func(i, j int) bool {
			if !pv[i].Date.Equal(pv[j].Date.Time) {
				return pv[i].Date.Before(pv[j].Date.Time)
			}
			return pv[i].ID < pv[j].ID
		})
		if pv == nil {
			pv = []*Visit{}
		}
		p.Visits = pv
	}

	return patients, nil
}

// FindOrCreatePatient resolves a patient by the (first, last, user) triple,
// creating the row if absent. Sequential calls with the same triple return
// the same id.
func (s *Service) FindOrCreatePatient(ctx context.Context, userID, firstName, lastName string) (int64, error) {
	firstName, lastName = strings.TrimSpace(firstName), strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return 0, fmt.Errorf("%w: first and last name are required", ErrValidation)
	}
	return s.patients.FindOrCreate(ctx, userID, firstName, lastName)
}

// AddVisit records a visit for the named patient, creating the patient row
// when needed. Both steps run in one transaction so a failed insert never
// leaves a dangling just-created patient.
func (s *Service) AddVisit(ctx context.Context, userID, firstName, lastName string, date Date, phs []photos.Photo) (*Visit, error) {
	firstName, lastName = strings.TrimSpace(firstName), strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return nil, fmt.Errorf("%w: first and last name are required", ErrValidation)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrValidation)
	}
	if err := validatePhotos(phs); err != nil {
		return nil, err
	}
	if phs == nil {
		phs = []photos.Photo{}
	}

	var visit *Visit
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		patientID, err := s.patients.FindOrCreate(ctx, userID, firstName, lastName)
		if err != nil {
			return fmt.Errorf("find or create patient: %w", err)
		}

		visit = &Visit{PatientID: patientID, Date: date, Photos: phs}
		if err := s.visits.Create(ctx, visit); err != nil {
			return fmt.Errorf("create visit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return visit, nil
}

// UpdateVisit replaces the mutable fields of a visit.
func (s *Service) UpdateVisit(ctx context.Context, userID string, visitID int64, date Date, phs []photos.Photo) (*Visit, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrValidation)
	}
	if err := validatePhotos(phs); err != nil {
		return nil, err
	}
	if phs == nil {
		phs = []photos.Photo{}
	}

	v := &Visit{ID: visitID, Date: date, Photos: phs}
	if err := s.visits.Update(ctx, userID, v); err != nil {
		return nil, err
	}
	return s.visits.GetByID(ctx, userID, visitID)
}

// DeleteVisit removes a single visit by id.
func (s *Service) DeleteVisit(ctx context.Context, userID string, visitID int64) error {
	return s.visits.DeleteByID(ctx, userID, visitID)
}

// DeleteVisitsByDate removes every visit of a patient on the given date and
// returns the count. Kept for clients that identify visits by the
// (patient, date) composite; several visits sharing the date all go.
func (s *Service) DeleteVisitsByDate(ctx context.Context, userID string, patientID int64, date Date) (int64, error) {
	return s.visits.DeleteByPatientDate(ctx, userID, patientID, date)
}

// DeletePatient removes the patient and all their visits in one transaction,
// so a failure can never leave a visit-less orphan or orphaned visits.
func (s *Service) DeletePatient(ctx context.Context, userID string, patientID int64) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.visits.DeleteByPatient(ctx, patientID); err != nil {
			return fmt.Errorf("delete visits: %w", err)
		}
		if err := s.patients.Delete(ctx, userID, patientID); err != nil {
			return err
		}
		return nil
	})
}

// StalePatient describes a patient whose last visit is overdue.
type StalePatient struct {
	PatientID     int64  `json:"patient_id"`
	Name          string `json:"name"`
	LastVisitDate string `json:"last_visit_date"`
}

// StalePatients evaluates every patient of the user against the staleness
// threshold at the given instant.
func (s *Service) StalePatients(ctx context.Context, userID string, now time.Time) ([]StalePatient, error) {
	patients, err := s.ListPatientsWithVisits(ctx, userID)
	if err != nil {
		return nil, err
	}

	var stale []StalePatient
	for _, p := range patients {
		res := IsLastVisitOld(p.Visits, now)
		if res.IsOld {
			stale = append(stale, StalePatient{
				PatientID:     p.ID,
				Name:          p.FullName(),
				LastVisitDate: res.LastVisitDate,
			})
		}
	}
	return stale, nil
}

// ListUserIDs returns every user with at least one patient. Used by the
// reminder sweep.
func (s *Service) ListUserIDs(ctx context.Context) ([]string, error) {
	return s.patients.ListUserIDs(ctx)
}

// PatientByID returns a single owned patient row.
func (s *Service) PatientByID(ctx context.Context, userID string, id int64) (*Patient, error) {
	return s.patients.GetByID(ctx, userID, id)
}

// MarkNotified records that a reminder went out for the patient.
func (s *Service) MarkNotified(ctx context.Context, patientID int64, at time.Time) error {
	return s.patients.TouchLastNotified(ctx, patientID, at)
}

func validatePhotos(phs []photos.Photo) error {
	for _, p := range phs {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	return nil
}
