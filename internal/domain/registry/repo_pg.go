package registry

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/visitregistry/visitregistry/internal/domain/photos"
	"github.com/visitregistry/visitregistry/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// conn returns the active transaction when one is attached to the context,
// otherwise the pool.
func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// --- patients ---

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientCols = `id, user_id, first_name, last_name, last_notified_at, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName,
		&p.LastNotifiedAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *patientRepoPG) List(ctx context.Context, userID string) ([]*Patient, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+patientCols+` FROM patients WHERE user_id = $1 ORDER BY last_name, first_name, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *patientRepoPG) GetByID(ctx context.Context, userID string, id int64) (*Patient, error) {
	return scanPatient(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *patientRepoPG) FindOrCreate(ctx context.Context, userID, firstName, lastName string) (int64, error) {
	// Single upsert keyed on the identity triple. The no-op DO UPDATE makes
	// RETURNING yield the id for the existing row as well, so two concurrent
	// calls for a new name converge on one row.
	var id int64
	err := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patients (user_id, first_name, last_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, first_name, last_name)
		DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id`,
		userID, firstName, lastName).Scan(&id)
	return id, err
}

func (r *patientRepoPG) Delete(ctx context.Context, userID string, id int64) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM patients WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT DISTINCT user_id FROM patients`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *patientRepoPG) TouchLastNotified(ctx context.Context, id int64, at time.Time) error {
	_, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE patients SET last_notified_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
	return err
}

// --- visits ---

type visitRepoPG struct{ pool *pgxpool.Pool }

func NewVisitRepoPG(pool *pgxpool.Pool) VisitRepository {
	return &visitRepoPG{pool: pool}
}

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	var date time.Time
	err := row.Scan(&v.ID, &v.PatientID, &date, &v.Photos, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	v.Date = DateOf(date)
	if v.Photos == nil {
		v.Photos = []photos.Photo{}
	}
	return &v, nil
}

func (r *visitRepoPG) ListByUser(ctx context.Context, userID string) ([]*Visit, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT v.id, v.patient_id, v.date, v.photos, v.created_at, v.updated_at
		FROM visits v
		JOIN patients p ON p.id = v.patient_id
		WHERE p.user_id = $1
		ORDER BY v.date, v.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (r *visitRepoPG) GetByID(ctx context.Context, userID string, id int64) (*Visit, error) {
	return scanVisit(conn(ctx, r.pool).QueryRow(ctx, `
		SELECT v.id, v.patient_id, v.date, v.photos, v.created_at, v.updated_at
		FROM visits v
		JOIN patients p ON p.id = v.patient_id
		WHERE v.id = $1 AND p.user_id = $2`, id, userID))
}

func (r *visitRepoPG) Create(ctx context.Context, v *Visit) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO visits (patient_id, date, photos)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		v.PatientID, v.Date.Time, v.Photos).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
}

func (r *visitRepoPG) Update(ctx context.Context, userID string, v *Visit) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE visits SET date = $3, photos = $4, updated_at = NOW()
		FROM patients p
		WHERE visits.id = $2 AND visits.patient_id = p.id AND p.user_id = $1`,
		userID, v.ID, v.Date.Time, v.Photos)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *visitRepoPG) DeleteByID(ctx context.Context, userID string, id int64) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		DELETE FROM visits USING patients p
		WHERE visits.id = $2 AND visits.patient_id = p.id AND p.user_id = $1`,
		userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *visitRepoPG) DeleteByPatientDate(ctx context.Context, userID string, patientID int64, date Date) (int64, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		DELETE FROM visits USING patients p
		WHERE visits.patient_id = $2 AND visits.date = $3
		  AND visits.patient_id = p.id AND p.user_id = $1`,
		userID, patientID, date.Time)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *visitRepoPG) DeleteByPatient(ctx context.Context, patientID int64) error {
	_, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM visits WHERE patient_id = $1`, patientID)
	return err
}

// --- transactions ---

type pgTxRunner struct{ pool *pgxpool.Pool }

// NewTxRunner returns a TxRunner backed by the connection pool.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &pgTxRunner{pool: pool}
}

func (r *pgTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}
