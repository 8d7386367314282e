package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/visitregistry/visitregistry/internal/domain/photos"
)

const dateLayout = "2006-01-02"

// Date is a calendar date with no time component. It marshals as YYYY-MM-DD
// and backs the visits.date DATE column.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a point in time to its calendar date in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, m, d)
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Visit maps to the visits table. Photos live inline as a JSONB array of
// data-URI records and have no lifecycle of their own.
type Visit struct {
	ID        int64          `json:"id"`
	PatientID int64          `json:"patient_id"`
	Date      Date           `json:"date"`
	Photos    []photos.Photo `json:"photos"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Patient maps to the patients table. A patient is identified by the
// (user_id, first_name, last_name) triple; Visits is attached by the service
// in chronological order.
type Patient struct {
	ID             int64      `json:"id"`
	UserID         string     `json:"-"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Visits         []*Visit   `json:"visits"`
	LastNotifiedAt *time.Time `json:"last_notified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FullName returns the display name used in notifications.
func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}
