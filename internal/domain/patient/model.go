package patient

import (
	"time"

	"github.com/abaranti/abaranti/pkg/pagination"
)

const (
	GenderMale   = 0
	GenderFemale = 1
)

// Patient maps to the patient table. InsuranceNumber is always plaintext in
// memory; the repository seals it at rest.
type Patient struct {
	PatientID       string    `db:"patient_id"`
	LastName        string    `db:"last_name"`
	FirstName       string    `db:"first_name"`
	Gender          int       `db:"gender"`
	Birthdate       time.Time `db:"birthdate"`
	InsuranceNumber string    `db:"insurance_number"`
	InsuranceExp    time.Time `db:"insurance_exp"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (p *Patient) FullName() string {
	return p.LastName + " " + p.FirstName
}

func (p *Patient) GenderLabel() string {
	if p.Gender == GenderFemale {
		return "Female"
	}
	return "Male"
}

// InsuranceExpired reports whether the insurance expired before the day of now.
func (p *Patient) InsuranceExpired(now time.Time) bool {
	return p.InsuranceExp.Before(today(now))
}

func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Filter narrows a patient search. Zero values match everything.
type Filter struct {
	// Name matches a substring of the last or first name.
	Name string
	// ExpiredBefore selects patients whose insurance expired before this day.
	ExpiredBefore *time.Time
}

// ListView is the data of the patient_list view.
type ListView struct {
	Title   string
	Items   []*Patient
	Pager   pagination.Pager
	Name    string
	Expired bool
	// CanEdit shows the insurance links, reception only.
	CanEdit bool
	// CanTreat shows the treatment links, doctors only.
	CanTreat bool
	Today    time.Time
}
