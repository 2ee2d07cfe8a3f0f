package treatment

import (
	"time"

	"github.com/abaranti/abaranti/internal/domain/patient"
	"github.com/abaranti/abaranti/pkg/pagination"
)

// Medicine is a formulary entry. The table is seeded by migration.
type Medicine struct {
	MedicineID string `db:"medicineid"`
	Name       string `db:"medicinename"`
	Unit       string `db:"unit"`
}

// Treatment records one medication administered to a patient.
type Treatment struct {
	ID           int64     `db:"id"`
	PatientID    string    `db:"patient_id"`
	MedicineID   string    `db:"medicine_id"`
	MedicineName string    `db:"medicinename"`
	Unit         string    `db:"unit"`
	Quantity     int       `db:"quantity"`
	DoctorID     string    `db:"doctor_id"`
	Date         time.Time `db:"date"`
}

type MedicineListView struct {
	Items []*Medicine
	Pager pagination.Pager
}

type HistoryView struct {
	Patient *patient.Patient
	Items   []*Treatment
	Pager   pagination.Pager
}
