package treatment

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abaranti/abaranti/internal/platform/db"
)

type medicineRepoPG struct{ pool *pgxpool.Pool }

func NewMedicineRepoPG(pool *pgxpool.Pool) MedicineRepository {
	return &medicineRepoPG{pool: pool}
}

func (r *medicineRepoPG) List(ctx context.Context, limit, offset int) ([]*Medicine, int, error) {
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM medicine`).Scan(&total); err != nil {
		return nil, 0, db.MapError(err)
	}

	rows, err := conn.Query(ctx, `
		SELECT medicineid, medicinename, unit FROM medicine
		ORDER BY medicineid LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, db.MapError(err)
	}
	defer rows.Close()

	var items []*Medicine
	for rows.Next() {
		var m Medicine
		if err := rows.Scan(&m.MedicineID, &m.Name, &m.Unit); err != nil {
			return nil, 0, db.MapError(err)
		}
		items = append(items, &m)
	}
	return items, total, db.MapError(rows.Err())
}

func (r *medicineRepoPG) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM medicine WHERE medicineid = $1)`, id).Scan(&exists)
	return exists, db.MapError(err)
}

type treatmentRepoPG struct{ pool *pgxpool.Pool }

func NewTreatmentRepoPG(pool *pgxpool.Pool) TreatmentRepository {
	return &treatmentRepoPG{pool: pool}
}

func (r *treatmentRepoPG) Create(ctx context.Context, t *Treatment) error {
	var doctor *string
	if t.DoctorID != "" {
		doctor = &t.DoctorID
	}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO treatment (patient_id, medicine_id, quantity, doctor_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, date`,
		t.PatientID, t.MedicineID, t.Quantity, doctor,
	).Scan(&t.ID, &t.Date)
	return db.MapError(err)
}

func (r *treatmentRepoPG) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Treatment, int, error) {
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM treatment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, db.MapError(err)
	}

	rows, err := conn.Query(ctx, `
		SELECT t.id, t.patient_id, t.medicine_id, m.medicinename, m.unit,
		       t.quantity, COALESCE(t.doctor_id, ''), t.date
		FROM treatment t
		JOIN medicine m ON m.medicineid = t.medicine_id
		WHERE t.patient_id = $1
		ORDER BY t.date DESC, t.id DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, db.MapError(err)
	}
	defer rows.Close()

	var items []*Treatment
	for rows.Next() {
		var t Treatment
		if err := rows.Scan(&t.ID, &t.PatientID, &t.MedicineID, &t.MedicineName, &t.Unit,
			&t.Quantity, &t.DoctorID, &t.Date); err != nil {
			return nil, 0, db.MapError(err)
		}
		items = append(items, &t)
	}
	return items, total, db.MapError(rows.Err())
}
