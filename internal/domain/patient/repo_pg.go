package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abaranti/abaranti/internal/platform/db"
	"github.com/abaranti/abaranti/internal/platform/hipaa"
)

type repoPG struct {
	pool *pgxpool.Pool
	phi  *hipaa.EncryptionService
}

// NewRepoPG returns the Postgres repository. phi may be nil or disabled, in
// which case insurance numbers are stored as plaintext.
func NewRepoPG(pool *pgxpool.Pool, phi *hipaa.EncryptionService) Repository {
	return &repoPG{pool: pool, phi: phi}
}

const patientCols = `patient_id, last_name, first_name, gender, birthdate,
	insurance_number, insurance_exp, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Patient, error) {
	var p Patient
	var gender int16
	if err := row.Scan(&p.PatientID, &p.LastName, &p.FirstName, &gender, &p.Birthdate,
		&p.InsuranceNumber, &p.InsuranceExp, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, db.MapError(err)
	}
	p.Gender = int(gender)
	number, err := r.phi.DecryptField(p.InsuranceNumber, p.PatientID)
	if err != nil {
		return nil, fmt.Errorf("decrypt insurance number of %s: %w", p.PatientID, err)
	}
	p.InsuranceNumber = number
	return &p, nil
}

func (r *repoPG) seal(id, number string) (string, error) {
	sealed, err := r.phi.EncryptField(number, id)
	if err != nil {
		return "", fmt.Errorf("encrypt insurance number: %w", err)
	}
	return sealed, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	number, err := r.seal(p.PatientID, p.InsuranceNumber)
	if err != nil {
		return err
	}
	err = db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patient (patient_id, last_name, first_name, gender, birthdate, insurance_number, insurance_exp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		p.PatientID, p.LastName, p.FirstName, int16(p.Gender), p.Birthdate, number, p.InsuranceExp,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.MapError(err)
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*Patient, error) {
	return r.scan(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE patient_id = $1`, id))
}

func (r *repoPG) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patient WHERE patient_id = $1)`, id).Scan(&ok)
	return ok, db.MapError(err)
}

func (r *repoPG) UpdateInsurance(ctx context.Context, id, number string, exp time.Time) error {
	sealed, err := r.seal(id, number)
	if err != nil {
		return err
	}
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE patient SET insurance_number = $2, insurance_exp = $3, updated_at = NOW()
		WHERE patient_id = $1`, id, sealed, exp)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error) {
	var conds []string
	var args []any
	if f.Name != "" {
		args = append(args, escapeLike(f.Name))
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(last_name ILIKE '%%' || $%d || '%%' OR first_name ILIKE '%%' || $%d || '%%')`, n, n))
	}
	if f.ExpiredBefore != nil {
		args = append(args, *f.ExpiredBefore)
		conds = append(conds, fmt.Sprintf(`insurance_exp < $%d`, len(args)))
	}
	whereSQL := ""
	if len(conds) > 0 {
		whereSQL = " WHERE " + strings.Join(conds, " AND ")
	}

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM patient`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, db.MapError(err)
	}
	n := len(args)
	args = append(args, limit, offset)
	rows, err := conn.Query(ctx, `SELECT `+patientCols+` FROM patient`+whereSQL+
		fmt.Sprintf(` ORDER BY last_name, first_name, patient_id LIMIT $%d OFFSET $%d`, n+1, n+2), args...)
	if err != nil {
		return nil, 0, db.MapError(err)
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
