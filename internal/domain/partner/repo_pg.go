package partner

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abaranti/abaranti/internal/platform/db"
)

// where accumulates AND-ed conditions with positional arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page appends LIMIT and OFFSET placeholders after the filter arguments.
func (w *where) page(limit, offset int) (string, []any) {
	n := len(w.args)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2), append(append([]any{}, w.args...), limit, offset)
}

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

type hospitalRepoPG struct{ pool *pgxpool.Pool }

func NewHospitalRepoPG(pool *pgxpool.Pool) HospitalRepository {
	return &hospitalRepoPG{pool: pool}
}

const hospitalCols = `hospital_id, hospital_name, hospital_address, phone_number,
	capital, emergency, created_at, updated_at`

func scanHospital(row pgx.Row) (*Hospital, error) {
	var h Hospital
	var emergency int16
	if err := row.Scan(&h.HospitalID, &h.Name, &h.Address, &h.Phone,
		&h.Capital, &emergency, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, db.MapError(err)
	}
	h.Emergency = emergency == 1
	return &h, nil
}

func boolFlag(b bool) int16 {
	if b {
		return 1
	}
	return 0
}

func (r *hospitalRepoPG) Create(ctx context.Context, h *Hospital) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO hospital (hospital_id, hospital_name, hospital_address, phone_number, capital, emergency)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		h.HospitalID, h.Name, h.Address, h.Phone, h.Capital, boolFlag(h.Emergency),
	).Scan(&h.CreatedAt, &h.UpdatedAt)
	return db.MapError(err)
}

func (r *hospitalRepoPG) GetByID(ctx context.Context, id string) (*Hospital, error) {
	return scanHospital(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+hospitalCols+` FROM hospital WHERE hospital_id = $1`, id))
}

func (r *hospitalRepoPG) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM hospital WHERE hospital_id = $1)`, id).Scan(&ok)
	return ok, db.MapError(err)
}

func (r *hospitalRepoPG) UpdatePhone(ctx context.Context, id, phone string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE hospital SET phone_number = $2, updated_at = NOW()
		WHERE hospital_id = $1`, id, phone)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *hospitalRepoPG) Search(ctx context.Context, f HospitalFilter, limit, offset int) ([]*Hospital, int, error) {
	var w where
	if f.Address != "" {
		w.add(`hospital_address ILIKE '%%' || $%d || '%%'`, escapeLike(f.Address))
	}
	if f.MinCapital != nil {
		w.add(`capital >= $%d`, *f.MinCapital)
	}

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM hospital`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, db.MapError(err)
	}
	pageSQL, args := w.page(limit, offset)
	rows, err := conn.Query(ctx, `SELECT `+hospitalCols+` FROM hospital`+w.sql()+` ORDER BY hospital_id`+pageSQL, args...)
	if err != nil {
		return nil, 0, db.MapError(err)
	}
	defer rows.Close()
	var items []*Hospital
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, rows.Err()
}

type supplierRepoPG struct{ pool *pgxpool.Pool }

func NewSupplierRepoPG(pool *pgxpool.Pool) SupplierRepository {
	return &supplierRepoPG{pool: pool}
}

const supplierCols = `supplier_id, supplier_name, supplier_address, phone_number,
	capital, delivery_time, created_at`

func scanSupplier(row pgx.Row) (*Supplier, error) {
	var s Supplier
	if err := row.Scan(&s.SupplierID, &s.Name, &s.Address, &s.Phone,
		&s.Capital, &s.DeliveryTime, &s.CreatedAt); err != nil {
		return nil, db.MapError(err)
	}
	return &s, nil
}

func (r *supplierRepoPG) Create(ctx context.Context, s *Supplier) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO supplier (supplier_id, supplier_name, supplier_address, phone_number, capital, delivery_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		s.SupplierID, s.Name, s.Address, s.Phone, s.Capital, s.DeliveryTime,
	).Scan(&s.CreatedAt)
	return db.MapError(err)
}

func (r *supplierRepoPG) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM supplier WHERE supplier_id = $1)`, id).Scan(&ok)
	return ok, db.MapError(err)
}

func (r *supplierRepoPG) Search(ctx context.Context, f SupplierFilter, limit, offset int) ([]*Supplier, int, error) {
	var w where
	if f.MinCapital != nil {
		w.add(`capital >= $%d`, *f.MinCapital)
	}

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM supplier`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, db.MapError(err)
	}
	pageSQL, args := w.page(limit, offset)
	rows, err := conn.Query(ctx, `SELECT `+supplierCols+` FROM supplier`+w.sql()+` ORDER BY supplier_id`+pageSQL, args...)
	if err != nil {
		return nil, 0, db.MapError(err)
	}
	defer rows.Close()
	var items []*Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}
