package employee

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abaranti/abaranti/internal/platform/auth"
	"github.com/abaranti/abaranti/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const empCols = `emp_id, last_name, first_name, password_hash, role, created_at, updated_at`

func scanEmployee(row pgx.Row) (*Employee, error) {
	var e Employee
	var role int16
	err := row.Scan(&e.EmpID, &e.LastName, &e.FirstName, &e.PasswordHash, &role, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err)
	}
	e.Role = auth.Role(role)
	return &e, nil
}

func (r *repoPG) Create(ctx context.Context, e *Employee) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO employee (emp_id, last_name, first_name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		e.EmpID, e.LastName, e.FirstName, e.PasswordHash, int16(e.Role),
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	return db.MapError(err)
}

func (r *repoPG) GetByID(ctx context.Context, empID string) (*Employee, error) {
	return scanEmployee(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+empCols+` FROM employee WHERE emp_id = $1`, empID))
}

func (r *repoPG) Exists(ctx context.Context, empID string) (bool, error) {
	var ok bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM employee WHERE emp_id = $1)`, empID).Scan(&ok)
	return ok, db.MapError(err)
}

func (r *repoPG) UpdateName(ctx context.Context, empID, lastName, firstName string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE employee SET last_name = $2, first_name = $3, updated_at = NOW()
		WHERE emp_id = $1`, empID, lastName, firstName)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *repoPG) UpdatePassword(ctx context.Context, empID, passwordHash string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE employee SET password_hash = $2, updated_at = NOW()
		WHERE emp_id = $1`, empID, passwordHash)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Employee, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM employee`).Scan(&total); err != nil {
		return nil, 0, db.MapError(err)
	}
	rows, err := conn.Query(ctx,
		`SELECT `+empCols+` FROM employee ORDER BY emp_id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, db.MapError(err)
	}
	defer rows.Close()
	var items []*Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
