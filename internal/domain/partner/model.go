package partner

import (
	"time"

	"github.com/abaranti/abaranti/pkg/pagination"
)

// Hospital maps to the hospital table.
type Hospital struct {
	HospitalID string    `db:"hospital_id"`
	Name       string    `db:"hospital_name"`
	Address    string    `db:"hospital_address"`
	Phone      string    `db:"phone_number"`
	Capital    int64     `db:"capital"`
	Emergency  bool      `db:"emergency"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Supplier maps to the supplier table.
type Supplier struct {
	SupplierID   string    `db:"supplier_id"`
	Name         string    `db:"supplier_name"`
	Address      string    `db:"supplier_address"`
	Phone        string    `db:"phone_number"`
	Capital      int64     `db:"capital"`
	DeliveryTime int       `db:"delivery_time"`
	CreatedAt    time.Time `db:"created_at"`
}

// HospitalFilter narrows a hospital search. Zero values match everything.
type HospitalFilter struct {
	Address    string
	MinCapital *int64
}

type SupplierFilter struct {
	MinCapital *int64
}

// HospitalListView is the data of the hospital_list view.
type HospitalListView struct {
	Items      []*Hospital
	Pager      pagination.Pager
	Address    string
	MinCapital string
	Error      string
}

// SupplierListView is the data of the supplier_list view.
type SupplierListView struct {
	Items      []*Supplier
	Pager      pagination.Pager
	MinCapital string
	Error      string
}
