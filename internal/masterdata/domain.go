// Package masterdata holds the reference entities the procurement pipeline
// points at: projects and their stages, the material catalog, units,
// suppliers and warehouses.
package masterdata

import (
	"fmt"
	"time"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
)

// Project is one construction site.
type Project struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Address    string    `json:"address,omitempty"`
	CustomerID int64     `json:"customer_id,omitempty"`
	Status     int       `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Deleted    bool      `json:"deleted"`
}

// Stage is a named phase of a project's work plan.
type Stage struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
	Deleted   bool   `json:"deleted"`
}

// MaterialType partitions the material catalog.
type MaterialType struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

// Material is one catalog entry within a type.
type Material struct {
	ID            int64  `json:"id"`
	MaterialType  int64  `json:"material_type"`
	Name          string `json:"name"`
	UnitOfMeasure int64  `json:"unit_of_measure,omitempty"`
	Deleted       bool   `json:"deleted"`
}

// UnitOfMeasure names a measurement unit.
type UnitOfMeasure struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

// Supplier is one vendor purchase orders are placed with. TaxID is unique
// among non-deleted suppliers.
type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	TaxID     string    `json:"tax_id"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Deleted   bool      `json:"deleted"`
}

// Warehouse stores materials for one project.
type Warehouse struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
	Address   string `json:"address,omitempty"`
	Deleted   bool   `json:"deleted"`
}

var (
	// ErrValidation marks rejected masterdata input.
	ErrValidation = fmt.Errorf("masterdata: %w", shared.ErrValidation)
	// ErrNotFound marks a missing masterdata row.
	ErrNotFound = fmt.Errorf("masterdata: %w", shared.ErrNotFound)
)
