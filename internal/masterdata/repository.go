package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
)

// ListFilters carries the shared list parameters.
type ListFilters struct {
	Search    string
	ProjectID int64
	Page      int
	Size      int
}

func (f ListFilters) limits() (size, offset int) {
	size = f.Size
	if size <= 0 {
		size = 20
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	return size, (page - 1) * size
}

// Repository persists masterdata entities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func notFound(entity string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, entity)
}

// ListProjects returns projects matching the filters with a total count.
func (r *Repository) ListProjects(ctx context.Context, filters ListFilters) ([]Project, int, error) {
	where := ` WHERE deleted = FALSE`
	args := []any{}
	if filters.Search != "" {
		where += ` AND name ILIKE $1`
		args = append(args, "%"+filters.Search+"%")
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM projects`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	size, offset := filters.limits()
	query := fmt.Sprintf(`SELECT id, name, COALESCE(address, ''), COALESCE(customer_id, 0), status, created_at, updated_at, deleted
FROM projects%s ORDER BY name LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, size, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.CustomerID, &p.Status, &p.CreatedAt, &p.UpdatedAt, &p.Deleted); err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}
	return projects, total, rows.Err()
}

// GetProject loads one project.
func (r *Repository) GetProject(ctx context.Context, id int64) (Project, error) {
	var p Project
	err := r.pool.QueryRow(ctx, `SELECT id, name, COALESCE(address, ''), COALESCE(customer_id, 0), status, created_at, updated_at, deleted
FROM projects WHERE id = $1 AND deleted = FALSE`, id).
		Scan(&p.ID, &p.Name, &p.Address, &p.CustomerID, &p.Status, &p.CreatedAt, &p.UpdatedAt, &p.Deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, notFound("project")
	}
	return p, err
}

// CreateProject inserts a project.
func (r *Repository) CreateProject(ctx context.Context, p Project) (Project, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO projects (name, address, customer_id, status)
VALUES ($1, NULLIF($2, ''), NULLIF($3, 0), $4)
RETURNING id, created_at, updated_at`, p.Name, p.Address, p.CustomerID, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// UpdateProject overwrites the mutable columns.
func (r *Repository) UpdateProject(ctx context.Context, p Project) error {
	tag, err := r.pool.Exec(ctx, `UPDATE projects SET name = $2, address = NULLIF($3, ''), customer_id = NULLIF($4, 0),
	status = $5, updated_at = now()
WHERE id = $1 AND deleted = FALSE`, p.ID, p.Name, p.Address, p.CustomerID, p.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound("project")
	}
	return nil
}

// SoftDeleteProject hides a project.
func (r *Repository) SoftDeleteProject(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE projects SET deleted = TRUE, updated_at = now() WHERE id = $1 AND deleted = FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound("project")
	}
	return nil
}

// ListStages returns the stages of a project.
func (r *Repository) ListStages(ctx context.Context, projectID int64) ([]Stage, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, project_id, name, deleted FROM stages
WHERE project_id = $1 AND deleted = FALSE ORDER BY id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var stages []Stage
	for rows.Next() {
		var s Stage
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Name, &s.Deleted); err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

// CreateStage inserts a stage.
func (r *Repository) CreateStage(ctx context.Context, s Stage) (Stage, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO stages (project_id, name) VALUES ($1, $2) RETURNING id`, s.ProjectID, s.Name).Scan(&s.ID)
	return s, err
}

// ListMaterialTypes returns the catalog partitions.
func (r *Repository) ListMaterialTypes(ctx context.Context) ([]MaterialType, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, deleted FROM material_types WHERE deleted = FALSE ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var types []MaterialType
	for rows.Next() {
		var t MaterialType
		if err := rows.Scan(&t.ID, &t.Name, &t.Deleted); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// CreateMaterialType inserts a catalog partition.
func (r *Repository) CreateMaterialType(ctx context.Context, t MaterialType) (MaterialType, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO material_types (name) VALUES ($1) RETURNING id`, t.Name).Scan(&t.ID)
	return t, err
}

// ListMaterials returns catalog entries, optionally narrowed to one type.
func (r *Repository) ListMaterials(ctx context.Context, materialType int64, filters ListFilters) ([]Material, int, error) {
	where := ` WHERE deleted = FALSE`
	args := []any{}
	n := 1
	if materialType > 0 {
		where += fmt.Sprintf(" AND material_type = $%d", n)
		args = append(args, materialType)
		n++
	}
	if filters.Search != "" {
		where += fmt.Sprintf(" AND name ILIKE $%d", n)
		args = append(args, "%"+filters.Search+"%")
		n++
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM materials`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	size, offset := filters.limits()
	query := `SELECT id, material_type, name, COALESCE(unit_of_measure, 0), deleted FROM materials` + where +
		fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, n, n+1)
	rows, err := r.pool.Query(ctx, query, append(args, size, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var materials []Material
	for rows.Next() {
		var m Material
		if err := rows.Scan(&m.ID, &m.MaterialType, &m.Name, &m.UnitOfMeasure, &m.Deleted); err != nil {
			return nil, 0, err
		}
		materials = append(materials, m)
	}
	return materials, total, rows.Err()
}

// CreateMaterial inserts a catalog entry.
func (r *Repository) CreateMaterial(ctx context.Context, m Material) (Material, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO materials (material_type, name, unit_of_measure)
VALUES ($1, $2, NULLIF($3, 0)) RETURNING id`, m.MaterialType, m.Name, m.UnitOfMeasure).Scan(&m.ID)
	return m, err
}

// UpdateMaterial overwrites the mutable columns.
func (r *Repository) UpdateMaterial(ctx context.Context, m Material) error {
	tag, err := r.pool.Exec(ctx, `UPDATE materials SET material_type = $2, name = $3, unit_of_measure = NULLIF($4, 0)
WHERE id = $1 AND deleted = FALSE`, m.ID, m.MaterialType, m.Name, m.UnitOfMeasure)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound("material")
	}
	return nil
}

// ListUnits returns the measurement units.
func (r *Repository) ListUnits(ctx context.Context) ([]UnitOfMeasure, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, deleted FROM units_of_measure WHERE deleted = FALSE ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var units []UnitOfMeasure
	for rows.Next() {
		var u UnitOfMeasure
		if err := rows.Scan(&u.ID, &u.Name, &u.Deleted); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// CreateUnit inserts a measurement unit.
func (r *Repository) CreateUnit(ctx context.Context, u UnitOfMeasure) (UnitOfMeasure, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO units_of_measure (name) VALUES ($1) RETURNING id`, u.Name).Scan(&u.ID)
	return u, err
}

// ListSuppliers returns suppliers matching the filters with a total count.
func (r *Repository) ListSuppliers(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	where := ` WHERE deleted = FALSE`
	args := []any{}
	if filters.Search != "" {
		where += ` AND (name ILIKE $1 OR tax_id ILIKE $1)`
		args = append(args, "%"+filters.Search+"%")
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	size, offset := filters.limits()
	query := fmt.Sprintf(`SELECT id, name, tax_id, COALESCE(address, ''), COALESCE(phone, ''), COALESCE(email, ''),
	created_at, updated_at, deleted
FROM suppliers%s ORDER BY name LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, size, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var suppliers []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.TaxID, &s.Address, &s.Phone, &s.Email, &s.CreatedAt, &s.UpdatedAt, &s.Deleted); err != nil {
			return nil, 0, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, total, rows.Err()
}

// CreateSupplier inserts a supplier. A duplicate tax id surfaces as an
// IntegrityError rather than a raw constraint violation.
func (r *Repository) CreateSupplier(ctx context.Context, s Supplier) (Supplier, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO suppliers (name, tax_id, address, phone, email)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''))
RETURNING id, created_at, updated_at`, s.Name, s.TaxID, s.Address, s.Phone, s.Email).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Supplier{}, supplierErr(err)
	}
	return s, nil
}

// UpdateSupplier overwrites the mutable columns.
func (r *Repository) UpdateSupplier(ctx context.Context, s Supplier) error {
	tag, err := r.pool.Exec(ctx, `UPDATE suppliers SET name = $2, tax_id = $3, address = NULLIF($4, ''),
	phone = NULLIF($5, ''), email = NULLIF($6, ''), updated_at = now()
WHERE id = $1 AND deleted = FALSE`, s.ID, s.Name, s.TaxID, s.Address, s.Phone, s.Email)
	if err != nil {
		return supplierErr(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("supplier")
	}
	return nil
}

// SoftDeleteSupplier hides a supplier.
func (r *Repository) SoftDeleteSupplier(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE suppliers SET deleted = TRUE, updated_at = now() WHERE id = $1 AND deleted = FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound("supplier")
	}
	return nil
}

func supplierErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &shared.IntegrityError{Field: "tax_id", Message: "supplier with this tax id already exists"}
	}
	return err
}

// ListWarehouses returns warehouses, optionally narrowed to one project.
func (r *Repository) ListWarehouses(ctx context.Context, filters ListFilters) ([]Warehouse, int, error) {
	where := ` WHERE deleted = FALSE`
	args := []any{}
	n := 1
	if filters.ProjectID > 0 {
		where += fmt.Sprintf(" AND project_id = $%d", n)
		args = append(args, filters.ProjectID)
		n++
	}
	if filters.Search != "" {
		where += fmt.Sprintf(" AND name ILIKE $%d", n)
		args = append(args, "%"+filters.Search+"%")
		n++
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM warehouses`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	size, offset := filters.limits()
	query := `SELECT id, project_id, name, COALESCE(address, ''), deleted FROM warehouses` + where +
		fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, n, n+1)
	rows, err := r.pool.Query(ctx, query, append(args, size, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var warehouses []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.ProjectID, &w.Name, &w.Address, &w.Deleted); err != nil {
			return nil, 0, err
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, total, rows.Err()
}

// CreateWarehouse inserts a warehouse.
func (r *Repository) CreateWarehouse(ctx context.Context, w Warehouse) (Warehouse, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO warehouses (project_id, name, address)
VALUES ($1, $2, NULLIF($3, '')) RETURNING id`, w.ProjectID, w.Name, w.Address).Scan(&w.ID)
	return w, err
}

// UpdateWarehouse overwrites the mutable columns.
func (r *Repository) UpdateWarehouse(ctx context.Context, w Warehouse) error {
	tag, err := r.pool.Exec(ctx, `UPDATE warehouses SET project_id = $2, name = $3, address = NULLIF($4, '')
WHERE id = $1 AND deleted = FALSE`, w.ID, w.ProjectID, w.Name, w.Address)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound("warehouse")
	}
	return nil
}

// ProjectName resolves a project's display name.
func (r *Repository) ProjectName(ctx context.Context, projectID int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM projects WHERE id = $1`, projectID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", notFound("project")
	}
	return name, err
}

// MaterialName resolves a catalog entry's display name.
func (r *Repository) MaterialName(ctx context.Context, materialType, materialID int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM materials WHERE id = $1 AND material_type = $2`, materialID, materialType).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", notFound("material")
	}
	return name, err
}

// UnitName resolves a unit's display name.
func (r *Repository) UnitName(ctx context.Context, unitID int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM units_of_measure WHERE id = $1`, unitID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", notFound("unit of measure")
	}
	return name, err
}
