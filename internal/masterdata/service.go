package masterdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/audit"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
)

// RepositoryPort describes the persistence surface used by Service.
type RepositoryPort interface {
	ListProjects(ctx context.Context, filters ListFilters) ([]Project, int, error)
	GetProject(ctx context.Context, id int64) (Project, error)
	CreateProject(ctx context.Context, p Project) (Project, error)
	UpdateProject(ctx context.Context, p Project) error
	SoftDeleteProject(ctx context.Context, id int64) error
	ListStages(ctx context.Context, projectID int64) ([]Stage, error)
	CreateStage(ctx context.Context, s Stage) (Stage, error)
	ListMaterialTypes(ctx context.Context) ([]MaterialType, error)
	CreateMaterialType(ctx context.Context, t MaterialType) (MaterialType, error)
	ListMaterials(ctx context.Context, materialType int64, filters ListFilters) ([]Material, int, error)
	CreateMaterial(ctx context.Context, m Material) (Material, error)
	UpdateMaterial(ctx context.Context, m Material) error
	ListUnits(ctx context.Context) ([]UnitOfMeasure, error)
	CreateUnit(ctx context.Context, u UnitOfMeasure) (UnitOfMeasure, error)
	ListSuppliers(ctx context.Context, filters ListFilters) ([]Supplier, int, error)
	CreateSupplier(ctx context.Context, s Supplier) (Supplier, error)
	UpdateSupplier(ctx context.Context, s Supplier) error
	SoftDeleteSupplier(ctx context.Context, id int64) error
	ListWarehouses(ctx context.Context, filters ListFilters) ([]Warehouse, int, error)
	CreateWarehouse(ctx context.Context, w Warehouse) (Warehouse, error)
	UpdateWarehouse(ctx context.Context, w Warehouse) error

	ProjectName(ctx context.Context, projectID int64) (string, error)
	MaterialName(ctx context.Context, materialType, materialID int64) (string, error)
	UnitName(ctx context.Context, unitID int64) (string, error)
}

// AuditPort records entity changes.
type AuditPort interface {
	RecordIfChanged(ctx context.Context, db audit.Execer, entry audit.Entry) (bool, error)
}

// Service validates masterdata operations and records change history.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs the masterdata service.
func NewService(repo RepositoryPort, auditPort AuditPort) *Service {
	return &Service{repo: repo, audit: auditPort}
}

// Projects lists projects.
func (s *Service) Projects(ctx context.Context, filters ListFilters) ([]Project, int, error) {
	return s.repo.ListProjects(ctx, filters)
}

// Project loads one project.
func (s *Service) Project(ctx context.Context, id int64) (Project, error) {
	return s.repo.GetProject(ctx, id)
}

// CreateProject validates and inserts a project.
func (s *Service) CreateProject(ctx context.Context, p Project) (Project, error) {
	if strings.TrimSpace(p.Name) == "" {
		return Project{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	return s.repo.CreateProject(ctx, p)
}

// UpdateProject applies changes and records the diff.
func (s *Service) UpdateProject(ctx context.Context, p Project, actor shared.Actor) (Project, error) {
	if strings.TrimSpace(p.Name) == "" {
		return Project{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	before, err := s.repo.GetProject(ctx, p.ID)
	if err != nil {
		return Project{}, err
	}
	if err := s.repo.UpdateProject(ctx, p); err != nil {
		return Project{}, err
	}
	_, err = s.audit.RecordIfChanged(ctx, nil, audit.Entry{
		EntityType: "project",
		EntityID:   p.ID,
		Action:     "project_updated",
		OldValues:  audit.Take(before),
		NewValues:  audit.Take(p),
		UserID:     actor.UserID,
	})
	if err != nil {
		return Project{}, err
	}
	return s.repo.GetProject(ctx, p.ID)
}

// DeleteProject soft-deletes a project.
func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	return s.repo.SoftDeleteProject(ctx, id)
}

// Stages lists a project's stages.
func (s *Service) Stages(ctx context.Context, projectID int64) ([]Stage, error) {
	return s.repo.ListStages(ctx, projectID)
}

// CreateStage validates and inserts a stage.
func (s *Service) CreateStage(ctx context.Context, stage Stage) (Stage, error) {
	if stage.ProjectID == 0 || strings.TrimSpace(stage.Name) == "" {
		return Stage{}, fmt.Errorf("%w: project and name required", ErrValidation)
	}
	return s.repo.CreateStage(ctx, stage)
}

// MaterialTypes lists catalog partitions.
func (s *Service) MaterialTypes(ctx context.Context) ([]MaterialType, error) {
	return s.repo.ListMaterialTypes(ctx)
}

// CreateMaterialType validates and inserts a partition.
func (s *Service) CreateMaterialType(ctx context.Context, t MaterialType) (MaterialType, error) {
	if strings.TrimSpace(t.Name) == "" {
		return MaterialType{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	return s.repo.CreateMaterialType(ctx, t)
}

// Materials lists catalog entries.
func (s *Service) Materials(ctx context.Context, materialType int64, filters ListFilters) ([]Material, int, error) {
	return s.repo.ListMaterials(ctx, materialType, filters)
}

// CreateMaterial validates and inserts a catalog entry.
func (s *Service) CreateMaterial(ctx context.Context, m Material) (Material, error) {
	if m.MaterialType == 0 || strings.TrimSpace(m.Name) == "" {
		return Material{}, fmt.Errorf("%w: material type and name required", ErrValidation)
	}
	return s.repo.CreateMaterial(ctx, m)
}

// UpdateMaterial applies changes to a catalog entry.
func (s *Service) UpdateMaterial(ctx context.Context, m Material) error {
	if m.MaterialType == 0 || strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: material type and name required", ErrValidation)
	}
	return s.repo.UpdateMaterial(ctx, m)
}

// Units lists measurement units.
func (s *Service) Units(ctx context.Context) ([]UnitOfMeasure, error) {
	return s.repo.ListUnits(ctx)
}

// CreateUnit validates and inserts a unit.
func (s *Service) CreateUnit(ctx context.Context, u UnitOfMeasure) (UnitOfMeasure, error) {
	if strings.TrimSpace(u.Name) == "" {
		return UnitOfMeasure{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	return s.repo.CreateUnit(ctx, u)
}

// Suppliers lists suppliers.
func (s *Service) Suppliers(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	return s.repo.ListSuppliers(ctx, filters)
}

// CreateSupplier validates and inserts a supplier.
func (s *Service) CreateSupplier(ctx context.Context, supplier Supplier) (Supplier, error) {
	if strings.TrimSpace(supplier.Name) == "" || strings.TrimSpace(supplier.TaxID) == "" {
		return Supplier{}, fmt.Errorf("%w: name and tax_id required", ErrValidation)
	}
	return s.repo.CreateSupplier(ctx, supplier)
}

// UpdateSupplier applies changes and records the diff.
func (s *Service) UpdateSupplier(ctx context.Context, supplier Supplier, actor shared.Actor) error {
	if strings.TrimSpace(supplier.Name) == "" || strings.TrimSpace(supplier.TaxID) == "" {
		return fmt.Errorf("%w: name and tax_id required", ErrValidation)
	}
	if err := s.repo.UpdateSupplier(ctx, supplier); err != nil {
		return err
	}
	_, err := s.audit.RecordIfChanged(ctx, nil, audit.Entry{
		EntityType: "supplier",
		EntityID:   supplier.ID,
		Action:     "supplier_updated",
		NewValues:  audit.Take(supplier),
		UserID:     actor.UserID,
	})
	return err
}

// DeleteSupplier soft-deletes a supplier.
func (s *Service) DeleteSupplier(ctx context.Context, id int64) error {
	return s.repo.SoftDeleteSupplier(ctx, id)
}

// Warehouses lists warehouses.
func (s *Service) Warehouses(ctx context.Context, filters ListFilters) ([]Warehouse, int, error) {
	return s.repo.ListWarehouses(ctx, filters)
}

// CreateWarehouse validates and inserts a warehouse.
func (s *Service) CreateWarehouse(ctx context.Context, w Warehouse) (Warehouse, error) {
	if w.ProjectID == 0 || strings.TrimSpace(w.Name) == "" {
		return Warehouse{}, fmt.Errorf("%w: project and name required", ErrValidation)
	}
	return s.repo.CreateWarehouse(ctx, w)
}

// UpdateWarehouse applies changes to a warehouse.
func (s *Service) UpdateWarehouse(ctx context.Context, w Warehouse) error {
	if w.ProjectID == 0 || strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("%w: project and name required", ErrValidation)
	}
	return s.repo.UpdateWarehouse(ctx, w)
}

// ProjectName resolves a project's display name for notifications.
func (s *Service) ProjectName(ctx context.Context, projectID int64) (string, error) {
	return s.repo.ProjectName(ctx, projectID)
}

// MaterialName resolves a catalog entry's display name for notifications.
func (s *Service) MaterialName(ctx context.Context, materialType, materialID int64) (string, error) {
	return s.repo.MaterialName(ctx, materialType, materialID)
}

// UnitName resolves a unit's display name for notifications.
func (s *Service) UnitName(ctx context.Context, unitID int64) (string, error) {
	return s.repo.UnitName(ctx, unitID)
}
