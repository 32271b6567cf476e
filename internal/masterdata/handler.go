package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/platform/httpx"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
)

// Handler exposes the reference-data endpoints.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	production bool
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service, production bool) *Handler {
	return &Handler{logger: logger, service: service, production: production}
}

// MountRoutes registers masterdata routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/projects", h.listProjects)
	r.Post("/projects", h.createProject)
	r.Get("/projects/{id}", h.getProject)
	r.Put("/projects/{id}", h.updateProject)
	r.Delete("/projects/{id}", h.deleteProject)
	r.Get("/projects/{id}/stages", h.listStages)
	r.Post("/projects/{id}/stages", h.createStage)

	r.Get("/materialTypes", h.listMaterialTypes)
	r.Post("/materialTypes", h.createMaterialType)
	r.Get("/materials", h.listMaterials)
	r.Post("/materials", h.createMaterial)
	r.Put("/materials/{id}", h.updateMaterial)
	r.Get("/unitsOfMeasure", h.listUnits)
	r.Post("/unitsOfMeasure", h.createUnit)

	r.Get("/suppliers", h.listSuppliers)
	r.Post("/suppliers", h.createSupplier)
	r.Put("/suppliers/{id}", h.updateSupplier)
	r.Delete("/suppliers/{id}", h.deleteSupplier)

	r.Get("/warehouses", h.listWarehouses)
	r.Post("/warehouses", h.createWarehouse)
	r.Put("/warehouses/{id}", h.updateWarehouse)
}

func listFilters(r *http.Request) ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	projectID, _ := strconv.ParseInt(q.Get("project_id"), 10, 64)
	return ListFilters{Search: q.Get("search"), ProjectID: projectID, Page: page, Size: size}
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func (h *Handler) respondErr(w http.ResponseWriter, what string, err error) {
	h.logger.Error(what, slog.Any("error", err))
	httpx.RespondError(w, err, h.production)
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	filters := listFilters(r)
	projects, total, err := h.service.Projects(r.Context(), filters)
	if err != nil {
		h.respondErr(w, "list projects", err)
		return
	}
	httpx.List(w, projects, shared.NewPagination(filters.Page, filters.Size, total))
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.Project(r.Context(), pathID(r))
	if err != nil {
		httpx.RespondError(w, err, h.production)
		return
	}
	httpx.OK(w, "", project)
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	var project Project
	if err := httpx.DecodeJSON(r, &project); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid project payload"})
		return
	}
	created, err := h.service.CreateProject(r.Context(), project)
	if err != nil {
		h.respondErr(w, "create project", err)
		return
	}
	httpx.Created(w, "project created", created)
}

func (h *Handler) updateProject(w http.ResponseWriter, r *http.Request) {
	var project Project
	if err := httpx.DecodeJSON(r, &project); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid project payload"})
		return
	}
	project.ID = pathID(r)
	updated, err := h.service.UpdateProject(r.Context(), project, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondErr(w, "update project", err)
		return
	}
	httpx.OK(w, "project updated", updated)
}

func (h *Handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProject(r.Context(), pathID(r)); err != nil {
		httpx.RespondError(w, err, h.production)
		return
	}
	httpx.OK(w, "project deleted", nil)
}

func (h *Handler) listStages(w http.ResponseWriter, r *http.Request) {
	stages, err := h.service.Stages(r.Context(), pathID(r))
	if err != nil {
		h.respondErr(w, "list stages", err)
		return
	}
	httpx.OK(w, "", stages)
}

func (h *Handler) createStage(w http.ResponseWriter, r *http.Request) {
	var stage Stage
	if err := httpx.DecodeJSON(r, &stage); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid stage payload"})
		return
	}
	stage.ProjectID = pathID(r)
	created, err := h.service.CreateStage(r.Context(), stage)
	if err != nil {
		h.respondErr(w, "create stage", err)
		return
	}
	httpx.Created(w, "stage created", created)
}

func (h *Handler) listMaterialTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.MaterialTypes(r.Context())
	if err != nil {
		h.respondErr(w, "list material types", err)
		return
	}
	httpx.OK(w, "", types)
}

func (h *Handler) createMaterialType(w http.ResponseWriter, r *http.Request) {
	var t MaterialType
	if err := httpx.DecodeJSON(r, &t); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid material type payload"})
		return
	}
	created, err := h.service.CreateMaterialType(r.Context(), t)
	if err != nil {
		h.respondErr(w, "create material type", err)
		return
	}
	httpx.Created(w, "material type created", created)
}

func (h *Handler) listMaterials(w http.ResponseWriter, r *http.Request) {
	filters := listFilters(r)
	materialType, _ := strconv.ParseInt(r.URL.Query().Get("material_type"), 10, 64)
	materials, total, err := h.service.Materials(r.Context(), materialType, filters)
	if err != nil {
		h.respondErr(w, "list materials", err)
		return
	}
	httpx.List(w, materials, shared.NewPagination(filters.Page, filters.Size, total))
}

func (h *Handler) createMaterial(w http.ResponseWriter, r *http.Request) {
	var material Material
	if err := httpx.DecodeJSON(r, &material); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid material payload"})
		return
	}
	created, err := h.service.CreateMaterial(r.Context(), material)
	if err != nil {
		h.respondErr(w, "create material", err)
		return
	}
	httpx.Created(w, "material created", created)
}

func (h *Handler) updateMaterial(w http.ResponseWriter, r *http.Request) {
	var material Material
	if err := httpx.DecodeJSON(r, &material); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid material payload"})
		return
	}
	material.ID = pathID(r)
	if err := h.service.UpdateMaterial(r.Context(), material); err != nil {
		h.respondErr(w, "update material", err)
		return
	}
	httpx.OK(w, "material updated", material)
}

func (h *Handler) listUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.service.Units(r.Context())
	if err != nil {
		h.respondErr(w, "list units", err)
		return
	}
	httpx.OK(w, "", units)
}

func (h *Handler) createUnit(w http.ResponseWriter, r *http.Request) {
	var unit UnitOfMeasure
	if err := httpx.DecodeJSON(r, &unit); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid unit payload"})
		return
	}
	created, err := h.service.CreateUnit(r.Context(), unit)
	if err != nil {
		h.respondErr(w, "create unit", err)
		return
	}
	httpx.Created(w, "unit created", created)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	filters := listFilters(r)
	suppliers, total, err := h.service.Suppliers(r.Context(), filters)
	if err != nil {
		h.respondErr(w, "list suppliers", err)
		return
	}
	httpx.List(w, suppliers, shared.NewPagination(filters.Page, filters.Size, total))
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var supplier Supplier
	if err := httpx.DecodeJSON(r, &supplier); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid supplier payload"})
		return
	}
	created, err := h.service.CreateSupplier(r.Context(), supplier)
	if err != nil {
		h.respondErr(w, "create supplier", err)
		return
	}
	httpx.Created(w, "supplier created", created)
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	var supplier Supplier
	if err := httpx.DecodeJSON(r, &supplier); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid supplier payload"})
		return
	}
	supplier.ID = pathID(r)
	if err := h.service.UpdateSupplier(r.Context(), supplier, shared.ActorFromContext(r.Context())); err != nil {
		h.respondErr(w, "update supplier", err)
		return
	}
	httpx.OK(w, "supplier updated", supplier)
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSupplier(r.Context(), pathID(r)); err != nil {
		httpx.RespondError(w, err, h.production)
		return
	}
	httpx.OK(w, "supplier deleted", nil)
}

func (h *Handler) listWarehouses(w http.ResponseWriter, r *http.Request) {
	filters := listFilters(r)
	warehouses, total, err := h.service.Warehouses(r.Context(), filters)
	if err != nil {
		h.respondErr(w, "list warehouses", err)
		return
	}
	httpx.List(w, warehouses, shared.NewPagination(filters.Page, filters.Size, total))
}

func (h *Handler) createWarehouse(w http.ResponseWriter, r *http.Request) {
	var warehouse Warehouse
	if err := httpx.DecodeJSON(r, &warehouse); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid warehouse payload"})
		return
	}
	created, err := h.service.CreateWarehouse(r.Context(), warehouse)
	if err != nil {
		h.respondErr(w, "create warehouse", err)
		return
	}
	httpx.Created(w, "warehouse created", created)
}

func (h *Handler) updateWarehouse(w http.ResponseWriter, r *http.Request) {
	var warehouse Warehouse
	if err := httpx.DecodeJSON(r, &warehouse); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid warehouse payload"})
		return
	}
	warehouse.ID = pathID(r)
	if err := h.service.UpdateWarehouse(r.Context(), warehouse); err != nil {
		h.respondErr(w, "update warehouse", err)
		return
	}
	httpx.OK(w, "warehouse updated", warehouse)
}
