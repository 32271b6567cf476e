package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/audit"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/inventory"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/masterdata"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/observability"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/procurement"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/users"
	"github.com/dreamhouse-erp/dreamhouse-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	ProcurementHandler *procurement.Handler
	InventoryHandler   *inventory.Handler
	MasterDataHandler  *masterdata.Handler
	UsersHandler       *users.Handler
	AuditHandler       *audit.Handler
	JobHandler         *jobs.Handler
	Pool               *pgxpool.Pool
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				http.Error(w, "database unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		if params.ProcurementHandler != nil {
			params.ProcurementHandler.MountRoutes(api)
			api.Group(func(gr chi.Router) {
				gr.Use(RequireRoles(shared.RoleWarehouseKeeper))
				params.ProcurementHandler.MountReceivingRoutes(gr)
			})
		}
		if params.InventoryHandler != nil {
			params.InventoryHandler.MountRoutes(api)
		}
		if params.MasterDataHandler != nil {
			params.MasterDataHandler.MountRoutes(api)
		}
		if params.UsersHandler != nil {
			api.Group(func(gr chi.Router) {
				gr.Use(RequireRoles())
				params.UsersHandler.MountRoutes(gr)
			})
		}
		if params.AuditHandler != nil {
			api.Group(func(gr chi.Router) {
				gr.Use(RequireRoles(shared.RoleMainEngineer))
				params.AuditHandler.MountRoutes(gr)
			})
		}
		if params.JobHandler != nil {
			api.Route("/jobs", func(jr chi.Router) {
				params.JobHandler.MountRoutes(jr)
			})
		}
	})

	return r
}
