// Package v1 provides HTTP API version 1.
package v1

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"tally/internal/core/id"
	"tally/internal/core/security"
	"tally/internal/domain"
	"tally/internal/domain/audit"
	"tally/internal/domain/auth"
	"tally/internal/domain/catalogs/category"
	"tally/internal/domain/catalogs/client"
	"tally/internal/domain/catalogs/currency"
	"tally/internal/domain/catalogs/product"
	"tally/internal/domain/catalogs/taxrate"
	"tally/internal/domain/documents"
	"tally/internal/domain/documents/convert"
	"tally/internal/domain/documents/invoice"
	"tally/internal/domain/documents/order"
	"tally/internal/domain/documents/quote"
	"tally/internal/domain/stock"
	"tally/internal/infrastructure/http/v1/handlers"
	"tally/internal/infrastructure/http/v1/middleware"
	"tally/internal/infrastructure/storage/postgres"
	"tally/internal/infrastructure/storage/postgres/catalog_repo"
	"tally/internal/infrastructure/storage/postgres/document_repo"
	"tally/pkg/logger"
	"tally/pkg/numerator"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks and
	// idempotency storage)
	Pool *postgres.Pool

	// TxManager runs repository operations in transactions
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AuthService for authentication endpoints
	AuthService *auth.Service

	// AuditService records entity changes and serves the audit API
	AuditService *audit.Service

	// Authorizer is the central permission matrix
	Authorizer *security.Authorizer

	// Numerator for document number generation
	Numerator numerator.Generator

	// IdempotencyEnabled enables idempotency middleware
	IdempotencyEnabled bool

	// IdempotencyTTL is how long completed keys replay (default 10m)
	IdempotencyTTL time.Duration
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.RequestMetadata())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	v1 := router.Group("/api/v1")
	{
		registerAuthRoutes(v1, cfg)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		if cfg.IdempotencyEnabled {
			ttl := cfg.IdempotencyTTL
			if ttl <= 0 {
				ttl = 10 * time.Minute
			}
			store := postgres.NewIdempotencyStore(cfg.Pool, cfg.TxManager, ttl)
			protected.Use(middleware.Idempotency(store))
		}

		registerCatalogRoutes(protected, cfg)
		registerDocumentRoutes(protected, cfg)
		registerStockRoutes(protected, cfg)
		registerAuditRoutes(protected, cfg)
	}

	return router
}

// registerAuthRoutes registers authentication and user management
// endpoints.
func registerAuthRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.AuthService == nil {
		return
	}

	baseHandler := handlers.NewBaseHandler()
	authHandler := handlers.NewAuthHandler(baseHandler, cfg.AuthService)
	userRes := security.ResourceUser

	// Public endpoints (no JWT required)
	public := rg.Group("/auth")
	public.POST("/register", authHandler.Register)
	public.POST("/login", authHandler.Login)
	public.POST("/refresh", authHandler.Refresh)

	// Protected endpoints (JWT required)
	protected := rg.Group("/auth")
	protected.Use(middleware.Auth(cfg.JWTValidator))
	protected.POST("/logout", authHandler.Logout)
	protected.POST("/logout-all", authHandler.LogoutAll)
	protected.GET("/me", authHandler.Me)
	protected.POST("/change-password", authHandler.ChangePassword)
	protected.GET("/roles", authHandler.ListRoles)
	protected.GET("/permissions", authHandler.ListPermissions)

	// User administration goes through the central matrix.
	protected.GET("/users", middleware.Authorize(cfg.Authorizer, security.ActionRead, userRes), authHandler.ListUsers)
	protected.GET("/users/:id", middleware.Authorize(cfg.Authorizer, security.ActionRead, userRes), authHandler.GetUser)
	protected.POST("/users/:id/active", middleware.Authorize(cfg.Authorizer, security.ActionUpdate, userRes), authHandler.SetUserActive)
	protected.POST("/assign-role", middleware.Authorize(cfg.Authorizer, security.ActionUpdate, userRes), authHandler.AssignRole)
	protected.POST("/revoke-role", middleware.Authorize(cfg.Authorizer, security.ActionUpdate, userRes), authHandler.RevokeRole)
	protected.POST("/roles", middleware.Authorize(cfg.Authorizer, security.ActionCreate, userRes), authHandler.CreateRole)
}

// registerCatalogRoutes registers catalog endpoints.
func registerCatalogRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	catalogs := rg.Group("/catalog")
	baseHandler := handlers.NewBaseHandler()

	// --- CLIENTS ---
	{
		repo := catalog_repo.NewClientRepo(cfg.TxManager)
		service := client.NewService(repo, cfg.TxManager, cfg.Numerator)
		registerCatalogAudit(service, cfg.AuditService, "Client", func(c *client.Client) id.ID { return c.ID })
		handler := handlers.NewClientHandler(baseHandler, service, cfg.Authorizer)
		RegisterCatalogRoutes(catalogs.Group("/clients"), handler, cfg.Authorizer, security.ResourceClient)
	}

	// --- PRODUCTS ---
	{
		repo := catalog_repo.NewProductRepo(cfg.TxManager)
		service := product.NewService(repo, cfg.TxManager, cfg.Numerator)
		registerCatalogAudit(service, cfg.AuditService, "Product", func(p *product.Product) id.ID { return p.ID })
		handler := handlers.NewProductHandler(baseHandler, service, cfg.Authorizer)
		RegisterCatalogRoutes(catalogs.Group("/products"), handler, cfg.Authorizer, security.ResourceProduct)
	}

	// --- CATEGORIES ---
	{
		repo := catalog_repo.NewCategoryRepo(cfg.TxManager)
		service := category.NewService(repo, cfg.TxManager, cfg.Numerator)
		registerCatalogAudit(service, cfg.AuditService, "Category", func(c *category.Category) id.ID { return c.ID })
		handler := handlers.NewCategoryHandler(baseHandler, service, cfg.Authorizer)
		RegisterCatalogRoutes(catalogs.Group("/categories"), handler, cfg.Authorizer, security.ResourceCategory)
	}

	// --- CURRENCIES ---
	{
		repo := catalog_repo.NewCurrencyRepo(cfg.TxManager)
		service := currency.NewService(repo, cfg.TxManager, cfg.Numerator)
		registerCatalogAudit(service, cfg.AuditService, "Currency", func(c *currency.Currency) id.ID { return c.ID })
		handler := handlers.NewCurrencyHandler(baseHandler, service, cfg.Authorizer)
		RegisterCatalogRoutes(catalogs.Group("/currencies"), handler, cfg.Authorizer, security.ResourceCurrency)
	}

	// --- TAX RATES ---
	{
		repo := catalog_repo.NewTaxRateRepo(cfg.TxManager)
		service := taxrate.NewService(repo, cfg.TxManager, cfg.Numerator)
		registerCatalogAudit(service, cfg.AuditService, "TaxRate", func(t *taxrate.TaxRate) id.ID { return t.ID })
		handler := handlers.NewTaxRateHandler(baseHandler, service, cfg.Authorizer)
		RegisterCatalogRoutes(catalogs.Group("/tax-rates"), handler, cfg.Authorizer, security.ResourceTaxRate)
	}
}

// registerDocumentRoutes registers quote, order, and invoice endpoints.
func registerDocumentRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()

	productRepo := catalog_repo.NewProductRepo(cfg.TxManager)
	taxRateRepo := catalog_repo.NewTaxRateRepo(cfg.TxManager)
	snapshotter := documents.NewSnapshotter(productRepo, taxRateRepo)

	quoteRepo := document_repo.NewQuoteRepo(cfg.TxManager)
	orderRepo := document_repo.NewOrderRepo(cfg.TxManager)
	invoiceRepo := document_repo.NewInvoiceRepo(cfg.TxManager)
	historyRepo := document_repo.NewStatusHistoryRepo(cfg.TxManager)

	quoteService := quote.NewService(quoteRepo, historyRepo, snapshotter, cfg.Numerator, cfg.TxManager)
	orderService := order.NewService(orderRepo, historyRepo, cfg.Numerator, cfg.TxManager)
	invoiceService := invoice.NewService(invoiceRepo, historyRepo, snapshotter, cfg.Numerator, cfg.TxManager)
	converter := convert.NewConverter(quoteRepo, orderRepo, invoiceRepo, historyRepo, snapshotter, cfg.Numerator, cfg.TxManager)

	registerCatalogAudit(quoteService, cfg.AuditService, documents.TypeQuote, func(q *quote.Quote) id.ID { return q.ID })
	registerCatalogAudit(invoiceService, cfg.AuditService, documents.TypeInvoice, func(inv *invoice.Invoice) id.ID { return inv.ID })

	// --- QUOTES ---
	{
		h := handlers.NewQuoteHandler(baseHandler, quoteService, converter, cfg.Authorizer)
		res := security.ResourceQuote
		g := rg.Group("/quotes")
		g.GET("", middleware.Authorize(cfg.Authorizer, security.ActionRead, res), h.List)
		g.POST("", middleware.Authorize(cfg.Authorizer, security.ActionCreate, res), h.Create)
		g.GET("/:id", middleware.Authorize(cfg.Authorizer, security.ActionRead, res), h.Get)
		g.PUT("/:id", middleware.Authorize(cfg.Authorizer, security.ActionUpdate, res), h.Update)
		g.DELETE("/:id", middleware.Authorize(cfg.Authorizer, security.ActionDelete, res), h.Delete)
		g.POST("/:id/status", middleware.Authorize(cfg.Authorizer, security.ActionChangeStatus, res), h.ChangeStatus)
		g.POST("/:id/expire", middleware.Authorize(cfg.Authorizer, security.ActionChangeStatus, res), h.MarkExpired)
		g.POST("/:id/duplicate", middleware.Authorize(cfg.Authorizer, security.ActionCreate, res), h.Duplicate)
		g.POST("/:id/convert-to-order", middleware.Authorize(cfg.Authorizer, security.ActionConvert, res), h.ConvertToOrder)
		g.POST("/:id/convert-to-invoice", middleware.Authorize(cfg.Authorizer, security.ActionConvert, res), h.ConvertToInvoice)
		g.GET("/:id/history", middleware.Authorize(cfg.Authorizer, security.ActionRead, res), h.History)
	}

	// --- ORDERS ---
	{
		h := handlers.NewOrderHandler(baseHandler, orderService, cfg.Authorizer)
		res := security.ResourceOrder
		g := rg.Group("/orders")
		g.GET("", middleware.Authorize(cfg.Authorizer, security.ActionRead, res), h.List)
		g.GET("/:id", middleware.Authorize(cfg.Authorizer, security.ActionRead, res), h.Get)
		g.POST("/:id/status", middleware.Authorize(cfg.Authorizer, security.ActionChangeStatus, res), h.ChangeStatus)
		g.GET("/:id/history", middleware.Authorize(cfg.Authorizer, security.ActionRead, res), h.History)
	}

	// --- INVOICES ---
	{
		h := handlers.NewInvoiceHandler(baseHandler, invoiceService, cfg.Authorizer)
		res := security.ResourceInvoice
		g := rg.Group("/invoices")
		g.GET("", middleware.Authorize(cfg.Authorizer, security.ActionRead, res), h.List)
		g.POST("", middleware.Authorize(cfg.Authorizer, security.ActionCreate, res), h.Create)
		g.GET("/:id", middleware.Authorize(cfg.Authorizer, security.ActionRead, res), h.Get)
		g.PUT("/:id", middleware.Authorize(cfg.Authorizer, security.ActionUpdate, res), h.Update)
		g.DELETE("/:id", middleware.Authorize(cfg.Authorizer, security.ActionDelete, res), h.Delete)
		g.POST("/:id/status", middleware.Authorize(cfg.Authorizer, security.ActionChangeStatus, res), h.ChangeStatus)
		g.POST("/:id/mark-paid", middleware.Authorize(cfg.Authorizer, security.ActionChangeStatus, res), h.MarkPaid)
		g.POST("/:id/reopen", middleware.Authorize(cfg.Authorizer, security.ActionChangeStatus, res), h.Reopen)
		g.GET("/:id/history", middleware.Authorize(cfg.Authorizer, security.ActionRead, res), h.History)
	}
}

// registerStockRoutes registers stock movement ledger endpoints.
func registerStockRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()

	stockRepo := document_repo.NewStockMovementRepo(cfg.TxManager)
	productRepo := catalog_repo.NewProductRepo(cfg.TxManager)
	stockService := stock.NewService(stockRepo, productRepo, cfg.Numerator, cfg.TxManager)

	h := handlers.NewStockHandler(baseHandler, stockService, cfg.Authorizer)
	res := security.ResourceStockMovement
	g := rg.Group("/stock")
	g.GET("/movements", middleware.Authorize(cfg.Authorizer, security.ActionRead, res), h.List)
	g.POST("/movements", middleware.Authorize(cfg.Authorizer, security.ActionCreate, res), h.Create)
	g.GET("/movements/:id", middleware.Authorize(cfg.Authorizer, security.ActionRead, res), h.Get)
	g.PUT("/movements/:id", middleware.Authorize(cfg.Authorizer, security.ActionUpdate, res), h.Update)
	g.DELETE("/movements/:id", middleware.Authorize(cfg.Authorizer, security.ActionDelete, res), h.Delete)
	g.POST("/movements/:id/restore", middleware.Authorize(cfg.Authorizer, security.ActionRestore, res), h.Restore)
	g.DELETE("/movements/:id/force", middleware.Authorize(cfg.Authorizer, security.ActionForceDelete, res), h.ForceDelete)
	g.POST("/reconcile", middleware.Authorize(cfg.Authorizer, security.ActionRead, res), h.Reconcile)
	g.POST("/repair", middleware.Authorize(cfg.Authorizer, security.ActionForceDelete, res), h.Repair)
}

// registerAuditRoutes registers audit and login log endpoints.
func registerAuditRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.AuditService == nil {
		return
	}

	baseHandler := handlers.NewBaseHandler()
	h := handlers.NewAuditHandler(baseHandler, cfg.AuditService)
	res := security.ResourceAuditLog

	g := rg.Group("/audit")
	g.GET("", middleware.Authorize(cfg.Authorizer, security.ActionViewAudit, res), h.Query)
	g.GET("/logins", middleware.Authorize(cfg.Authorizer, security.ActionViewAudit, res), h.Logins)
	g.GET("/:entityType/:id", middleware.Authorize(cfg.Authorizer, security.ActionViewAudit, res), h.EntityHistory)
}

// hooked is satisfied by every service exposing a hook registry.
type hooked[T any] interface {
	Hooks() *domain.HookRegistry[T]
}

// registerCatalogAudit records create, update, and delete operations in
// the audit log. Hooks run after commit; a failed write never blocks
// the business operation.
func registerCatalogAudit[T any](svc hooked[T], auditSvc *audit.Service, entityType string, idOf func(T) id.ID) {
	if auditSvc == nil {
		return
	}
	hooks := svc.Hooks()
	hooks.OnAfterCreate(func(ctx context.Context, e T) error {
		auditSvc.LogAction(ctx, entityType, idOf(e), audit.ActionCreate, nil)
		return nil
	})
	hooks.OnAfterUpdate(func(ctx context.Context, e T) error {
		auditSvc.LogAction(ctx, entityType, idOf(e), audit.ActionUpdate, nil)
		return nil
	})
	hooks.OnAfterDelete(func(ctx context.Context, e T) error {
		auditSvc.LogAction(ctx, entityType, idOf(e), audit.ActionDelete, nil)
		return nil
	})
}
