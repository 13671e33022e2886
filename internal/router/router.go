package router

import (
	"time"

	"feedstock/internal/config"
	"feedstock/internal/handler"
	"feedstock/internal/infra"
	"feedstock/internal/middleware"
	"feedstock/internal/repository"
	"feedstock/internal/service"
	"feedstock/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, alertCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	materialRepo := repository.NewRawMaterialRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	productionRepo := repository.NewProductionRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	priceChangeRepo := repository.NewPriceChangeRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// ── Async plumbing ───────────────────────────────────────────────────────
	dispatcher := worker.NewDispatcher(rdb)
	notifier := worker.NewQueueNotifier(dispatcher, cfg.AlertEmail)
	tracker := worker.NewDirtyTracker(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	supplierSvc := service.NewSupplierService(supplierRepo)
	ledgerSvc := service.NewLedgerService(ledgerRepo, purchaseRepo, productionRepo, notifier)
	recipeSvc := service.NewRecipeService(recipeRepo, materialRepo)
	materialSvc := service.NewRawMaterialService(materialRepo, priceChangeRepo, recipeSvc)
	purchaseSvc := service.NewPurchaseService(
		purchaseRepo, productionRepo, materialRepo, supplierRepo,
		priceChangeRepo, ledgerRepo, auditRepo, ledgerSvc, recipeSvc, tracker,
	)
	productionSvc := service.NewProductionService(
		productionRepo, recipeRepo, materialRepo, ledgerRepo, auditRepo, ledgerSvc, tracker,
	)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	suppliersH := handler.NewSuppliersHandler(supplierSvc)
	materialsH := handler.NewRawMaterialsHandler(materialSvc)
	purchasesH := handler.NewPurchasesHandler(purchaseSvc)
	productionsH := handler.NewProductionsHandler(productionSvc)
	recipesH := handler.NewRecipesHandler(recipeSvc)
	stockH := handler.NewStockHandler(ledgerSvc, dispatcher, cfg.PDFStoragePath)
	auditH := handler.NewAuditHandler(auditRepo)
	priceLookupH := handler.NewPriceLookupHandler(materialRepo)
	healthH := handler.NewHealthHandler(db, rdb, alertCB)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", healthH.Check)

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Warehouse price lookup — no auth required (barn terminals)
	r.GET("/v1/public/farms/:farmId/materials/:code/price", priceLookupH.Lookup)

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		all := middleware.RequireRole("operator", "supervisor", "admin")
		write := middleware.RequireRole("supervisor", "admin")
		adminOnly := middleware.RequireRole("admin")

		// Suppliers
		sup := v1.Group("/suppliers")
		{
			sup.GET("", all, suppliersH.List)
			sup.GET("/:id", all, suppliersH.Get)
			sup.POST("", write, suppliersH.Create)
			sup.PUT("/:id", write, suppliersH.Update)
			sup.DELETE("/:id", adminOnly, suppliersH.Delete)
		}

		// Per-farm resources
		farms := v1.Group("/farms/:farmId")
		{
			farms.GET("/materials", all, materialsH.ListByFarm)
			farms.POST("/materials", write, materialsH.Create)

			farms.POST("/purchases", all, purchasesH.Record)
			farms.GET("/purchases", all, purchasesH.ListByFarm)

			farms.POST("/productions", all, productionsH.Record)
			farms.GET("/productions", all, productionsH.ListByFarm)

			farms.GET("/recipes", all, recipesH.ListByFarm)
			farms.PUT("/recipes", write, recipesH.Upsert)

			farms.GET("/ledger", all, stockH.GetFarmLedger)
			farms.GET("/ledger/report", all, stockH.ValuationReport)
			farms.GET("/ledger/:materialId", all, stockH.GetRow)
			farms.PUT("/ledger/:materialId/real-qty", write, stockH.SetRealQty)
			farms.PUT("/ledger/:materialId/baseline", write, stockH.SetBaseline)

			farms.GET("/audit", write, auditH.List)
		}

		// Raw materials (by id)
		mats := v1.Group("/materials")
		{
			mats.GET("/:id", all, materialsH.Get)
			mats.PUT("/:id", write, materialsH.Update)
			mats.DELETE("/:id", adminOnly, materialsH.Delete)
			mats.PUT("/:id/price", write, materialsH.SetManualPrice)
			mats.GET("/:id/price-history", all, materialsH.PriceHistory)
		}

		// Purchases (by id)
		pur := v1.Group("/purchases")
		{
			pur.GET("/:id", all, purchasesH.Get)
			pur.POST("/:id/lines", write, purchasesH.AddLine)
			pur.DELETE("/:id", write, purchasesH.Delete)
			pur.POST("/:id/restore", write, purchasesH.Restore)
		}
		v1.PUT("/purchase-lines/:lineId", write, purchasesH.EditLine)
		v1.DELETE("/purchase-lines/:lineId", write, purchasesH.DeleteLine)

		// Production runs (by id)
		prod := v1.Group("/productions")
		{
			prod.GET("/:id", all, productionsH.Get)
			prod.PUT("/:id", write, productionsH.Edit)
			prod.DELETE("/:id", write, productionsH.Delete)
			prod.POST("/:id/restore", write, productionsH.Restore)
		}

		// Recipes (by id)
		rec := v1.Group("/recipes")
		{
			rec.GET("/:id", all, recipesH.Get)
			rec.POST("/:id/recalculate", write, recipesH.Recalculate)
		}

		// Users
		users := v1.Group("/users", adminOnly)
		{
			users.POST("", authH.CreateUser)
			users.GET("", authH.ListUsers)
			users.PUT("/:id", authH.UpdateUser)
			users.DELETE("/:id", authH.DeactivateUser)
			users.PATCH("/:id/reactivate", authH.ReactivateUser)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
