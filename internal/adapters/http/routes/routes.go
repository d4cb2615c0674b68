package routes

import (
	"time"

	"klinika-care/internal/adapters/http/handlers"
	"klinika-care/internal/adapters/http/middleware"
	"klinika-care/internal/adapters/persistence/repositories"
	"klinika-care/internal/config"
	"klinika-care/internal/core/services"
	"klinika-care/internal/pkg/keylock"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application and wires the service
// graph. Returns the cron service so main can start and stop it.
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) *services.CronService {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	queueRepo := repositories.NewQueueRepository(db)
	appointmentRepo := repositories.NewAppointmentRepository(db)
	medicineRepo := repositories.NewMedicineRepository(db)
	prescriptionRepo := repositories.NewPrescriptionRepository(db)

	// One shared lock table for queue days and medicines
	locks := keylock.New()

	// Initialize services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg)
	userService := services.NewUserService(userRepo)
	queueService := services.NewQueueService(queueRepo, locks)
	appointmentService := services.NewAppointmentService(appointmentRepo, userRepo, queueService)
	stockService := services.NewStockService(medicineRepo, locks)
	prescriptionService := services.NewPrescriptionService(prescriptionRepo, medicineRepo, appointmentRepo, locks)
	dashboardService := services.NewDashboardService(prescriptionRepo, medicineRepo, queueRepo)
	cronService := services.NewCronService(queueService, stockService, authService)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	queueHandler := handlers.NewQueueHandler(queueService)
	queueAdminHandler := handlers.NewQueueAdminHandler(queueService, appointmentService)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService)
	prescriptionHandler := handlers.NewPrescriptionHandler(prescriptionService)
	medicineHandler := handlers.NewMedicineHandler(stockService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")

	// Auth routes (public, rate limited)
	authRoutes := apiV1.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// Doctor directory (any authenticated user, used when booking)
	apiV1.Get("/doctors", middleware.AuthMiddleware(cfg), middleware.CatalogCache(5*time.Minute), userHandler.ListDoctors)

	// Profile routes (authenticated users)
	profileRoutes := apiV1.Group("/profile")
	profileRoutes.Use(middleware.AuthMiddleware(cfg))
	profileRoutes.Get("/", authHandler.Me)
	profileRoutes.Put("/", userHandler.UpdateProfile)
	profileRoutes.Put("/password", userHandler.ChangePassword)

	// Appointment routes (authenticated users)
	appointmentRoutes := apiV1.Group("/appointments")
	appointmentRoutes.Use(middleware.AuthMiddleware(cfg))
	setupAppointmentRoutes(appointmentRoutes, appointmentHandler)

	// Queue board (authenticated users, never cached)
	queueRoutes := apiV1.Group("/queue")
	queueRoutes.Use(middleware.AuthMiddleware(cfg))
	queueRoutes.Use(middleware.NoCacheHeaders())
	queueRoutes.Get("/", queueHandler.GetState)
	queueRoutes.Get("/entries/:id", queueHandler.GetEntry)

	// Queue console (front desk staff)
	queueAdminRoutes := apiV1.Group("/admin/queue")
	queueAdminRoutes.Use(middleware.AuthMiddleware(cfg))
	queueAdminRoutes.Use(middleware.FrontDesk())
	setupQueueAdminRoutes(queueAdminRoutes, queueAdminHandler, appointmentHandler)

	// Prescription routes (staff)
	prescriptionRoutes := apiV1.Group("/prescriptions")
	prescriptionRoutes.Use(middleware.AuthMiddleware(cfg))
	setupPrescriptionRoutes(prescriptionRoutes, prescriptionHandler)

	// Medicine catalog + stock ledger (pharmacist/admin)
	medicineRoutes := apiV1.Group("/medicines")
	medicineRoutes.Use(middleware.AuthMiddleware(cfg))
	medicineRoutes.Use(middleware.PharmacistOrAdmin())
	setupMedicineRoutes(medicineRoutes, medicineHandler)

	// User management (admin only)
	userRoutes := apiV1.Group("/admin/users")
	userRoutes.Use(middleware.AuthMiddleware(cfg))
	userRoutes.Use(middleware.AdminOnly())
	setupUserRoutes(userRoutes, userHandler)

	// Dashboard (pharmacist/admin)
	dashboardRoutes := apiV1.Group("/admin/dashboard")
	dashboardRoutes.Use(middleware.AuthMiddleware(cfg))
	dashboardRoutes.Use(middleware.PharmacistOrAdmin())
	dashboardRoutes.Get("/pharmacy", dashboardHandler.Pharmacy)

	return cronService
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes
	router.Post("/register", middleware.AuthRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupAppointmentRoutes configures appointment routes
func setupAppointmentRoutes(router fiber.Router, handler *handlers.AppointmentHandler) {
	router.Post("/", handler.Book)
	router.Get("/", handler.ListMine)
	router.Get("/schedule", middleware.DoctorOnly(), handler.ListDoctorDay)
	router.Post("/:id/check-in", handler.CheckIn)
	router.Post("/:id/cancel", handler.Cancel)
}

// setupQueueAdminRoutes configures the staff queue console
func setupQueueAdminRoutes(router fiber.Router, handler *handlers.QueueAdminHandler, appointmentHandler *handlers.AppointmentHandler) {
	router.Post("/call-next", handler.CallNext)
	router.Post("/entries/:id/skip", handler.Skip)
	router.Post("/entries/:id/complete", handler.Complete)

	// Walk-in registration happens at the front desk
	router.Post("/walkin", appointmentHandler.CreateWalkin)
}

// setupPrescriptionRoutes configures prescription workflow routes
func setupPrescriptionRoutes(router fiber.Router, handler *handlers.PrescriptionHandler) {
	// Doctors write prescriptions
	router.Post("/", middleware.DoctorOnly(), handler.Create)

	// Staff read them
	router.Get("/", middleware.StaffOnly(), handler.List)
	router.Get("/:id", middleware.StaffOnly(), handler.GetByID)

	// Pharmacists run the dispensing workflow
	router.Post("/:id/verify", middleware.PharmacistOrAdmin(), handler.Verify)
	router.Post("/:id/reject", middleware.PharmacistOrAdmin(), handler.Reject)
	router.Post("/:id/complete", middleware.PharmacistOrAdmin(), handler.Complete)
}

// setupMedicineRoutes configures the medicine catalog and ledger routes
func setupMedicineRoutes(router fiber.Router, handler *handlers.MedicineHandler) {
	router.Get("/", handler.List)
	router.Get("/low-stock", handler.LowStock)
	router.Get("/:id", handler.GetByID)
	router.Post("/", handler.Create)
	router.Put("/:id", handler.Update)
	router.Delete("/:id", handler.Delete)

	// Stock ledger
	router.Post("/:id/restock", handler.Restock)
	router.Post("/:id/adjust", handler.Adjust)
	router.Get("/:id/history", handler.History)
}

// setupUserRoutes configures user management routes (Admin only)
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", handler.List)
	router.Post("/", handler.Create)
	router.Get("/:id", handler.GetByID)
	router.Put("/:id", handler.Update)
	router.Delete("/:id", handler.Deactivate)
}
