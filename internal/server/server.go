package server

import (
	"fmt"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/navindus/compreg/config"
	"github.com/navindus/compreg/internal/handlers"
	"github.com/navindus/compreg/internal/middleware"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	setupRoutes(r, db)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return r.Run(":" + port)
}

func setupRoutes(r *gin.Engine, db *gorm.DB) {
	r.Use(middleware.DatabaseMiddleware(db))

	public := r.Group("/v1")
	{
		public.POST("/register", handlers.Register)
		public.POST("/login", handlers.Login)

		competitionPublic := public.Group("/competitions")
		{
			competitionPublic.GET("", handlers.ListCompetitions)
			competitionPublic.GET("/:id", handlers.GetCompetition)
		}

		public.POST("/payments/payhere/notify", handlers.PayHereNotify)
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		registrationProtected := protected.Group("/registrations")
		{
			registrationProtected.POST("", handlers.SubmitRegistrations)
			registrationProtected.GET("", handlers.ListMyRegistrations)
			registrationProtected.GET("/:id/qr", handlers.RegistrationQR)
		}

		protected.POST("/payments/:id/slip", handlers.UploadPaymentSlip)
	}

	admin := r.Group("/v1/admin")
	admin.Use(middleware.JWTAuthMiddleware(), middleware.AdminRequired())
	{
		competitionAdmin := admin.Group("/competitions")
		{
			competitionAdmin.POST("", handlers.CreateCompetition)
			competitionAdmin.PUT("/:id", handlers.UpdateCompetition)
			competitionAdmin.DELETE("/:id", handlers.DeleteCompetition)
			competitionAdmin.POST("/:id/types", handlers.CreateRegistrationType)
			competitionAdmin.PUT("/:id/types/:typeId", handlers.UpdateRegistrationType)
			competitionAdmin.DELETE("/:id/types/:typeId", handlers.DeleteRegistrationType)
		}

		registrationAdmin := admin.Group("/registrations")
		{
			registrationAdmin.GET("", handlers.ListRegistrations)
			registrationAdmin.POST("/delete", handlers.DeleteRegistrations)
			registrationAdmin.GET("/export", handlers.ExportRegistrations)
		}

		paymentAdmin := admin.Group("/payments")
		{
			paymentAdmin.POST("/verify", handlers.VerifyPayment)
			paymentAdmin.POST("/revert", handlers.RevertPayment)
		}
	}
}
