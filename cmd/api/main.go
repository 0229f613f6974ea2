package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/fleex/storefront-api/internal/config"
	"github.com/fleex/storefront-api/internal/handler"
	"github.com/fleex/storefront-api/internal/middleware"
	"github.com/fleex/storefront-api/internal/repository"
	"github.com/fleex/storefront-api/internal/service"
	"github.com/fleex/storefront-api/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Stores
	store := repository.NewStore(dbPool, redisClient, cfg.Store.RemoteTimeout, log)
	cartCache := repository.NewCartCache(redisClient, cfg.Checkout.SessionTTL)

	// Services
	sessions := service.NewSessionManager(cfg.Checkout.SessionTTL)
	authSvc := service.NewAuthService(store, cfg.JWT.Secret, cfg.JWT.Expiration)
	freightSvc := service.NewFreightService(cfg.Checkout.FreightDelay)
	cartSvc := service.NewCartService(store, cartCache, log)
	checkoutSvc := service.NewCheckoutService(
		store, store, store, cartSvc, freightSvc,
		cfg.Checkout.PaymentDelay, cfg.Server.PublicBaseURL, log,
	)
	dashboardSvc := service.NewDashboardService(store, store)

	// Workers
	syncLoop := worker.NewSyncLoop(store, amqpCh, cfg.Sync.PollInterval, log)
	autosaver := worker.NewAutosaver(store, cfg.Sync.SaveDebounce, log)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	storefrontH := handler.NewStorefrontHandler(store, store, sessions, cartSvc, checkoutSvc, freightSvc)
	checkoutH := handler.NewCheckoutHandler(store, sessions, checkoutSvc)
	dashboardH := handler.NewDashboardHandler(store, store, dashboardSvc, autosaver, syncLoop)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Router
	router := gin.Default()
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	// Public storefront, keyed by store slug.
	pub := router.Group("/s/:slug")
	{
		pub.GET("", storefrontH.GetPage)
		pub.POST("/freight", storefrontH.QuoteFreight)
		pub.GET("/products/:id/share", storefrontH.ShareProduct)
		pub.POST("/links/:id/click", storefrontH.ClickLink)

		pub.POST("/sessions", storefrontH.CreateSession)

		sess := pub.Group("/sessions/:sid")
		sess.GET("/cart", storefrontH.GetCart)
		sess.POST("/cart/items", storefrontH.AddCartItem)
		sess.PATCH("/cart/items/:index", storefrontH.UpdateCartItem)
		sess.DELETE("/cart/items/:index", storefrontH.RemoveCartItem)
		sess.POST("/cart/restore", storefrontH.RestoreCart)
		sess.DELETE("/cart/saved", storefrontH.DiscardSavedCart)

		co := sess.Group("/checkout")
		co.POST("", checkoutH.Begin)
		co.GET("", checkoutH.State)
		co.DELETE("", checkoutH.Close)
		co.POST("/details", checkoutH.SubmitDetails)
		co.POST("/delivery", checkoutH.SubmitDelivery)
		co.POST("/freight", checkoutH.QuoteFreight)
		co.POST("/shipping", checkoutH.SelectShipping)
		co.POST("/address", checkoutH.SubmitAddress)
		co.POST("/coupon", checkoutH.ApplyCoupon)
		co.DELETE("/coupon", checkoutH.RemoveCoupon)
		co.POST("/finalize", checkoutH.Finalize)
		co.GET("/pix", checkoutH.Pix)
		co.POST("/payment-method", checkoutH.SelectPaymentMethod)
		co.POST("/approve", checkoutH.Approve)
		co.GET("/success", checkoutH.Success)
	}

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)
		auth.POST("/login/sub-account", authH.LoginSubAccount)

		dash := v1.Group("/dashboard", middleware.AuthMiddleware(cfg.JWT.Secret))
		dash.GET("/me", dashboardH.Me)
		dash.PUT("/profile", dashboardH.UpdateProfile)
		dash.GET("/catalog", dashboardH.GetCatalog)
		dash.PUT("/catalog", dashboardH.SaveCatalog)
		dash.GET("/orders", dashboardH.ListOrders)
		dash.PATCH("/orders/:id/status", dashboardH.UpdateOrderStatus)
		dash.GET("/abandoned-carts", dashboardH.ListAbandonedCarts)
		dash.GET("/customers/export", dashboardH.ExportCustomers)
		dash.GET("/activity", dashboardH.ActivityLog)
	}

	syncLoop.Start(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	syncLoop.Stop()
	autosaver.Flush()
	cancel()
	log.Info("server stopped")
}
