package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/catalog"
	"github.com/b3nzuk3/gameCity-sub000/internal/config"
	"github.com/b3nzuk3/gameCity-sub000/internal/db"
	"github.com/b3nzuk3/gameCity-sub000/internal/httpserver"
	"github.com/b3nzuk3/gameCity-sub000/internal/mongodb"
	"github.com/b3nzuk3/gameCity-sub000/internal/mpesa"
	"github.com/b3nzuk3/gameCity-sub000/internal/pricing"
	cartrepo "github.com/b3nzuk3/gameCity-sub000/internal/repository/cart"
	categoryrepo "github.com/b3nzuk3/gameCity-sub000/internal/repository/category"
	orderrepo "github.com/b3nzuk3/gameCity-sub000/internal/repository/order"
	paymentrepo "github.com/b3nzuk3/gameCity-sub000/internal/repository/payment"
	productrepo "github.com/b3nzuk3/gameCity-sub000/internal/repository/product"
	tokenrepo "github.com/b3nzuk3/gameCity-sub000/internal/repository/token"
	userrepo "github.com/b3nzuk3/gameCity-sub000/internal/repository/user"
	cartsvc "github.com/b3nzuk3/gameCity-sub000/internal/service/cart"
	categorysvc "github.com/b3nzuk3/gameCity-sub000/internal/service/category"
	ordersvc "github.com/b3nzuk3/gameCity-sub000/internal/service/order"
	paymentsvc "github.com/b3nzuk3/gameCity-sub000/internal/service/payment"
	productsvc "github.com/b3nzuk3/gameCity-sub000/internal/service/product"
	usersvc "github.com/b3nzuk3/gameCity-sub000/internal/service/user"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	var cartRepo cartrepo.Repository
	switch cfg.CartStore {
	case "mongo":
		client, database, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			logger.Fatalf("connect to mongo: %v", err)
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}()
		mongoCarts := cartrepo.NewMongo(database, logger)
		if err := mongoCarts.EnsureIndexes(ctx); err != nil {
			logger.Fatalf("mongo cart indexes: %v", err)
		}
		cartRepo = mongoCarts
	case "postgres":
		cartRepo = cartrepo.NewPostgres(dbpool, logger)
	default:
		logger.Fatalf("unknown CART_STORE %q", cfg.CartStore)
	}

	var tokenStore mpesa.TokenStore = &mpesa.MemoryTokenStore{}
	if cfg.Mpesa.TokenStore == "postgres" {
		tokenStore = tokenrepo.NewPostgres(dbpool, "mpesa", logger)
	}
	mpesaClient := mpesa.New(mpesa.Config{
		BaseURL:        cfg.Mpesa.BaseURL,
		ConsumerKey:    cfg.Mpesa.ConsumerKey,
		ConsumerSecret: cfg.Mpesa.ConsumerSecret,
		ShortCode:      cfg.Mpesa.ShortCode,
		Passkey:        cfg.Mpesa.Passkey,
		CallbackURL:    cfg.Mpesa.CallbackURL,
		SafetyMargin:   cfg.Mpesa.SafetyMargin,
	}, tokenStore, nil, logger)

	mapping := catalog.Default()
	policy := pricing.ShippingPolicy{FreeThreshold: cfg.FreeShippingThreshold, FlatRate: cfg.ShippingFlatRate}
	feed := httpserver.NewHub(cfg.CORSOrigins, logger)

	productRepo := productrepo.NewPostgres(dbpool, logger)
	productService := productsvc.New(productRepo, mapping)
	categoryService := categorysvc.New(categoryrepo.NewPostgres(dbpool, logger), mapping)
	cartService := cartsvc.New(cartRepo, productRepo, policy)
	orderService := ordersvc.New(orderrepo.NewPostgres(dbpool, logger), productRepo, policy, feed, logger)
	paymentService := paymentsvc.New(mpesaClient, paymentrepo.NewPostgres(dbpool, logger), orderService, logger)
	userService := usersvc.New(userrepo.NewPostgres(dbpool, logger), usersvc.Options{
		Secret:    cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
		PublicURL: cfg.PublicURL,
		Logger:    logger,
	})

	if cfg.AdminEmail != "" {
		if _, err := userService.EnsureAdmin(ctx, "Admin", cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Fatalf("ensure admin: %v", err)
		}
		logger.Printf("admin account ready email=%s", cfg.AdminEmail)
	}

	if cfg.UploadDir != "" {
		if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
			logger.Fatalf("create upload dir: %v", err)
		}
	}

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		ProductSvc:  productService,
		CategorySvc: categoryService,
		CartSvc:     cartService,
		OrderSvc:    orderService,
		PaymentSvc:  paymentService,
		UserSvc:     userService,
		Feed:        feed,
		UploadDir:   cfg.UploadDir,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
