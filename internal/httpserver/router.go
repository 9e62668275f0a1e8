package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/b3nzuk3/gameCity-sub000/internal/mpesa"
	cartsvc "github.com/b3nzuk3/gameCity-sub000/internal/service/cart"
	ordersvc "github.com/b3nzuk3/gameCity-sub000/internal/service/order"
	paymentsvc "github.com/b3nzuk3/gameCity-sub000/internal/service/payment"
	productsvc "github.com/b3nzuk3/gameCity-sub000/internal/service/product"
	usersvc "github.com/b3nzuk3/gameCity-sub000/internal/service/user"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductService interface {
	List(ctx context.Context, q productsvc.ListQuery) (*productsvc.Page, error)
	Get(ctx context.Context, id string) (*productsvc.View, error)
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	Update(ctx context.Context, id string, p domain.Product) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}

type CategoryService interface {
	List(ctx context.Context) ([]domain.Category, error)
}

type CartService interface {
	Get(ctx context.Context, userID string) (*cartsvc.View, error)
	Add(ctx context.Context, userID, productID string, qty int) (*cartsvc.View, error)
	SetQuantity(ctx context.Context, userID, productID string, qty int) (*cartsvc.View, error)
	Remove(ctx context.Context, userID, productID string) (*cartsvc.View, error)
	Clear(ctx context.Context, userID string) error
}

type OrderService interface {
	Create(ctx context.Context, userID *string, in ordersvc.CreateInput) (*domain.Order, bool, error)
	Get(ctx context.Context, id string, requester *domain.User) (*domain.Order, error)
	ListMine(ctx context.Context, userID string) ([]domain.Order, error)
	List(ctx context.Context, page, pageSize int) ([]domain.Order, int, error)
	UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error)
}

type PaymentService interface {
	Initiate(ctx context.Context, in paymentsvc.InitiateInput, requester *domain.User) (mpesa.Result, error)
	HandleCallback(ctx context.Context, body []byte) (*domain.Payment, error)
}

type UserService interface {
	Register(ctx context.Context, in usersvc.RegisterInput) (*domain.User, error)
	Verify(ctx context.Context, token string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	LookupByToken(ctx context.Context, token string) (*domain.User, error)
	TokenTTLSeconds() int
}

// Deps carries the services the router dispatches to.
type Deps struct {
	ProductSvc  ProductService
	CategorySvc CategoryService
	CartSvc     CartService
	OrderSvc    OrderService
	PaymentSvc  PaymentService
	UserSvc     UserService

	// Feed receives created orders for the admin websocket. Optional.
	Feed *Hub

	UploadDir   string
	CORSOrigins []string
}

func (d Deps) validate() error {
	switch {
	case d.ProductSvc == nil:
		return errors.New("httpserver: product service is required")
	case d.CategorySvc == nil:
		return errors.New("httpserver: category service is required")
	case d.CartSvc == nil:
		return errors.New("httpserver: cart service is required")
	case d.OrderSvc == nil:
		return errors.New("httpserver: order service is required")
	case d.PaymentSvc == nil:
		return errors.New("httpserver: payment service is required")
	case d.UserSvc == nil:
		return errors.New("httpserver: user service is required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowAllOrigins:  len(deps.CORSOrigins) == 0,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: len(deps.CORSOrigins) > 0,
		MaxAge:           12 * time.Hour,
	}))
	router.MaxMultipartMemory = maxUploadBytes

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db, deps.Feed))

	h := &handlers{deps: deps, logger: logger}
	requireUser := authMiddleware(deps.UserSvc, false)
	optionalUser := authMiddleware(deps.UserSvc, true)

	api := router.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", h.register)
	auth.GET("/verify", h.verify)
	auth.POST("/login", h.login)
	auth.GET("/me", requireUser, h.me)

	api.GET("/products", h.listProducts)
	api.GET("/products/:id", h.getProduct)
	api.GET("/categories", h.listCategories)

	cart := api.Group("/cart", requireUser)
	cart.GET("", h.getCart)
	cart.POST("/items", h.addCartItem)
	cart.PUT("/items/:productId", h.setCartQuantity)
	cart.DELETE("/items/:productId", h.removeCartItem)
	cart.DELETE("", h.clearCart)

	api.POST("/orders", optionalUser, h.createOrder)
	api.GET("/orders/mine", requireUser, h.myOrders)
	api.GET("/orders/:id", optionalUser, h.getOrder)

	api.POST("/payments/mpesa", optionalUser, h.initiatePayment)
	api.POST("/payments/mpesa/callback", h.paymentCallback)

	admin := api.Group("", requireUser, requireAdmin())
	admin.POST("/products", h.createProduct)
	admin.PUT("/products/:id", h.updateProduct)
	admin.DELETE("/products/:id", h.deleteProduct)
	admin.GET("/orders", h.listOrders)
	admin.PUT("/orders/:id/status", h.updateOrderStatus)
	if deps.UploadDir != "" {
		admin.POST("/uploads", h.upload)
		router.Static("/uploads", deps.UploadDir)
	}

	if deps.Feed != nil {
		// browsers cannot set headers on a websocket handshake, so the feed
		// also accepts ?token=
		api.GET("/admin/orders/feed", feedAuthMiddleware(deps.UserSvc), requireAdmin(), deps.Feed.serve)
	}

	return router, nil
}

type handlers struct {
	deps   Deps
	logger *log.Logger
}
