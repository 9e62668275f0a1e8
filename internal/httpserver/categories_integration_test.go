package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"

	"github.com/b3nzuk3/gameCity-sub000/internal/catalog"
	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/b3nzuk3/gameCity-sub000/internal/migrate"
	categoryrepo "github.com/b3nzuk3/gameCity-sub000/internal/repository/category"
	productrepo "github.com/b3nzuk3/gameCity-sub000/internal/repository/product"
	categorysvc "github.com/b3nzuk3/gameCity-sub000/internal/service/category"
	productsvc "github.com/b3nzuk3/gameCity-sub000/internal/service/product"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

func TestCatalog_IntegrationFiltersAndCounts(t *testing.T) {
	ctx := context.Background()
	pool := integrationPool(ctx, t)
	defer pool.Close()
	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE payments, order_items, orders, cart_items, products, users CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	mapping := catalog.Default()
	prodSvc := productsvc.New(productrepo.NewPostgres(pool, logDiscard()), mapping)
	catSvc := categorysvc.New(categoryrepo.NewPostgres(pool, logDiscard()), mapping)
	for _, p := range []domain.Product{
		{Name: "DualSense Controller", Price: decimal.NewFromInt(9500), Category: "ps5", Brand: "Sony", Stock: 5},
		{Name: "Spider-Man 2", Price: decimal.NewFromInt(7500), Category: "PS5 games", Brand: "Sony", Stock: 3},
		{Name: "Xbox Wireless Headset", Price: decimal.NewFromInt(14000), Category: "headsets", Brand: "Microsoft", Stock: 2},
	} {
		if _, err := prodSvc.Create(ctx, p); err != nil {
			t.Fatalf("create %s: %v", p.Name, err)
		}
	}

	deps := testDeps()
	deps.ProductSvc = prodSvc
	deps.CategorySvc = catSvc
	router := testRouter(t, deps)

	rec := do(router, http.MethodGet, "/api/products?category=playstation&sort=price_asc", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var page productsvc.Page
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("unmarshal products: %v", err)
	}
	if page.Total != 2 || len(page.Products) != 2 || page.Products[0].Name != "Spider-Man 2" {
		t.Fatalf("unexpected page %+v", page)
	}

	rec = do(router, http.MethodGet, "/api/categories", "", "")
	var cats []domain.Category
	if err := json.Unmarshal(rec.Body.Bytes(), &cats); err != nil {
		t.Fatalf("unmarshal categories: %v", err)
	}
	counts := map[string]int{}
	for _, c := range cats {
		counts[c.Name] = c.Count
	}
	if counts["PlayStation"] != 2 || counts["Accessories"] != 1 || counts["Chairs"] != 0 {
		t.Fatalf("unexpected category counts %v", counts)
	}
}

func integrationPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("ping db: %v", err)
	}
	return pool
}
