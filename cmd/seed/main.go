package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/catalog"
	"github.com/b3nzuk3/gameCity-sub000/internal/config"
	"github.com/b3nzuk3/gameCity-sub000/internal/db"
	productrepo "github.com/b3nzuk3/gameCity-sub000/internal/repository/product"
	userrepo "github.com/b3nzuk3/gameCity-sub000/internal/repository/user"
	"github.com/b3nzuk3/gameCity-sub000/internal/seed"
	productsvc "github.com/b3nzuk3/gameCity-sub000/internal/service/product"
	usersvc "github.com/b3nzuk3/gameCity-sub000/internal/service/user"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	products := productsvc.New(productrepo.NewPostgres(pool, logger), catalog.Default())
	users := usersvc.New(userrepo.NewPostgres(pool, logger), usersvc.Options{Secret: cfg.JWTSecret, Logger: logger})

	n, err := seed.Apply(ctx, products, users, seed.Admin{
		Name:     "Admin",
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}, time.Now())
	if err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	logger.Printf("seed applied: %d products", n)
}
