package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/catalog"
	"github.com/b3nzuk3/gameCity-sub000/internal/config"
	"github.com/b3nzuk3/gameCity-sub000/internal/db"
	"github.com/b3nzuk3/gameCity-sub000/internal/importer"
	productrepo "github.com/b3nzuk3/gameCity-sub000/internal/repository/product"
	productsvc "github.com/b3nzuk3/gameCity-sub000/internal/service/product"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to product CSV (name,description,price,category,brand,countInStock,rating,image,gallery)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatalf("open file: %v", err)
	}
	defer f.Close()

	products := productsvc.New(productrepo.NewPostgres(pool, nil), catalog.Default())
	imp := importer.NewCSVImporter(f, products)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		log.Fatalf("import failed after %d products: %v", count, err)
	}

	fmt.Printf("Imported %d products in %s\n", count, time.Since(start).Truncate(time.Millisecond))
}
