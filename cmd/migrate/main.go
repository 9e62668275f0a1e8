package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/b3nzuk3/gameCity-sub000/internal/config"
	"github.com/b3nzuk3/gameCity-sub000/internal/db"
	"github.com/b3nzuk3/gameCity-sub000/internal/migrate"
)

func main() {
	var (
		rollback    int
		showVersion bool
	)
	flag.IntVar(&rollback, "rollback", 0, "Revert this many applied migrations instead of migrating up")
	flag.BoolVar(&showVersion, "version", false, "Print the current schema version and exit")
	flag.Parse()

	cfg := config.Load()
	logger := log.New(os.Stdout, "[migrate] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, 2)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	switch {
	case showVersion:
		v, dirty, err := migrate.Version(ctx, pool)
		if err != nil {
			logger.Fatalf("read version: %v", err)
		}
		logger.Printf("schema version %d dirty=%t", v, dirty)
	case rollback > 0:
		if err := migrate.Rollback(ctx, pool, rollback); err != nil {
			logger.Fatalf("rollback migrations: %v", err)
		}
		logger.Printf("rolled back %d migrations", rollback)
	default:
		if err := migrate.Apply(ctx, pool); err != nil {
			logger.Fatalf("apply migrations: %v", err)
		}
		logger.Println("migrations applied")
	}
}
