package cart

import (
	"context"
	"os"
	"testing"

	"github.com/b3nzuk3/gameCity-sub000/internal/mongodb"
	"github.com/google/uuid"
)

func TestMongo_Contract(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()

	client, db, err := mongodb.Connect(ctx, uri, "gamecity_test_"+uuid.NewString()[:8])
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() {
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	}()

	repo := NewMongo(db, nil)
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}
	exerciseRepository(ctx, t, repo, uuid.NewString(), uuid.NewString())
}
