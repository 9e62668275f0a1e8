package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ Repository = (*MongoRepo)(nil)

// CollectionName is the Mongo collection holding cart rows.
const CollectionName = "cart_items"

type cartDoc struct {
	UserID    string               `bson:"user_id"`
	ProductID string               `bson:"product_id"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Image     string               `bson:"image"`
	Quantity  int                  `bson:"quantity"`
	AddedAt   time.Time            `bson:"added_at"`
	UpdatedAt time.Time            `bson:"updated_at"`
}

func (d cartDoc) item() (domain.CartItem, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return domain.CartItem{}, fmt.Errorf("decode price product_id=%s: %w", d.ProductID, err)
	}
	return domain.CartItem{
		ProductID: d.ProductID,
		Name:      d.Name,
		Price:     price,
		Image:     d.Image,
		Quantity:  d.Quantity,
		AddedAt:   d.AddedAt,
	}, nil
}

// MongoRepo is the document-store Repository.
type MongoRepo struct {
	coll   *mongo.Collection
	logger *log.Logger
	now    func() time.Time
}

// NewMongo returns a Repository backed by a Mongo collection. Call
// EnsureIndexes once at startup so concurrent upserts cannot create
// duplicate (user, product) documents.
func NewMongo(db *mongo.Database, logger *log.Logger) *MongoRepo {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &MongoRepo{coll: db.Collection(CollectionName), logger: logger, now: time.Now}
}

func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "product_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *MongoRepo) List(ctx context.Context, userID string) ([]domain.CartItem, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "added_at", Value: 1}, {Key: "product_id", Value: 1}}))
	if err != nil {
		r.logger.Printf("cart repo: mongo list user_id=%s error=%v", userID, err)
		return nil, err
	}
	var docs []cartDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	items := make([]domain.CartItem, 0, len(docs))
	for _, d := range docs {
		item, err := d.item()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *MongoRepo) Add(ctx context.Context, userID string, item domain.CartItem) (*domain.CartItem, error) {
	if item.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	price, err := primitive.ParseDecimal128(item.Price.String())
	if err != nil {
		return nil, fmt.Errorf("encode price: %w", err)
	}
	now := r.now().UTC()
	update := bson.M{
		"$inc": bson.M{"quantity": item.Quantity},
		"$set": bson.M{"updated_at": now},
		"$setOnInsert": bson.M{
			"name":     item.Name,
			"price":    price,
			"image":    item.Image,
			"added_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	filter := bson.M{"user_id": userID, "product_id": item.ProductID}

	var doc cartDoc
	err = r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// lost an insert race; the row exists now, so the retry takes the $inc path
		err = r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	}
	if err != nil {
		r.logger.Printf("cart repo: mongo add user_id=%s product_id=%s error=%v", userID, item.ProductID, err)
		return nil, err
	}
	out, err := doc.item()
	if err != nil {
		return nil, err
	}
	r.logger.Printf("cart repo: mongo add user_id=%s product_id=%s qty=%d", userID, out.ProductID, out.Quantity)
	return &out, nil
}

func (r *MongoRepo) SetQuantity(ctx context.Context, userID, productID string, qty int) (*domain.CartItem, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	update := bson.M{"$set": bson.M{"quantity": qty, "updated_at": r.now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc cartDoc
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"user_id": userID, "product_id": productID}, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("cart repo: mongo set quantity user_id=%s product_id=%s error=%v", userID, productID, err)
		return nil, err
	}
	out, err := doc.item()
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *MongoRepo) Remove(ctx context.Context, userID, productID string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"user_id": userID, "product_id": productID}); err != nil {
		r.logger.Printf("cart repo: mongo remove user_id=%s product_id=%s error=%v", userID, productID, err)
		return err
	}
	return nil
}

func (r *MongoRepo) Clear(ctx context.Context, userID string) error {
	res, err := r.coll.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		r.logger.Printf("cart repo: mongo clear user_id=%s error=%v", userID, err)
		return err
	}
	r.logger.Printf("cart repo: mongo cleared user_id=%s docs=%d", userID, res.DeletedCount)
	return nil
}
