package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/flicky/farm-market-api/internal/model"
)

// FarmerLocationRepository holds the imported map points. It is fed only by
// the batch importer and is independent of registered users.
type FarmerLocationRepository interface {
	ReplaceAll(ctx context.Context, locations []model.FarmerLocation) (int, error)
	List(ctx context.Context) ([]model.FarmerLocation, error)
}

type farmerDoc struct {
	ID        string  `bson:"_id"`
	FarmerID  string  `bson:"farmer_id"`
	State     string  `bson:"state"`
	Latitude  float64 `bson:"latitude"`
	Longitude float64 `bson:"longitude"`
	Crops     string  `bson:"crops"`
}

type mongoFarmerRepo struct{ coll *mongo.Collection }

func NewFarmerLocationRepository(db *mongo.Database) FarmerLocationRepository {
	return &mongoFarmerRepo{coll: db.Collection(farmersCollection)}
}

func (r *mongoFarmerRepo) ReplaceAll(ctx context.Context, locations []model.FarmerLocation) (int, error) {
	if _, err := r.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return 0, fmt.Errorf("clear farmers: %w", err)
	}
	if len(locations) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, 0, len(locations))
	for i := range locations {
		if locations[i].ID == uuid.Nil {
			locations[i].ID = uuid.New()
		}
		l := locations[i]
		docs = append(docs, farmerDoc{
			ID:        l.ID.String(),
			FarmerID:  l.FarmerID,
			State:     l.State,
			Latitude:  l.Latitude,
			Longitude: l.Longitude,
			Crops:     l.Crops,
		})
	}

	res, err := r.coll.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("insert farmers: %w", err)
	}
	return len(res.InsertedIDs), nil
}

func (r *mongoFarmerRepo) List(ctx context.Context) ([]model.FarmerLocation, error) {
	cur, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list farmers: %w", err)
	}

	var docs []farmerDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode farmers: %w", err)
	}

	out := make([]model.FarmerLocation, 0, len(docs))
	for _, d := range docs {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			return nil, fmt.Errorf("farmer %q: bad id: %w", d.ID, err)
		}
		out = append(out, model.FarmerLocation{
			ID:        id,
			FarmerID:  d.FarmerID,
			State:     d.State,
			Latitude:  d.Latitude,
			Longitude: d.Longitude,
			Crops:     d.Crops,
		})
	}
	return out, nil
}
