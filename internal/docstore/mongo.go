// Package docstore holds manually entered listings in MongoDB, apart
// from the scraped relational store. The CRUD surface writes here; the
// pipeline never does. Reads come back in the same uniform view shape
// as the scraped store so merged queries need no special-casing.
package docstore

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"joblist-engine/internal/domain"
)

const collectionName = "user_jobs"

type Store struct {
	client *mongo.Client
	jobs   *mongo.Collection
}

func Connect(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "mongo connect")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "mongo ping")
	}
	return &Store{
		client: client,
		jobs:   client.Database(database).Collection(collectionName),
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

type manualJob struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Title           string             `bson:"title"`
	Company         string             `bson:"company"`
	Location        string             `bson:"location"`
	Description     string             `bson:"description"`
	PostingDate     string             `bson:"posting_date"`
	URL             string             `bson:"url"`
	Salary          string             `bson:"salary"`
	JobType         string             `bson:"job_type"`
	ExperienceLevel string             `bson:"experience_level"`
	Source          string             `bson:"source"`
	CreatedAt       string             `bson:"created_at"`
	UpdatedAt       string             `bson:"updated_at"`
}

func (m manualJob) view() domain.JobView {
	return domain.JobView{
		ID:              m.ID.Hex(),
		Title:           m.Title,
		Company:         m.Company,
		Location:        m.Location,
		Description:     m.Description,
		PostingDate:     m.PostingDate,
		URL:             m.URL,
		Salary:          m.Salary,
		JobType:         m.JobType,
		ExperienceLevel: m.ExperienceLevel,
		Source:          m.Source,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// Insert stores one manual listing; the source tag is forced to
// "manual" regardless of the caller's input.
func (s *Store) Insert(ctx context.Context, l domain.Listing) (domain.JobView, error) {
	now := time.Now().UTC().Format(domain.TimeLayout)
	doc := manualJob{
		Title:           l.Title,
		Company:         l.Company,
		Location:        l.Location,
		Description:     l.Description,
		URL:             l.URL,
		Salary:          l.Salary,
		JobType:         l.JobType,
		ExperienceLevel: l.ExperienceLevel,
		Source:          domain.SourceManual,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if !l.PostingDate.IsZero() {
		doc.PostingDate = l.PostingDate.UTC().Format(domain.DateLayout)
	}

	res, err := s.jobs.InsertOne(ctx, doc)
	if err != nil {
		return domain.JobView{}, errors.Wrap(err, "insert manual listing")
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.view(), nil
}

// List reads manual listings, newest first, with the same
// case-insensitive substring filters the scraped store applies.
func (s *Store) List(ctx context.Context, f domain.ListFilters) ([]domain.JobView, error) {
	query := bson.M{"source": domain.SourceManual}
	if f.Company != "" {
		query["company"] = bson.M{"$regex": f.Company, "$options": "i"}
	}
	if f.Location != "" {
		query["location"] = bson.M{"$regex": f.Location, "$options": "i"}
	}
	if f.JobType != "" {
		query["job_type"] = bson.M{"$regex": f.JobType, "$options": "i"}
	}

	cur, err := s.jobs.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, errors.Wrap(err, "list manual listings")
	}
	defer cur.Close(ctx)

	var out []domain.JobView
	for cur.Next(ctx) {
		var m manualJob
		if err := cur.Decode(&m); err != nil {
			return nil, errors.Wrap(err, "decode manual listing")
		}
		out = append(out, m.view())
	}
	return out, cur.Err()
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.jobs.CountDocuments(ctx, bson.M{})
}

// Delete removes a manual listing by its hex document ID. Returns
// false for unknown or malformed IDs.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	res, err := s.jobs.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// GroupCounts aggregates manual listings by a document field.
func (s *Store) GroupCounts(ctx context.Context, field string) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}},
	}
	cur, err := s.jobs.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate manual listings")
	}
	defer cur.Close(ctx)

	out := map[string]int64{}
	for cur.Next(ctx) {
		var row struct {
			Key   string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Key] = row.Count
	}
	return out, cur.Err()
}
