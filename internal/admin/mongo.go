package admin

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names in the structured database.
const (
	UsersCollection      = "users"
	ActivitiesCollection = "daily_logs"
)

type userDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Role      string             `bson:"role"`
	CreatedAt time.Time          `bson:"created_at"`
}

type activityDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	UserID          string             `bson:"user_id"`
	Date            string             `bson:"date"`
	JobsApplied     int                `bson:"jobs_applied"`
	SubmissionsDone int                `bson:"submissions_done"`
	Remarks         string             `bson:"remarks"`
	Mood            string             `bson:"mood"`
	CreatedAt       time.Time          `bson:"created_at"`
}

type totalsDocument struct {
	TotalJobs        int `bson:"total_jobs"`
	TotalSubmissions int `bson:"total_submissions"`
}

type userTotalsDocument struct {
	UserID           string `bson:"_id"`
	TotalJobs        int    `bson:"total_jobs"`
	TotalSubmissions int    `bson:"total_submissions"`
}

// MongoUserStore implements UserStore over the users collection.
type MongoUserStore struct {
	collection *mongo.Collection
}

// NewMongoUserStore binds the store to the users collection.
func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{collection: db.Collection(UsersCollection)}
}

func (s *MongoUserStore) CountByRole(ctx context.Context, role string) (int64, error) {
	return s.collection.CountDocuments(ctx, bson.M{"role": role})
}

func (s *MongoUserStore) FindByRole(ctx context.Context, role string, limit int64) ([]User, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"role": role}, options.Find().SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var documents []userDocument
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, err
	}

	users := make([]User, 0, len(documents))
	for _, doc := range documents {
		users = append(users, doc.toUser())
	}
	return users, nil
}

func (s *MongoUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// Malformed ids cannot match any document.
		return nil, nil
	}
	return s.findOne(ctx, bson.M{"_id": objectID})
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var doc userDocument
	err := s.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user := doc.toUser()
	return &user, nil
}

func (s *MongoUserStore) UpdateRoleByEmail(ctx context.Context, email, role string) error {
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$set": bson.M{"role": role}})
	return err
}

func (d userDocument) toUser() User {
	return User{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Email:     d.Email,
		Role:      d.Role,
		CreatedAt: d.CreatedAt,
	}
}

// MongoActivityStore implements ActivityStore over the activity collection.
type MongoActivityStore struct {
	collection *mongo.Collection
}

// NewMongoActivityStore binds the store to the daily activity collection.
func NewMongoActivityStore(db *mongo.Database) *MongoActivityStore {
	return &MongoActivityStore{collection: db.Collection(ActivitiesCollection)}
}

func (s *MongoActivityStore) Totals(ctx context.Context) (Totals, error) {
	return s.totals(ctx, mongo.Pipeline{groupTotalsStage(nil)})
}

func (s *MongoActivityStore) TotalsForUser(ctx context.Context, userID string) (Totals, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "user_id", Value: userID}}}},
		groupTotalsStage(nil),
	}
	return s.totals(ctx, pipeline)
}

func (s *MongoActivityStore) totals(ctx context.Context, pipeline mongo.Pipeline) (Totals, error) {
	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return Totals{}, err
	}
	defer cursor.Close(ctx)

	var results []totalsDocument
	if err := cursor.All(ctx, &results); err != nil {
		return Totals{}, err
	}
	if len(results) == 0 {
		return Totals{}, nil
	}
	return Totals{
		TotalJobs:        results[0].TotalJobs,
		TotalSubmissions: results[0].TotalSubmissions,
	}, nil
}

func (s *MongoActivityStore) LatestForUser(ctx context.Context, userID string) (*Activity, error) {
	var doc activityDocument
	err := s.collection.FindOne(ctx,
		bson.M{"user_id": userID},
		options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	activity := doc.toActivity()
	return &activity, nil
}

func (s *MongoActivityStore) ListForUser(ctx context.Context, userID string, limit int64) ([]Activity, error) {
	cursor, err := s.collection.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "date", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var documents []activityDocument
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, err
	}

	activities := make([]Activity, 0, len(documents))
	for _, doc := range documents {
		activities = append(activities, doc.toActivity())
	}
	return activities, nil
}

func (s *MongoActivityStore) Leaderboard(ctx context.Context, limit int64) ([]UserTotals, error) {
	pipeline := mongo.Pipeline{
		groupTotalsStage("$user_id"),
		bson.D{{Key: "$sort", Value: bson.D{{Key: "total_jobs", Value: -1}}}},
		bson.D{{Key: "$limit", Value: limit}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []userTotalsDocument
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}

	totals := make([]UserTotals, 0, len(results))
	for _, result := range results {
		totals = append(totals, UserTotals{
			UserID:           result.UserID,
			TotalJobs:        result.TotalJobs,
			TotalSubmissions: result.TotalSubmissions,
		})
	}
	return totals, nil
}

func (d activityDocument) toActivity() Activity {
	return Activity{
		ID:              d.ID.Hex(),
		UserID:          d.UserID,
		Date:            d.Date,
		JobsApplied:     d.JobsApplied,
		SubmissionsDone: d.SubmissionsDone,
		Remarks:         d.Remarks,
		Mood:            d.Mood,
		CreatedAt:       d.CreatedAt,
	}
}

// groupTotalsStage sums jobs and submissions grouped by the given key
// expression (nil groups the whole collection).
func groupTotalsStage(groupKey interface{}) bson.D {
	return bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: groupKey},
		{Key: "total_jobs", Value: bson.D{{Key: "$sum", Value: "$jobs_applied"}}},
		{Key: "total_submissions", Value: bson.D{{Key: "$sum", Value: "$submissions_done"}}},
	}}}
}
