package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskzen-api/domain"
)

// Storage provides access to the MongoDB collections backing the service.
type Storage struct {
	client      *mongo.Client
	users       *mongo.Collection
	friendships *mongo.Collection
	tasks       *mongo.Collection
}

// New connects to MongoDB and verifies the connection with a ping.
func New(ctx context.Context, uri, database string) (*Storage, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second).
		SetRetryWrites(true)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	db := client.Database(database)
	return &Storage{
		client:      client,
		users:       db.Collection("users"),
		friendships: db.Collection("friendships"),
		tasks:       db.Collection("tasks"),
	}, nil
}

// EnsureIndexes creates the unique and query indexes the service relies on.
// The unique pairKey index on friendships is what makes concurrent duplicate
// friend requests lose the race at the database rather than in application
// code.
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "googleId", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	_, err = s.friendships.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "pairKey", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "requester", Value: 1}, {Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create friendship indexes: %w", err)
	}

	_, err = s.tasks.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "dueDate", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create task indexes: %w", err)
	}
	return nil
}

// Close disconnects the underlying client.
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// parseID converts a hex id to an ObjectID. A malformed id is treated the
// same as an id that matches nothing.
func parseID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password,omitempty"`
	GoogleID  string             `bson:"googleId,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d userDoc) toDomain() domain.User {
	return domain.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		GoogleID:     d.GoogleID,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (s *Storage) InsertUser(ctx context.Context, u domain.User) (domain.User, error) {
	doc := userDoc{
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.PasswordHash,
		GoogleID:  u.GoogleID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	res, err := s.users.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return domain.User{}, domain.ErrDuplicateKey
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return u, nil
}

func (s *Storage) UserByID(ctx context.Context, id string) (*domain.User, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *Storage) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Storage) UserByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	return s.findUser(ctx, bson.M{"googleId": googleID})
}

func (s *Storage) findUser(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	u := doc.toDomain()
	return &u, nil
}

func (s *Storage) SearchUsersByEmail(ctx context.Context, fragment, excludeID string, limit int) ([]domain.User, error) {
	filter := bson.M{"email": emailRegexFilter(fragment)}
	if oid, ok := parseID(excludeID); ok {
		filter["_id"] = bson.M{"$ne": oid}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "email", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := s.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	out := make([]domain.User, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}

func (s *Storage) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	oid, ok := parseID(userID)
	if !ok {
		return fmt.Errorf("link google id: malformed user id %q", userID)
	}
	_, err := s.users.UpdateByID(ctx, oid, bson.M{
		"$set": bson.M{"googleId": googleID, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("link google id: %w", err)
	}
	return nil
}

type friendshipDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Requester primitive.ObjectID `bson:"requester"`
	Recipient primitive.ObjectID `bson:"recipient"`
	Status    string             `bson:"status"`
	PairKey   string             `bson:"pairKey"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d friendshipDoc) toDomain() domain.Friendship {
	return domain.Friendship{
		ID:          d.ID.Hex(),
		RequesterID: d.Requester.Hex(),
		RecipientID: d.Recipient.Hex(),
		Status:      domain.FriendshipStatus(d.Status),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (s *Storage) InsertFriendship(ctx context.Context, fr domain.Friendship) (domain.Friendship, error) {
	requester, ok := parseID(fr.RequesterID)
	if !ok {
		return domain.Friendship{}, fmt.Errorf("insert friendship: malformed requester id %q", fr.RequesterID)
	}
	recipient, ok := parseID(fr.RecipientID)
	if !ok {
		return domain.Friendship{}, fmt.Errorf("insert friendship: malformed recipient id %q", fr.RecipientID)
	}
	doc := friendshipDoc{
		Requester: requester,
		Recipient: recipient,
		Status:    string(fr.Status),
		PairKey:   domain.PairKey(fr.RequesterID, fr.RecipientID),
		CreatedAt: fr.CreatedAt,
		UpdatedAt: fr.UpdatedAt,
	}
	res, err := s.friendships.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return domain.Friendship{}, domain.ErrDuplicateKey
	}
	if err != nil {
		return domain.Friendship{}, fmt.Errorf("insert friendship: %w", err)
	}
	fr.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return fr, nil
}

func (s *Storage) FriendshipByID(ctx context.Context, id string) (*domain.Friendship, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	return s.findFriendship(ctx, bson.M{"_id": oid})
}

func (s *Storage) FriendshipBetween(ctx context.Context, a, b string) (*domain.Friendship, error) {
	return s.findFriendship(ctx, bson.M{"pairKey": domain.PairKey(a, b)})
}

func (s *Storage) AcceptedBetween(ctx context.Context, a, b string) (*domain.Friendship, error) {
	return s.findFriendship(ctx, bson.M{
		"pairKey": domain.PairKey(a, b),
		"status":  string(domain.FriendshipAccepted),
	})
}

func (s *Storage) findFriendship(ctx context.Context, filter bson.M) (*domain.Friendship, error) {
	var doc friendshipDoc
	err := s.friendships.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find friendship: %w", err)
	}
	fr := doc.toDomain()
	return &fr, nil
}

func (s *Storage) PendingRequests(ctx context.Context, userID string, dir domain.RequestDirection) ([]domain.Friendship, error) {
	oid, ok := parseID(userID)
	if !ok {
		return nil, nil
	}
	filter := bson.M{"status": string(domain.FriendshipPending)}
	switch dir {
	case domain.RequestsSent:
		filter["requester"] = oid
	case domain.RequestsReceived:
		filter["recipient"] = oid
	default:
		filter["$or"] = bson.A{bson.M{"requester": oid}, bson.M{"recipient": oid}}
	}
	return s.findFriendships(ctx, filter, bson.D{{Key: "createdAt", Value: -1}})
}

func (s *Storage) AcceptedFriendships(ctx context.Context, userID string) ([]domain.Friendship, error) {
	oid, ok := parseID(userID)
	if !ok {
		return nil, nil
	}
	filter := bson.M{
		"status": string(domain.FriendshipAccepted),
		"$or":    bson.A{bson.M{"requester": oid}, bson.M{"recipient": oid}},
	}
	return s.findFriendships(ctx, filter, bson.D{{Key: "updatedAt", Value: -1}})
}

func (s *Storage) findFriendships(ctx context.Context, filter bson.M, sort bson.D) ([]domain.Friendship, error) {
	cur, err := s.friendships.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("find friendships: %w", err)
	}
	var docs []friendshipDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode friendships: %w", err)
	}
	out := make([]domain.Friendship, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}

func (s *Storage) SetFriendshipStatus(ctx context.Context, id string, status domain.FriendshipStatus, updatedAt time.Time) (*domain.Friendship, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	var doc friendshipDoc
	err := s.friendships.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": string(status), "updatedAt": updatedAt}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update friendship: %w", err)
	}
	fr := doc.toDomain()
	return &fr, nil
}

func (s *Storage) DeleteFriendship(ctx context.Context, id string) error {
	oid, ok := parseID(id)
	if !ok {
		return nil
	}
	if _, err := s.friendships.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}
	return nil
}

type taskDoc struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty"`
	Title           string              `bson:"title"`
	Description     string              `bson:"description,omitempty"`
	DueDate         *time.Time          `bson:"dueDate,omitempty"`
	Priority        string              `bson:"priority"`
	Status          string              `bson:"status"`
	Flagged         bool                `bson:"flagged"`
	Owner           primitive.ObjectID  `bson:"owner"`
	AssignedBy      *primitive.ObjectID `bson:"assignedBy,omitempty"`
	AssignedByEmail string              `bson:"assignedByEmail,omitempty"`
	CompletedAt     *time.Time          `bson:"completedAt,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt"`
}

func (d taskDoc) toDomain() domain.Task {
	t := domain.Task{
		ID:              d.ID.Hex(),
		Title:           d.Title,
		Description:     d.Description,
		DueDate:         d.DueDate,
		Priority:        domain.TaskPriority(d.Priority),
		Status:          domain.TaskStatus(d.Status),
		Flagged:         d.Flagged,
		OwnerID:         d.Owner.Hex(),
		AssignedByEmail: d.AssignedByEmail,
		CompletedAt:     d.CompletedAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.AssignedBy != nil {
		t.AssignedBy = d.AssignedBy.Hex()
	}
	return t
}

func taskDocFrom(t domain.Task) (taskDoc, error) {
	owner, ok := parseID(t.OwnerID)
	if !ok {
		return taskDoc{}, fmt.Errorf("malformed owner id %q", t.OwnerID)
	}
	doc := taskDoc{
		Title:           t.Title,
		Description:     t.Description,
		DueDate:         t.DueDate,
		Priority:        string(t.Priority),
		Status:          string(t.Status),
		Flagged:         t.Flagged,
		Owner:           owner,
		AssignedByEmail: t.AssignedByEmail,
		CompletedAt:     t.CompletedAt,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	if t.AssignedBy != "" {
		assigner, ok := parseID(t.AssignedBy)
		if !ok {
			return taskDoc{}, fmt.Errorf("malformed assigner id %q", t.AssignedBy)
		}
		doc.AssignedBy = &assigner
	}
	return doc, nil
}

func (s *Storage) InsertTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	doc, err := taskDocFrom(t)
	if err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	res, err := s.tasks.InsertOne(ctx, doc)
	if err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	t.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return t, nil
}

func (s *Storage) TaskByID(ctx context.Context, id, ownerID string) (*domain.Task, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	owner, ok := parseID(ownerID)
	if !ok {
		return nil, nil
	}
	var doc taskDoc
	err := s.tasks.FindOne(ctx, bson.M{"_id": oid, "owner": owner}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	t := doc.toDomain()
	return &t, nil
}

func (s *Storage) UpdateTask(ctx context.Context, t domain.Task) (*domain.Task, error) {
	oid, ok := parseID(t.ID)
	if !ok {
		return nil, nil
	}
	doc, err := taskDocFrom(t)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	res, err := s.tasks.ReplaceOne(ctx, bson.M{"_id": oid, "owner": doc.Owner}, doc)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, nil
	}
	return &t, nil
}

func (s *Storage) DeleteTask(ctx context.Context, id, ownerID string) (bool, error) {
	oid, ok := parseID(id)
	if !ok {
		return false, nil
	}
	owner, ok := parseID(ownerID)
	if !ok {
		return false, nil
	}
	res, err := s.tasks.DeleteOne(ctx, bson.M{"_id": oid, "owner": owner})
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *Storage) ListTasks(ctx context.Context, ownerID string, q domain.TaskQuery) ([]domain.Task, error) {
	owner, ok := parseID(ownerID)
	if !ok {
		return nil, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.tasks.Find(ctx, buildTaskFilter(owner, q), opts)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	var docs []taskDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	out := make([]domain.Task, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}

func (s *Storage) CountTasks(ctx context.Context, ownerID string, q domain.TaskQuery) (int64, error) {
	owner, ok := parseID(ownerID)
	if !ok {
		return 0, nil
	}
	n, err := s.tasks.CountDocuments(ctx, buildTaskFilter(owner, q))
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}
