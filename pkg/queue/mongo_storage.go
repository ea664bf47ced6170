package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	tasksCollection       = "queue_tasks"
	deadLettersCollection = "queue_dlq"
)

// MongoStorage persists tasks in MongoDB. Claims are a single
// findOneAndUpdate so concurrent workers never receive the same task.
type MongoStorage struct {
	tasks *mongo.Collection
	dlq   *mongo.Collection
}

func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{
		tasks: db.Collection(tasksCollection),
		dlq:   db.Collection(deadLettersCollection),
	}
}

// EnsureIndexes creates the claim index. Safe to call on every start.
func (s *MongoStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "queue", Value: 1},
			{Key: "status", Value: 1},
			{Key: "priority", Value: -1},
			{Key: "scheduled_at", Value: 1},
		},
	})
	return err
}

type taskDocument struct {
	ID          string     `bson:"_id"`
	Queue       string     `bson:"queue"`
	TaskName    string     `bson:"task_name"`
	Payload     []byte     `bson:"payload,omitempty"`
	Status      TaskStatus `bson:"status"`
	Priority    Priority   `bson:"priority"`
	RetryCount  int8       `bson:"retry_count"`
	MaxRetries  int8       `bson:"max_retries"`
	ScheduledAt time.Time  `bson:"scheduled_at"`
	LockedUntil *time.Time `bson:"locked_until,omitempty"`
	LockedBy    string     `bson:"locked_by,omitempty"`
	ProcessedAt *time.Time `bson:"processed_at,omitempty"`
	Error       *string    `bson:"error,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
}

func toDocument(t *Task) taskDocument {
	doc := taskDocument{
		ID:          t.ID.String(),
		Queue:       t.Queue,
		TaskName:    t.TaskName,
		Payload:     t.Payload,
		Status:      t.Status,
		Priority:    t.Priority,
		RetryCount:  t.RetryCount,
		MaxRetries:  t.MaxRetries,
		ScheduledAt: t.ScheduledAt,
		LockedUntil: t.LockedUntil,
		ProcessedAt: t.ProcessedAt,
		Error:       t.Error,
		CreatedAt:   t.CreatedAt,
	}
	if t.LockedBy != nil {
		doc.LockedBy = t.LockedBy.String()
	}
	return doc
}

func (d taskDocument) task() (*Task, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("parse task id %q: %w", d.ID, err)
	}
	t := &Task{
		ID:          id,
		Queue:       d.Queue,
		TaskName:    d.TaskName,
		Payload:     d.Payload,
		Status:      d.Status,
		Priority:    d.Priority,
		RetryCount:  d.RetryCount,
		MaxRetries:  d.MaxRetries,
		ScheduledAt: d.ScheduledAt,
		LockedUntil: d.LockedUntil,
		ProcessedAt: d.ProcessedAt,
		Error:       d.Error,
		CreatedAt:   d.CreatedAt,
	}
	if d.LockedBy != "" {
		if by, err := uuid.Parse(d.LockedBy); err == nil {
			t.LockedBy = &by
		}
	}
	return t, nil
}

func (s *MongoStorage) CreateTask(ctx context.Context, task *Task) error {
	if task == nil {
		return ErrPayloadNil
	}
	if _, err := s.tasks.InsertOne(ctx, toDocument(task)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrTaskExists
		}
		return err
	}
	return nil
}

func (s *MongoStorage) ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error) {
	now := time.Now()
	filter := bson.D{
		{Key: "queue", Value: bson.D{{Key: "$in", Value: queues}}},
		{Key: "$or", Value: bson.A{
			bson.D{
				{Key: "status", Value: TaskStatusPending},
				{Key: "scheduled_at", Value: bson.D{{Key: "$lte", Value: now}}},
			},
			bson.D{
				{Key: "status", Value: TaskStatusProcessing},
				{Key: "locked_until", Value: bson.D{{Key: "$lt", Value: now}}},
			},
		}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: TaskStatusProcessing},
		{Key: "locked_until", Value: now.Add(lockDuration)},
		{Key: "locked_by", Value: workerID.String()},
	}}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "priority", Value: -1}, {Key: "scheduled_at", Value: 1}}).
		SetReturnDocument(options.After)

	var doc taskDocument
	if err := s.tasks.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoTaskToClaim
		}
		return nil, err
	}
	return doc.task()
}

func (s *MongoStorage) CompleteTask(ctx context.Context, taskID uuid.UUID) error {
	return s.updateProcessing(ctx, taskID, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "status", Value: TaskStatusCompleted},
			{Key: "processed_at", Value: time.Now()},
		}},
		{Key: "$unset", Value: bson.D{{Key: "locked_until", Value: ""}, {Key: "locked_by", Value: ""}}},
	})
}

func (s *MongoStorage) FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string, retryAt time.Time) error {
	return s.updateProcessing(ctx, taskID, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "status", Value: TaskStatusPending},
			{Key: "error", Value: errorMsg},
			{Key: "scheduled_at", Value: retryAt},
		}},
		{Key: "$inc", Value: bson.D{{Key: "retry_count", Value: 1}}},
		{Key: "$unset", Value: bson.D{{Key: "locked_until", Value: ""}, {Key: "locked_by", Value: ""}}},
	})
}

func (s *MongoStorage) MoveToDLQ(ctx context.Context, taskID uuid.UUID, errorMsg string) error {
	var doc taskDocument
	if err := s.tasks.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: taskID.String()}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrTaskNotFound
		}
		return err
	}

	task, err := doc.task()
	if err != nil {
		return err
	}
	task.Error = &errorMsg
	dl := newDeadLetter(task)

	_, err = s.dlq.InsertOne(ctx, bson.D{
		{Key: "_id", Value: dl.ID.String()},
		{Key: "task_id", Value: dl.TaskID.String()},
		{Key: "queue", Value: dl.Queue},
		{Key: "task_name", Value: dl.TaskName},
		{Key: "payload", Value: dl.Payload},
		{Key: "error", Value: dl.Error},
		{Key: "retry_count", Value: dl.RetryCount},
		{Key: "failed_at", Value: dl.FailedAt},
	})
	return err
}

func (s *MongoStorage) updateProcessing(ctx context.Context, taskID uuid.UUID, update bson.D) error {
	res, err := s.tasks.UpdateOne(ctx, bson.D{
		{Key: "_id", Value: taskID.String()},
		{Key: "status", Value: TaskStatusProcessing},
	}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrTaskNotClaimed
	}
	return nil
}
