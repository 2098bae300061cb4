package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store provides Redis-backed persistence for workflow state snapshots and a
// Pub/Sub mirror of workflow events. The store is thread-safe; state
// ownership is the engine's concern, not the store's.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a store from Redis connection options.
func NewStore(redisOpts *redis.Options) *Store {
	return &Store{rdb: redis.NewClient(redisOpts)}
}

// Close closes the Redis connection. Implements io.Closer.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// SaveState writes a workflow state snapshot wholesale. Validates before
// writing and registers the project id in the project set.
func (s *Store) SaveState(ctx context.Context, ws *WorkflowState) error {
	if err := ws.Validate(); err != nil {
		return fmt.Errorf("invalid workflow state: %w", err)
	}

	ws.UpdatedAtMs = time.Now().UnixMilli()

	hash, err := StateToHash(ws)
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}

	key := StateKey(ws.ProjectID)
	if err := s.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write state to Redis: %w", err)
	}

	if err := s.rdb.SAdd(ctx, ProjectsKey(), ws.ProjectID).Err(); err != nil {
		return fmt.Errorf("failed to register project: %w", err)
	}

	return nil
}

// LoadState retrieves a project's workflow state snapshot.
// Returns a NotFoundError if the project has no persisted state.
func (s *Store) LoadState(ctx context.Context, projectID string) (*WorkflowState, error) {
	key := StateKey(projectID)

	hashData, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read state from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys.
	if len(hashData) == 0 {
		return nil, &NotFoundError{Kind: "state", Name: projectID}
	}

	ws, err := HashToState(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize state: %w", err)
	}

	return ws, nil
}

// StateExists checks if a project has persisted state without fetching it.
func (s *Store) StateExists(ctx context.Context, projectID string) (bool, error) {
	exists, err := s.rdb.Exists(ctx, StateKey(projectID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check state existence: %w", err)
	}
	return exists > 0, nil
}

// ListProjects returns the ids of all projects with persisted state.
func (s *Store) ListProjects(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, ProjectsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return ids, nil
}

// PublishEvent mirrors a workflow event to the project's Pub/Sub channel.
// Delivery is at-most-once: a subscriber that is not listening at publish
// time never sees the event.
func (s *Store) PublishEvent(ctx context.Context, projectID string, event map[string]any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := s.rdb.Publish(ctx, EventsChannel(projectID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Subscription represents an active Pub/Sub subscription to a project's
// workflow events. Caller must call Close() when done.
type Subscription struct {
	events <-chan map[string]any
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of workflow events. The channel is closed when
// the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan map[string]any {
	return s.events
}

// Errors returns the channel of subscription errors. Errors are non-fatal;
// malformed messages are skipped and the subscription continues.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeEvents subscribes to a project's workflow events.
// Events are delivered on a buffered channel (size 16); a slow subscriber
// may miss events because Redis Pub/Sub is at-most-once.
func (s *Store) SubscribeEvents(ctx context.Context, projectID string) (*Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, EventsChannel(projectID))

	eventsChan := make(chan map[string]any, 16)
	errorsChan := make(chan error, 16)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event map[string]any
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
