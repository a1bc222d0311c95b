// Package service implements the user business logic: validation, the
// read-through cache, and the mutation pipeline that keeps cache,
// notifications, and the event log in step with the store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/userhub/userhub/internal/cache"
	"github.com/userhub/userhub/internal/eventlog"
	"github.com/userhub/userhub/internal/metrics"
	"github.com/userhub/userhub/internal/model"
	"github.com/userhub/userhub/internal/notify"
	"github.com/userhub/userhub/internal/repository"
)

// Validation and lookup errors.
var (
	ErrNameRequired  = errors.New("name is required")
	ErrEmailRequired = errors.New("email is required")

	// Store errors surface unchanged so callers match one set.
	ErrUserNotFound = repository.ErrUserNotFound
	ErrEmailExists  = repository.ErrEmailExists
)

// Store is the persistent source of truth for users.
type Store interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context, filter repository.UserFilter, sort repository.UserSort) ([]*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id int64) error
}

// UserCache holds user snapshots keyed by id and email.
type UserCache interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	SetUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id int64, emails ...string) error
}

// Notifier broadcasts user change events.
type Notifier interface {
	Publish(ctx context.Context, topic notify.Topic, user *model.User) error
}

// EventLog records user change events durably.
type EventLog interface {
	Append(ctx context.Context, topic, key string, payload any) (string, error)
}

// UserService coordinates the store, cache, and change notifications.
type UserService struct {
	store    Store
	cache    UserCache
	notifier Notifier
	eventLog EventLog
	logger   *slog.Logger
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewUserService creates a UserService. The event log is optional; pass
// nil to skip durable change records.
func NewUserService(
	store Store,
	userCache UserCache,
	notifier Notifier,
	eventLog EventLog,
	logger *slog.Logger,
	recorder metrics.Recorder,
) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UserService{
		store:    store,
		cache:    userCache,
		notifier: notifier,
		eventLog: eventLog,
		logger:   logger.With("component", "service.user"),
		metrics:  recorder,
		now:      time.Now,
	}
}

// Create validates and persists a new user, then runs the side steps of
// the mutation pipeline. A side-step failure never fails the write.
func (s *UserService) Create(ctx context.Context, name, email string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return nil, ErrNameRequired
	}
	if email == "" {
		return nil, ErrEmailRequired
	}

	user := &model.User{
		Name:      name,
		Email:     email,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.metrics.IncUserCreated()
	s.publishChange(ctx, notify.TopicUserCreated, user)
	return user, nil
}

// Update applies a partial update. Empty name or email keeps the current
// value. Both the old and new email cache keys are invalidated so a
// renamed address cannot serve a stale snapshot.
func (s *UserService) Update(ctx context.Context, id int64, name, email string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldEmail := user.Email

	if name = strings.TrimSpace(name); name != "" {
		user.Name = name
	}
	if email = strings.TrimSpace(email); email != "" {
		user.Email = email
	}
	now := s.now().UTC()
	user.UpdatedAt = &now

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	s.metrics.IncUserUpdated()
	s.bestEffort(ctx, "invalidate user cache", func(ctx context.Context) error {
		return s.cache.DeleteUser(ctx, user.ID, oldEmail, user.Email)
	})
	s.publishChange(ctx, notify.TopicUserUpdated, user)
	return user, nil
}

// Delete removes a user. Deleting an unknown id is an error, never a
// silent no-op. The deleted snapshot is returned for the change event.
func (s *UserService) Delete(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteUser(ctx, id); err != nil {
		return nil, err
	}

	s.metrics.IncUserDeleted()
	s.bestEffort(ctx, "invalidate user cache", func(ctx context.Context) error {
		return s.cache.DeleteUser(ctx, id, user.Email)
	})
	s.publishChange(ctx, notify.TopicUserDeleted, user)
	return user, nil
}

// GetByID reads through the cache. A cache failure degrades to a store
// read; a store hit backfills the cache best-effort.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	cached, err := s.cache.GetUserByID(ctx, id)
	switch {
	case err == nil:
		s.metrics.IncUserCacheHit()
		return cached, nil
	case errors.Is(err, cache.ErrCacheMiss):
		s.metrics.IncUserCacheMiss()
	default:
		s.metrics.IncUserCacheMiss()
		s.logger.Warn("cache read failed, falling back to store", "user_id", id, "error", err)
	}

	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.bestEffort(ctx, "backfill user cache", func(ctx context.Context) error {
		return s.cache.SetUser(ctx, user)
	})
	return user, nil
}

// GetByEmail reads through the cache by email address.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	cached, err := s.cache.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		s.metrics.IncUserCacheHit()
		return cached, nil
	case errors.Is(err, cache.ErrCacheMiss):
		s.metrics.IncUserCacheMiss()
	default:
		s.metrics.IncUserCacheMiss()
		s.logger.Warn("cache read failed, falling back to store", "email", email, "error", err)
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	s.bestEffort(ctx, "backfill user cache", func(ctx context.Context) error {
		return s.cache.SetUser(ctx, user)
	})
	return user, nil
}

// List returns users from the store. Listings bypass the cache.
func (s *UserService) List(ctx context.Context, filter repository.UserFilter, sort repository.UserSort) ([]*model.User, error) {
	return s.store.ListUsers(ctx, filter, sort)
}

// changeRecord is the durable form of one mutation event.
type changeRecord struct {
	Topic string      `json:"topic"`
	User  *model.User `json:"user"`
}

// publishChange fans a committed mutation out to the specific topic, the
// aggregate user-changed topic, and the event log. Every leg is
// best-effort and independent.
func (s *UserService) publishChange(ctx context.Context, topic notify.Topic, user *model.User) {
	s.bestEffort(ctx, "publish "+string(topic), func(ctx context.Context) error {
		return s.notifier.Publish(ctx, topic, user)
	})
	s.bestEffort(ctx, "publish "+string(notify.TopicUserChanged), func(ctx context.Context) error {
		return s.notifier.Publish(ctx, notify.TopicUserChanged, user)
	})

	if s.eventLog != nil {
		s.bestEffort(ctx, "append event log", func(ctx context.Context) error {
			record := changeRecord{Topic: string(topic), User: user}
			_, err := s.eventLog.Append(ctx, eventlog.UserEventsTopic, strconv.FormatInt(user.ID, 10), record)
			return err
		})
	}
}
