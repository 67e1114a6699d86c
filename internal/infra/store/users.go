package store

import (
	"context"
	"errors"
	"fmt"

	"concerto-app/internal/domain/users"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

func (s *Users) Get(ctx context.Context, id string) (users.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return users.User{}, users.ErrNotFound
	}
	return s.first(ctx, "id = ?", id)
}

func (s *Users) FindByEmail(ctx context.Context, email string) (users.User, error) {
	return s.first(ctx, "email = ?", email)
}

func (s *Users) FindByGoogleSub(ctx context.Context, sub string) (users.User, error) {
	return s.first(ctx, "google_sub = ?", sub)
}

func (s *Users) first(ctx context.Context, query string, arg interface{}) (users.User, error) {
	var user users.User
	err := s.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return user, users.ErrNotFound
	}
	if err != nil {
		return user, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *Users) Create(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	err := s.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return users.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Users) Save(ctx context.Context, user *users.User) error {
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("save user %s: %w", user.ID, err)
	}
	return nil
}
