package store

import (
	"context"
	"errors"
	"fmt"

	"concerto-app/internal/domain/contacts"

	"gorm.io/gorm"
)

type Contacts struct {
	db *gorm.DB
}

func NewContacts(db *gorm.DB) *Contacts {
	return &Contacts{db: db}
}

func (s *Contacts) Create(ctx context.Context, c *contacts.Contact) error {
	err := s.db.WithContext(ctx).Create(c).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return contacts.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	return nil
}
