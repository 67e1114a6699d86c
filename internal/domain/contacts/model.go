package contacts

import (
	"errors"
	"time"
)

var ErrDuplicate = errors.New("contact already registered")

// Contact is a visitor request left through the public contact form.
type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	NomPrenom string    `gorm:"column:nom_prenom;not null;uniqueIndex" json:"nom_prenom"`
	Email     string    `gorm:"not null" json:"email"`
	Message   *string   `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Contact) TableName() string { return "client" }
