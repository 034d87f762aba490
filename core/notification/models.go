package notification

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// Notification is addressed to a single profile id, whatever the role
// behind it.
type Notification struct {
	ID          string    `json:"id" db:"id"`
	RecipientID string    `json:"recipient_id" db:"recipient_id"`
	Title       string    `json:"title" db:"title"`
	Body        string    `json:"body" db:"body"`
	Read        bool      `json:"read" db:"read"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type NewNotification struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Body        string `json:"body" validate:"required"`
	Email       bool   `json:"email"` // also send a copy by email
}

func (nn *NewNotification) Validate(validate *validator.Validate) error {
	nn.RecipientID = core.CleanString(nn.RecipientID)
	nn.Title = core.CleanString(nn.Title)
	return validate.Struct(nn)
}

type Broadcast struct {
	RecipientIDs []string `json:"recipient_ids" validate:"required,min=1,dive,required"`
	Title        string   `json:"title" validate:"required"`
	Body         string   `json:"body" validate:"required"`
	Email        bool     `json:"email"`
}

func (b *Broadcast) Validate(validate *validator.Validate) error {
	for i, id := range b.RecipientIDs {
		b.RecipientIDs[i] = core.CleanString(id)
	}
	b.Title = core.CleanString(b.Title)
	return validate.Struct(b)
}
