package notification

import (
	"context"
	"errors"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var ErrNotFound = errors.New("notification not found")

type (
	Repository interface {
		Create(ctx context.Context, notifs ...Notification) ([]Notification, error)
		ByRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]Notification, error)
		// Get scopes the lookup to the recipient so a caller cannot read
		// or ack someone else's notification by id.
		Get(ctx context.Context, id, recipientID string) (Notification, error)
		MarkRead(ctx context.Context, id, recipientID string) error
	}

	// AddressBook resolves a profile id to its email address for fan-out.
	AddressBook interface {
		EmailFor(ctx context.Context, profileID string) (mail.Address, error)
	}

	Service struct {
		repo    Repository
		book    AddressBook
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(repo Repository, book AddressBook, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{repo: repo, book: book, mailSvc: mailSvc, logger: logger}
}

func (svc *Service) Create(ctx context.Context, nn NewNotification) (Notification, error) {
	notifs, err := svc.create(ctx, nn.Title, nn.Body, nn.Email, nn.RecipientID)
	if err != nil {
		return Notification{}, err
	}
	return notifs[0], nil
}

func (svc *Service) Broadcast(ctx context.Context, b Broadcast) ([]Notification, error) {
	return svc.create(ctx, b.Title, b.Body, b.Email, b.RecipientIDs...)
}

func (svc *Service) create(ctx context.Context, title, body string, email bool, recipientIDs ...string) ([]Notification, error) {
	now := time.Now().UTC()
	notifs := make([]Notification, 0, len(recipientIDs))
	for _, rid := range recipientIDs {
		notifs = append(notifs, Notification{
			RecipientID: rid,
			Title:       title,
			Body:        body,
			CreatedAt:   now,
		})
	}
	notifs, err := svc.repo.Create(ctx, notifs...)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "creating notifications")
	}
	if email {
		svc.fanOut(ctx, title, body, recipientIDs)
	}
	return notifs, nil
}

// fanOut emails a copy to every recipient with a known address. Email
// delivery is best effort; failures are logged, never returned.
func (svc *Service) fanOut(ctx context.Context, title, body string, recipientIDs []string) {
	var msgs []*core.EmailMessage
	for _, rid := range recipientIDs {
		addr, err := svc.book.EmailFor(ctx, rid)
		if err != nil {
			svc.logger.Warn("notification email skipped", "recipient", rid, "error", err.Error())
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:      []mail.Address{addr},
			Subject: title,
			BodyStr: body,
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}

func (svc *Service) ForRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]Notification, error) {
	notifs, err := svc.repo.ByRecipient(ctx, recipientID, unreadOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "listing notifications")
	}
	if notifs == nil {
		notifs = []Notification{}
	}
	return notifs, nil
}

func (svc *Service) MarkRead(ctx context.Context, id, recipientID string) error {
	if err := svc.repo.MarkRead(ctx, id, recipientID); err != nil {
		if pkgerrors.Cause(err) == ErrNotFound {
			return ErrNotFound
		}
		return pkgerrors.Wrap(err, "marking notification read")
	}
	return nil
}
