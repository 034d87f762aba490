package notification

import (
	"context"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
)

type fakeRepo struct {
	notifs map[string]Notification
	nextID int
}

func newFakeRepo() *fakeRepo { return &fakeRepo{notifs: make(map[string]Notification)} }

func (r *fakeRepo) Create(ctx context.Context, notifs ...Notification) ([]Notification, error) {
	out := make([]Notification, 0, len(notifs))
	for _, n := range notifs {
		r.nextID++
		n.ID = "N" + string(rune('0'+r.nextID))
		r.notifs[n.ID] = n
		out = append(out, n)
	}
	return out, nil
}

func (r *fakeRepo) ByRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]Notification, error) {
	var out []Notification
	for _, n := range r.notifs {
		if n.RecipientID == recipientID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeRepo) Get(ctx context.Context, id, recipientID string) (Notification, error) {
	n, ok := r.notifs[id]
	if !ok || n.RecipientID != recipientID {
		return Notification{}, ErrNotFound
	}
	return n, nil
}

func (r *fakeRepo) MarkRead(ctx context.Context, id, recipientID string) error {
	n, ok := r.notifs[id]
	if !ok || n.RecipientID != recipientID {
		return ErrNotFound
	}
	n.Read = true
	r.notifs[id] = n
	return nil
}

type fakeBook map[string]mail.Address

func (b fakeBook) EmailFor(ctx context.Context, profileID string) (mail.Address, error) {
	addr, ok := b[profileID]
	if !ok {
		return mail.Address{}, ErrNotFound
	}
	return addr, nil
}

type fakeMailSvc struct{ sent []*core.EmailMessage }

func (m *fakeMailSvc) SendMessages(messages ...*core.EmailMessage) {
	m.sent = append(m.sent, messages...)
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

func TestBroadcast(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	book := fakeBook{"S1": {Name: "Amani", Address: "amani@test.shule.cd"}}
	mailSvc := &fakeMailSvc{}
	svc := NewService(repo, book, mailSvc, nopLogger{})

	// S2 has no known address; the broadcast still lands for both
	notifs, err := svc.Broadcast(ctx, Broadcast{
		RecipientIDs: []string{"S1", "S2"},
		Title:        "Term closes Friday",
		Body:         "Pick up reports at the office.",
		Email:        true,
	})
	require.NoError(t, err)
	assert.Len(t, notifs, 2)

	require.Len(t, mailSvc.sent, 1)
	assert.Equal(t, "Term closes Friday", mailSvc.sent[0].Subject)
	assert.Equal(t, "amani@test.shule.cd", mailSvc.sent[0].To[0].Address)

	mine, err := svc.ForRecipient(ctx, "S2", false)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.False(t, mine[0].Read)
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo, fakeBook{}, &fakeMailSvc{}, nopLogger{})

	notif, err := svc.Create(ctx, NewNotification{RecipientID: "S1", Title: "Hi", Body: "There"})
	require.NoError(t, err)

	// wrong recipient cannot ack it
	assert.Equal(t, ErrNotFound, svc.MarkRead(ctx, notif.ID, "S2"))

	require.NoError(t, svc.MarkRead(ctx, notif.ID, "S1"))
	unread, err := svc.ForRecipient(ctx, "S1", true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}
