package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core/notification"
)

type notificationTable struct {
	notifs map[string]*notification.Notification
}

func newNotificationTable() *notificationTable {
	return &notificationTable{notifs: make(map[string]*notification.Notification)}
}

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) Create(ctx context.Context, notifs ...notification.Notification) ([]notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	out := make([]notification.Notification, 0, len(notifs))
	for _, notif := range notifs {
		notif := notif
		notif.ID = repo.db.nextPK("notif")
		repo.db.notif.notifs[notif.ID] = &notif
		out = append(out, notif)
	}
	return out, nil
}

func (repo *notificationRepository) ByRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	notifs := make([]notification.Notification, 0)
	for _, notif := range repo.db.notif.notifs {
		if notif.RecipientID == recipientID && (!unreadOnly || !notif.Read) {
			notifs = append(notifs, *notif)
		}
	}
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].CreatedAt.After(notifs[j].CreatedAt) })
	return notifs, nil
}

func (repo *notificationRepository) Get(ctx context.Context, id, recipientID string) (notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if notif, ok := repo.db.notif.notifs[id]; ok && notif.RecipientID == recipientID {
		return *notif, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) MarkRead(ctx context.Context, id, recipientID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	notif, ok := repo.db.notif.notifs[id]
	if !ok || notif.RecipientID != recipientID {
		return notification.ErrNotFound
	}
	notif.Read = true
	return nil
}
