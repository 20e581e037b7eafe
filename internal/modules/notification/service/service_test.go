package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"scholarhub.app/scholarhub/internal/model"
	"scholarhub.app/scholarhub/pkg/apperror"
)

type fakeNotificationRepo struct {
	byID    map[uuid.UUID]*model.Notification
	created int
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{byID: make(map[uuid.UUID]*model.Notification)}
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	f.created++
	n.ID = uuid.New()
	f.byID[n.ID] = n
	return nil
}

func (f *fakeNotificationRepo) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range f.byID {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) MarkAsRead(ctx context.Context, userID, id uuid.UUID) (int64, error) {
	n, ok := f.byID[id]
	if !ok || n.UserID != userID {
		return 0, nil
	}
	n.IsRead = true
	return 1, nil
}

func (f *fakeNotificationRepo) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	for _, n := range f.byID {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (f *fakeNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	for _, n := range f.byID {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func TestChannelFor(t *testing.T) {
	uid := uuid.New()
	want := "user_notifications:" + uid.String()
	if got := ChannelFor(uid); got != want {
		t.Fatalf("ChannelFor = %q, want %q", got, want)
	}
}

func TestMarkAsReadScopedToOwner(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo, nil)
	ctx := context.Background()

	owner := uuid.New()
	n := &model.Notification{UserID: owner, Type: model.NotifSystemAlert, Title: "hi"}
	if err := svc.CreateNotification(ctx, n); err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}

	// Another user cannot flip someone else's notification
	if err := svc.MarkAsRead(ctx, uuid.New(), n.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("cross-user MarkAsRead = %v, want ErrNotFound", err)
	}

	if err := svc.MarkAsRead(ctx, owner, n.ID); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}

	count, err := svc.UnreadCount(ctx, owner)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("unread = %d, want 0", count)
	}
}

func TestMarkAsReadUnknownIDIsNotFound(t *testing.T) {
	svc := NewNotificationService(newFakeNotificationRepo(), nil)
	err := svc.MarkAsRead(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
