package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"scholarhub.app/scholarhub/internal/model"
)

type fakeApplicationRepo struct {
	pending []model.Application
}

func (f *fakeApplicationRepo) Create(ctx context.Context, app *model.Application) error { return nil }
func (f *fakeApplicationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	return nil, nil
}
func (f *fakeApplicationRepo) FindByUserAndScholarship(ctx context.Context, userID, scholarshipID uuid.UUID) (*model.Application, error) {
	return nil, nil
}
func (f *fakeApplicationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Application, error) {
	return nil, nil
}
func (f *fakeApplicationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return nil
}
func (f *fakeApplicationRepo) CountAll(ctx context.Context) (int64, error) { return 0, nil }
func (f *fakeApplicationRepo) ListPendingWithDeadlineBefore(ctx context.Context, cutoff time.Time) ([]model.Application, error) {
	var out []model.Application
	for _, app := range f.pending {
		if app.Scholarship != nil && app.Scholarship.Deadline != nil && app.Scholarship.Deadline.Before(cutoff) {
			out = append(out, app)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	created []model.Notification
}

func (r *recordingNotifier) CreateNotification(ctx context.Context, n *model.Notification) error {
	r.created = append(r.created, *n)
	return nil
}
func (r *recordingNotifier) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, error) {
	return nil, nil
}
func (r *recordingNotifier) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error { return nil }
func (r *recordingNotifier) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error  { return nil }
func (r *recordingNotifier) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func pendingApp(title string, deadline time.Time) model.Application {
	return model.Application{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		ScholarshipID: uuid.New(),
		Status:        model.ApplicationPlanned,
		Scholarship:   &model.Scholarship{Title: title, Deadline: &deadline},
	}
}

func TestSweepEmitsWarningAndMissed(t *testing.T) {
	soon := time.Now().Add(48 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)
	farOff := time.Now().Add(60 * 24 * time.Hour)

	repo := &fakeApplicationRepo{pending: []model.Application{
		pendingApp("Closing Soon Grant", soon),
		pendingApp("Already Closed Grant", past),
		pendingApp("Distant Grant", farOff),
	}}
	notifier := &recordingNotifier{}
	sweeper := NewDeadlineSweeper(repo, notifier, nil, time.Hour)

	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if len(notifier.created) != 2 {
		t.Fatalf("notifications = %d, want 2 (the distant deadline stays quiet)", len(notifier.created))
	}

	byType := map[string]model.Notification{}
	for _, n := range notifier.created {
		byType[n.Type] = n
	}

	warning, ok := byType[model.NotifDeadlineWarning]
	if !ok {
		t.Fatal("no DEADLINE_WARNING emitted for the approaching deadline")
	}
	if warning.Link == nil || *warning.Link == "" {
		t.Fatal("warning notification carries no scholarship link")
	}

	if _, ok := byType[model.NotifDeadlineMissed]; !ok {
		t.Fatal("no DEADLINE_MISSED emitted for the passed deadline")
	}
}

func TestSweepSkipsApplicationsWithoutDeadline(t *testing.T) {
	app := model.Application{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Status:      model.ApplicationPlanned,
		Scholarship: &model.Scholarship{Title: "Rolling Admission Grant"},
	}
	repo := &fakeApplicationRepo{pending: []model.Application{app}}
	notifier := &recordingNotifier{}
	sweeper := NewDeadlineSweeper(repo, notifier, nil, time.Hour)

	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(notifier.created) != 0 {
		t.Fatalf("notifications = %d, want 0 for deadline-less scholarships", len(notifier.created))
	}
}
