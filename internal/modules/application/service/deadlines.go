package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"scholarhub.app/scholarhub/internal/model"
	"scholarhub.app/scholarhub/internal/modules/application/repository"
	notification "scholarhub.app/scholarhub/internal/modules/notification/service"
)

// warningWindow is how far ahead of a deadline the warning fires.
const warningWindow = 7 * 24 * time.Hour

// DeadlineSweeper periodically scans open applications against scholarship
// deadlines and emits DEADLINE_WARNING / DEADLINE_MISSED notifications.
// Redis SetNX keeps each application from being notified twice per phase.
type DeadlineSweeper struct {
	repo          repository.ApplicationRepository
	notifications notification.NotificationService
	redisClient   *redis.Client
	interval      time.Duration
}

func NewDeadlineSweeper(repo repository.ApplicationRepository, notifications notification.NotificationService, redisClient *redis.Client, interval time.Duration) *DeadlineSweeper {
	return &DeadlineSweeper{
		repo:          repo,
		notifications: notifications,
		redisClient:   redisClient,
		interval:      interval,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (d *DeadlineSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := d.Sweep(ctx); err != nil {
				log.Printf("deadline sweep failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Sweep performs one pass. Exported so tests and one-shot jobs can call it.
func (d *DeadlineSweeper) Sweep(ctx context.Context) error {
	now := time.Now()

	apps, err := d.repo.ListPendingWithDeadlineBefore(ctx, now.Add(warningWindow))
	if err != nil {
		return err
	}

	for i := range apps {
		app := &apps[i]
		if app.Scholarship == nil || app.Scholarship.Deadline == nil {
			continue
		}

		deadline := *app.Scholarship.Deadline
		if deadline.Before(now) {
			d.emitOnce(ctx, app, "missed", model.NotifDeadlineMissed,
				"Deadline missed",
				fmt.Sprintf("The deadline for %s passed on %s.", app.Scholarship.Title, deadline.Format("Jan 2, 2006")))
		} else {
			d.emitOnce(ctx, app, "warning", model.NotifDeadlineWarning,
				"Deadline approaching",
				fmt.Sprintf("The deadline for %s is %s.", app.Scholarship.Title, deadline.Format("Jan 2, 2006")))
		}
	}

	return nil
}

func (d *DeadlineSweeper) emitOnce(ctx context.Context, app *model.Application, phase, notifType, title, message string) {
	if d.redisClient != nil {
		key := fmt.Sprintf("deadline_notified:%s:%s", app.ID.String(), phase)
		// Keep the marker well past the deadline so restarts don't re-notify
		wasSet, err := d.redisClient.SetNX(ctx, key, "sent", 30*24*time.Hour).Result()
		if err != nil {
			log.Printf("deadline dedupe check failed for %s: %v", app.ID, err)
			return
		}
		if !wasSet {
			return
		}
	}

	link := "/scholarships/" + app.ScholarshipID.String()
	notif := &model.Notification{
		UserID:  app.UserID,
		Type:    notifType,
		Title:   title,
		Message: message,
		Link:    &link,
	}
	if err := d.notifications.CreateNotification(ctx, notif); err != nil {
		log.Printf("failed to create %s notification for application %s: %v", notifType, app.ID, err)
	}
}
