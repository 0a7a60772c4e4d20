// Package scheduler runs the periodic reconciliation job: reminder
// notifications for followers and status transitions for posts.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/berprestasi/lomba-api/events"
	models "github.com/berprestasi/lomba-api/models"
	"github.com/berprestasi/lomba-api/repository"
)

// ConcludeAfter is how long a post stays in progress after its pelaksanaan.
const ConcludeAfter = 24 * time.Hour

var (
	remindersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lomba_reminders_created_total",
			Help: "Reminder notifications inserted by the reconciliation job",
		},
		[]string{"type"},
	)
	statusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lomba_post_status_transitions_total",
			Help: "Posts moved to a new status by the reconciliation job",
		},
		[]string{"status"},
	)
)

type Mailer interface {
	SendEmail(ctx context.Context, to, toName, subject, body string) error
}

type Reconciler struct {
	Posts         repository.PostStore
	Notifications repository.NotificationStore
	Users         repository.UserStore
	Publisher     events.Publisher
	// Mailer is optional.
	Mailer   Mailer
	Location *time.Location
	Now      func() time.Time
	Log      *slog.Logger
}

type ReminderResult struct {
	Upcoming int `json:"upcoming"`
	Today    int `json:"today"`
}

type StatusResult struct {
	Started   int64 `json:"started"`
	Concluded int64 `json:"concluded"`
}

type Result struct {
	Reminders ReminderResult `json:"reminders"`
	Statuses  StatusResult   `json:"statuses"`
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Reconciler) location() *time.Location {
	if r.Location != nil {
		return r.Location
	}
	return time.UTC
}

func (r *Reconciler) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

// Windows returns the reminder windows for now. Upcoming covers the next 24
// hours; today covers what is left of the current calendar day in loc, so a
// post starting tonight gets both reminders.
func Windows(now time.Time, loc *time.Location) (today, upcoming [2]time.Time) {
	local := now.In(loc)
	endOfToday := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)

	today = [2]time.Time{now, endOfToday}
	upcoming = [2]time.Time{now, now.Add(24 * time.Hour)}
	return today, upcoming
}

// SendReminders creates one notification per follower for posts starting
// today or within the next day. Existing reminders are left alone.
func (r *Reconciler) SendReminders(ctx context.Context) (ReminderResult, error) {
	var result ReminderResult
	today, upcoming := Windows(r.now(), r.location())

	n, err := r.remind(ctx, upcoming, models.NotificationUpcoming, models.UpcomingMessage)
	result.Upcoming = n
	if err != nil {
		return result, fmt.Errorf("upcoming reminders: %w", err)
	}

	n, err = r.remind(ctx, today, models.NotificationToday, models.TodayMessage)
	result.Today = n
	if err != nil {
		return result, fmt.Errorf("today reminders: %w", err)
	}
	return result, nil
}

func (r *Reconciler) remind(ctx context.Context, window [2]time.Time, kind models.NotificationType, message func(string) string) (int, error) {
	if !window[0].Before(window[1]) {
		return 0, nil
	}

	posts, err := r.Posts.FindScheduled(ctx, window[0], window[1], models.StatusBelumDilaksanakan)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, post := range posts {
		for _, follower := range post.Followers {
			now := r.now()
			n := &models.Notification{
				UserID:    follower,
				PostID:    post.ID,
				Message:   message(post.Title),
				Type:      kind,
				CreatedAt: now,
				UpdatedAt: now,
			}
			inserted, err := r.Notifications.CreateIfAbsent(ctx, n)
			if err != nil {
				r.logger().Error("create reminder", "post_id", post.ID, "user_id", follower, "error", err)
				continue
			}
			if !inserted {
				continue
			}

			created++
			remindersCreated.WithLabelValues(string(kind)).Inc()
			r.deliver(ctx, n, post.Title)
		}
	}
	return created, nil
}

// deliver pushes a fresh notification to NATS and, when configured, email.
// Failures are logged only.
func (r *Reconciler) deliver(ctx context.Context, n *models.Notification, title string) {
	if r.Publisher != nil {
		if err := r.Publisher.PublishNotification(n); err != nil {
			r.logger().Warn("publish notification", "user_id", n.UserID, "error", err)
		}
	}
	if r.Mailer == nil || r.Users == nil {
		return
	}

	user, err := r.Users.FindByID(ctx, n.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			r.logger().Warn("load reminder recipient", "user_id", n.UserID, "error", err)
		}
		return
	}
	body := "<p>" + html.EscapeString(n.Message) + "</p>"
	if err := r.Mailer.SendEmail(ctx, user.Email, user.Name, "Pengingat: "+title, body); err != nil {
		r.logger().Warn("send reminder email", "user_id", n.UserID, "error", err)
	}
}

// UpdateStatuses concludes overdue posts before starting due ones, so a
// post found overdue on its first scan still spends one tick in progress.
func (r *Reconciler) UpdateStatuses(ctx context.Context) (StatusResult, error) {
	var result StatusResult
	now := r.now()

	concluded, err := r.Posts.ConcludeOverdue(ctx, now.Add(-ConcludeAfter), now)
	if err != nil {
		return result, fmt.Errorf("conclude overdue posts: %w", err)
	}
	result.Concluded = concluded
	statusTransitions.WithLabelValues(string(models.StatusTelahDilaksanakan)).Add(float64(concluded))

	started, err := r.Posts.StartDue(ctx, now)
	if err != nil {
		return result, fmt.Errorf("start due posts: %w", err)
	}
	result.Started = started
	statusTransitions.WithLabelValues(string(models.StatusSedangDilaksanakan)).Add(float64(started))

	return result, nil
}

// Tick runs both scans. A failing scan is logged and does not stop the
// other one.
func (r *Reconciler) Tick(ctx context.Context) (Result, error) {
	var result Result
	var errs []error

	reminders, err := r.SendReminders(ctx)
	result.Reminders = reminders
	if err != nil {
		r.logger().Error("reminder scan failed", "error", err)
		errs = append(errs, err)
	}

	statuses, err := r.UpdateStatuses(ctx)
	result.Statuses = statuses
	if err != nil {
		r.logger().Error("status scan failed", "error", err)
		errs = append(errs, err)
	}

	r.logger().Info("reconciliation finished",
		"upcoming", reminders.Upcoming,
		"today", reminders.Today,
		"started", statuses.Started,
		"concluded", statuses.Concluded,
	)
	return result, errors.Join(errs...)
}
