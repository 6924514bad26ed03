package notify

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// PermissionState models the notification permission lifecycle:
// NotDetermined until the user decides, then Authorized or Denied.
type PermissionState string

const (
	PermissionNotDetermined PermissionState = "notDetermined"
	PermissionAuthorized    PermissionState = "authorized"
	PermissionDenied        PermissionState = "denied"
)

func ParsePermissionState(s string) (PermissionState, error) {
	switch PermissionState(s) {
	case PermissionNotDetermined, PermissionAuthorized, PermissionDenied:
		return PermissionState(s), nil
	}
	return "", fmt.Errorf("unknown permission state %q", s)
}

const (
	keyPermission   = "permission:"
	keyWelcomeSent  = "welcome:"
	keySettingsSeen = "settingsAlert:"
)

var welcomeMessages = []string{
	"It's great to have you here! Let's strengthen your memory.",
	"Let's improve your memory with daily exercises!",
	"Your journey to a sharper mind starts today!",
}

const reminderMessage = "New memory exercises are available! Strengthen your mind right now."

// Publisher is the delivery channel for notification events. The AMQP
// event publisher satisfies it.
type Publisher interface {
	Publish(eventType string, payload interface{}) error
}

// Status reports the scheduler's view of one user.
type Status struct {
	State          PermissionState `json:"state"`
	WelcomeSent    bool            `json:"welcome_sent"`
	ReminderActive bool            `json:"reminder_active"`
}

// Scheduler drives reminder notifications per user. On Authorized it
// sends the welcome message exactly once ever and starts the recurring
// reminder; on Denied it never prompts again once the settings alert has
// been dismissed.
type Scheduler struct {
	flags     FlagStore
	publisher Publisher
	interval  time.Duration
	logger    *slog.Logger

	mu        sync.Mutex
	reminders map[string]context.CancelFunc
}

func NewScheduler(flags FlagStore, publisher Publisher, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		flags:     flags,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
		reminders: make(map[string]context.CancelFunc),
	}
}

// ReportPermission records the user's permission decision and runs the
// matching transition. Authorized starts the reminder schedule; Denied
// only records the preference.
func (s *Scheduler) ReportPermission(ctx context.Context, userID string, state PermissionState) error {
	if err := s.flags.Set(ctx, keyPermission+userID, string(state)); err != nil {
		return err
	}
	if state == PermissionAuthorized {
		return s.HandlePermissionGranted(ctx, userID)
	}
	return nil
}

// HandlePermissionGranted sends the welcome message if this user has
// never received one, then starts the recurring reminder. Safe to call on
// every app launch; the persisted flag keeps the welcome at exactly once.
func (s *Scheduler) HandlePermissionGranted(ctx context.Context, userID string) error {
	created, err := s.flags.SetIfAbsent(ctx, keyWelcomeSent+userID)
	if err != nil {
		return err
	}
	if created {
		body := welcomeMessages[rand.Intn(len(welcomeMessages))]
		if err := s.publisher.Publish("recap.notify.welcome", map[string]interface{}{
			"user_id": userID,
			"body":    body,
		}); err != nil {
			s.logger.Warn("failed to send welcome notification", "user_id", userID, "error", err)
		}
	}
	s.startReminder(userID)
	return nil
}

// ShouldPromptSettings reports whether the "enable in settings" alert may
// be shown: only while denied, and never after the user dismissed it once.
func (s *Scheduler) ShouldPromptSettings(ctx context.Context, userID string) (bool, error) {
	state, err := s.permissionState(ctx, userID)
	if err != nil {
		return false, err
	}
	if state != PermissionDenied {
		return false, nil
	}
	seen, err := s.flags.Get(ctx, keySettingsSeen+userID)
	if err != nil {
		return false, err
	}
	return seen == "", nil
}

// MarkSettingsAlertSeen records that the user dismissed the settings
// alert, suppressing it permanently.
func (s *Scheduler) MarkSettingsAlertSeen(ctx context.Context, userID string) error {
	return s.flags.Set(ctx, keySettingsSeen+userID, "1")
}

func (s *Scheduler) Status(ctx context.Context, userID string) (*Status, error) {
	state, err := s.permissionState(ctx, userID)
	if err != nil {
		return nil, err
	}
	welcome, err := s.flags.Get(ctx, keyWelcomeSent+userID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	_, active := s.reminders[userID]
	s.mu.Unlock()
	return &Status{State: state, WelcomeSent: welcome != "", ReminderActive: active}, nil
}

func (s *Scheduler) permissionState(ctx context.Context, userID string) (PermissionState, error) {
	stored, err := s.flags.Get(ctx, keyPermission+userID)
	if err != nil {
		return "", err
	}
	if stored == "" {
		return PermissionNotDetermined, nil
	}
	return PermissionState(stored), nil
}

// startReminder launches the recurring reminder loop for a user. A second
// call for the same user is a no-op while the first loop runs.
func (s *Scheduler) startReminder(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.reminders[userID]; running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.reminders[userID] = cancel

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.publisher.Publish("recap.notify.reminder", map[string]interface{}{
					"user_id": userID,
					"body":    reminderMessage,
				}); err != nil {
					s.logger.Warn("failed to publish reminder", "user_id", userID, "error", err)
				}
			}
		}
	}()
}

// StopReminder cancels a user's reminder loop.
func (s *Scheduler) StopReminder(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.reminders[userID]; ok {
		cancel()
		delete(s.reminders, userID)
	}
}

// Close stops every reminder loop.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, cancel := range s.reminders {
		cancel()
		delete(s.reminders, userID)
	}
}
