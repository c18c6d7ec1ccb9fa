package session

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/dental-api/pkg/email"
)

// ExpiredMessage is shown to the user when the expiry timer logs them out.
const ExpiredMessage = "Your session has expired. Please log in again."

const NoticeSessionExpired = "session_expired"

// Notice is a user-visible message produced by the session manager.
type Notice struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	UserID  string    `json:"user_id,omitempty"`
	Email   string    `json:"-"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

const defaultBoardSize = 50

// NoticeBoard queues notices until a client drains them.
type NoticeBoard struct {
	mu      sync.Mutex
	notices []Notice
	max     int
}

func NewNoticeBoard(max int) *NoticeBoard {
	if max <= 0 {
		max = defaultBoardSize
	}
	return &NoticeBoard{max: max}
}

func (b *NoticeBoard) Notify(_ context.Context, n Notice) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, n)
	if len(b.notices) > b.max {
		b.notices = b.notices[len(b.notices)-b.max:]
	}
	return nil
}

// DrainFor returns and forgets the notices addressed to userID, leaving the
// rest queued.
func (b *NoticeBoard) DrainFor(userID string) []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []Notice{}
	if userID == "" {
		return out
	}
	kept := b.notices[:0]
	for _, n := range b.notices {
		if n.UserID == userID {
			out = append(out, n)
		} else {
			kept = append(kept, n)
		}
	}
	b.notices = kept
	return out
}

// Drain returns and forgets every queued notice.
func (b *NoticeBoard) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notices
	b.notices = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}

type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, n Notice) error {
	l.logger.Info().
		Str("kind", n.Kind).
		Str("user_id", n.UserID).
		Msg(n.Message)
	return nil
}

// EmailNotifier mails the notice to the session's address.
type EmailNotifier struct {
	sender  email.Sender
	subject string
}

func NewEmailNotifier(sender email.Sender, subject string) *EmailNotifier {
	if subject == "" {
		subject = "Dental clinic session"
	}
	return &EmailNotifier{sender: sender, subject: subject}
}

func (e *EmailNotifier) Notify(ctx context.Context, n Notice) error {
	if n.Email == "" {
		return nil
	}
	return e.sender.Send(ctx, n.Email, e.subject, n.Message)
}

// MultiNotifier delivers to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n Notice) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
