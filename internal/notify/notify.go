// Package notify keeps the short-lived toasts and the connection status
// indicator. It is a side channel: nothing here feeds back into party state.
package notify

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/stars-party/internal/metrics"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

const DefaultTTL = 3 * time.Second

type Toast struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Text    string    `json:"text"`
	Expires time.Time `json:"expires"`
}

// Center stacks toasts in arrival order and expires them after a fixed TTL.
type Center struct {
	ttl    time.Duration
	now    func() time.Time
	log    *zap.Logger
	toasts []Toast
	rev    uint64
}

func NewCenter(log *zap.Logger, ttl time.Duration, now func() time.Time) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Center{ttl: ttl, now: now, log: log}
}

func (c *Center) Push(level Level, text string) Toast {
	t := Toast{
		ID:      uuid.NewString(),
		Level:   level,
		Text:    text,
		Expires: c.now().Add(c.ttl),
	}
	c.toasts = append(c.toasts, t)
	c.rev++
	metrics.Notices.WithLabelValues(string(level)).Inc()

	switch level {
	case LevelError:
		c.log.Error("notice", zap.String("text", text))
	case LevelWarning:
		c.log.Warn("notice", zap.String("text", text))
	default:
		c.log.Info("notice", zap.String("level", string(level)), zap.String("text", text))
	}
	return t
}

// Dismiss removes a toast before it expires.
func (c *Center) Dismiss(id string) bool {
	for i, t := range c.toasts {
		if t.ID == id {
			c.toasts = append(c.toasts[:i], c.toasts[i+1:]...)
			c.rev++
			return true
		}
	}
	return false
}

// Expire drops every toast due at or before now and reports whether any were.
func (c *Center) Expire(now time.Time) bool {
	kept := c.toasts[:0]
	for _, t := range c.toasts {
		if now.Before(t.Expires) {
			kept = append(kept, t)
		}
	}
	changed := len(kept) != len(c.toasts)
	c.toasts = kept
	if changed {
		c.rev++
	}
	return changed
}

func (c *Center) Active() []Toast {
	out := make([]Toast, len(c.toasts))
	copy(out, c.toasts)
	return out
}

func (c *Center) Len() int { return len(c.toasts) }

// Rev changes whenever the set of active toasts does.
func (c *Center) Rev() uint64 { return c.rev }
