// Package notify delivers best-effort push notifications about watering
// sessions. Delivery failures are logged, never raised.
package notify

import (
	"log"

	"github.com/gregdel/pushover"
)

// Priorities mirror Pushover semantics.
const (
	PriorityLow    = -1
	PriorityNormal = 0
	PriorityHigh   = 1
)

// Notifier is the notification boundary.
type Notifier interface {
	Notify(title, message string, priority int)
}

// Noop is used when no transport is configured.
type Noop struct{}

func (Noop) Notify(string, string, int) {}

// Pushover sends notifications through the Pushover API.
type Pushover struct {
	app       *pushover.Pushover
	recipient *pushover.Recipient
	device    string
	override  *int // configured priority overriding the caller's
}

func NewPushover(token, userKey, device string, priorityOverride *int) *Pushover {
	return &Pushover{
		app:       pushover.New(token),
		recipient: pushover.NewRecipient(userKey),
		device:    device,
		override:  priorityOverride,
	}
}

func (p *Pushover) Notify(title, message string, priority int) {
	if p.override != nil {
		priority = *p.override
	}
	msg := &pushover.Message{
		Title:      title,
		Message:    message,
		Priority:   priority,
		DeviceName: p.device,
	}
	if _, err := p.app.SendMessage(msg, p.recipient); err != nil {
		log.Printf("notify: pushover delivery failed: %v", err)
		return
	}
	log.Printf("notify: sent %q", title)
}
