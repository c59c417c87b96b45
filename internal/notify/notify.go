// Package notify sends desktop notifications when a run finishes.
package notify

import (
	"fmt"

	"github.com/gen2brain/beeep"
)

// Desktop delivers notifications through the OS notification service.
type Desktop struct {
	send func(title, message string) error
}

// NewDesktop returns a notifier backed by beeep.
func NewDesktop() *Desktop {
	return &Desktop{send: func(title, message string) error {
		return beeep.Notify(title, message, "")
	}}
}

// Notify shows a notification with the given title and body.
func (d *Desktop) Notify(title, body string) error {
	if err := d.send(title, body); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}
