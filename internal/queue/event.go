// Package queue moves verification notices through RabbitMQ.  The
// Publisher stands in for the notifier inside the request path; the
// Consumer performs the actual delivery in the background.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/iliyamo/smartcity-intake/internal/model"
)

// NotificationQueue is the durable queue carrying NotificationEvent messages.
const NotificationQueue = "notifications.verified"

// NotificationEvent is published once a booking or admission is verified.
// It carries everything the consumer needs, so delivery never reads the
// database.
type NotificationEvent struct {
	Notification model.Notification `json:"notification"`
	PublishedAt  time.Time          `json:"published_at"`
}

func decodeEvent(body []byte) (NotificationEvent, error) {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return NotificationEvent{}, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Notification.Kind == "" || ev.Notification.Recipient == "" {
		return NotificationEvent{}, fmt.Errorf("event without kind or recipient")
	}
	return ev, nil
}
