package network

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const defaultExpirationTime = "3600000"

// NotificationPublisher broadcasts notifications to a fanout exchange so any
// number of consumers can deliver or archive them.
type NotificationPublisher struct {
	amqp     Messaging
	exchange string
	deviceID string
	now      func() time.Time
}

func NewNotificationPublisher(amqp Messaging, exchange, deviceID string) *NotificationPublisher {
	return &NotificationPublisher{amqp: amqp, exchange: exchange, deviceID: deviceID, now: time.Now}
}

func (np *NotificationPublisher) Notify(ctx context.Context, title, body string) error {
	id := uuid.NewString()
	options := MessageOptions{
		MessageID:  id,
		Expiration: defaultExpirationTime,
	}

	message := NotificationMessage{
		ID:       id,
		DeviceID: np.deviceID,
		Title:    title,
		Body:     body,
		SentAt:   np.now().UTC(),
	}

	return np.amqp.PublishPersistentMessage(ctx, np.exchange, ExchangeTypeFanout, "", message, &options)
}
