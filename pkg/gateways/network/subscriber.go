package network

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
)

const BindingKeyAcknowledge = "alert.acknowledge"

type Acknowledger interface {
	Acknowledge(ctx context.Context, deviceID, key string) (bool, error)
}

type AckSubscriber struct {
	amqp     Messaging
	exchange string
	queue    string
}

func NewAckSubscriber(amqp Messaging, exchange, queue string) *AckSubscriber {
	return &AckSubscriber{amqp: amqp, exchange: exchange, queue: queue}
}

func (as *AckSubscriber) SubscribeToAcknowledgements(msgChan chan InMsg) error {
	return as.amqp.OnMessage(msgChan, as.queue, as.exchange, ExchangeTypeDirect, BindingKeyAcknowledge)
}

// HandleAcknowledgements applies every acknowledgement request received on
// msgChan until ctx is done or the channel is closed.
func HandleAcknowledgements(ctx context.Context, msgChan <-chan InMsg, acknowledger Acknowledger, log *logrus.Entry) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			handleAcknowledgement(ctx, msg, acknowledger, log)
		}
	}
}

func handleAcknowledgement(ctx context.Context, msg InMsg, acknowledger Acknowledger, log *logrus.Entry) {
	var request AcknowledgeRequest
	if err := json.Unmarshal(msg.Body, &request); err != nil || request.DeviceID == "" || request.AlertKey == "" {
		log.WithField("body", string(msg.Body)).Warnln("discarding invalid acknowledgement request")
		return
	}

	changed, err := acknowledger.Acknowledge(ctx, request.DeviceID, request.AlertKey)
	if err != nil {
		log.WithError(err).Errorf("failed to acknowledge %s of %s", request.AlertKey, request.DeviceID)
		return
	}
	if !changed {
		log.Debugf("alert %s of %s was already acknowledged", request.AlertKey, request.DeviceID)
	}
}
