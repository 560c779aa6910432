package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	ExchangeTypeDirect = "direct"
	ExchangeTypeFanout = "fanout"

	durable          = true
	deleteWhenUnused = false
	exclusive        = false
	noWait           = false
	internal         = false
	noAck            = true
	noLocal          = false
	consumerTag      = ""
)

var ErrNotConnected = errors.New("amqp channel is not open")

// Messaging is the broker surface used by the publisher and the subscriber.
type Messaging interface {
	Start() error
	Stop()
	OnMessage(msgChan chan InMsg, queueName, exchangeName, exchangeType, key string) error
	PublishPersistentMessage(ctx context.Context, exchange, exchangeType, key string, data interface{}, options *MessageOptions) error
}

type InMsg struct {
	Exchange      string
	RoutingKey    string
	CorrelationID string
	Headers       map[string]interface{}
	Body          []byte
}

// MessageOptions represents the message publishing options
type MessageOptions struct {
	MessageID     string
	CorrelationID string
	Expiration    string
}

// subscription is one OnMessage registration, replayed on every new connection.
type subscription struct {
	msgChan      chan InMsg
	queueName    string
	exchangeName string
	exchangeType string
	key          string
}

type AMQP struct {
	url               string
	connectTimeout    time.Duration
	mu                sync.RWMutex
	conn              *amqp.Connection
	channel           *amqp.Channel
	declaredExchanges map[string]struct{}
	subscriptions     []subscription
	consume           func(subscription) error
	stopped           bool
	log               *logrus.Entry
}

func NewAMQP(url string, connectTimeout time.Duration, log *logrus.Entry) *AMQP {
	a := &AMQP{
		url:               url,
		connectTimeout:    connectTimeout,
		declaredExchanges: map[string]struct{}{},
		log:               log,
	}
	a.consume = a.bindAndConsume
	return a
}

// Start connects with exponential backoff, giving up after the connect timeout.
func (a *AMQP) Start() error {
	connectBackOff := backoff.NewExponentialBackOff()
	connectBackOff.MaxElapsedTime = a.connectTimeout

	err := backoff.Retry(func() error {
		err := a.connect()
		if err != nil {
			a.log.WithError(err).Warnln("cannot connect to the broker, retrying")
		}
		return err
	}, connectBackOff)
	if err != nil {
		return errors.Wrap(err, "connecting to the broker")
	}

	a.log.Infoln("connected to the broker")
	go a.notifyWhenClosed()
	return nil
}

func (a *AMQP) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true

	if a.channel != nil {
		a.channel.Close()
	}
	if a.conn != nil && !a.conn.IsClosed() {
		a.conn.Close()
	}
}

// OnMessage forwards the deliveries of queueName to msgChan, also after the
// connection to the broker is re-established.
func (a *AMQP) OnMessage(msgChan chan InMsg, queueName, exchangeName, exchangeType, key string) error {
	sub := subscription{
		msgChan:      msgChan,
		queueName:    queueName,
		exchangeName: exchangeName,
		exchangeType: exchangeType,
		key:          key,
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.consume(sub); err != nil {
		return err
	}
	a.subscriptions = append(a.subscriptions, sub)
	return nil
}

func (a *AMQP) resubscribe() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, sub := range a.subscriptions {
		if err := a.consume(sub); err != nil {
			a.log.WithError(err).Errorf("failed to consume %s again after reconnection", sub.queueName)
			continue
		}
		a.log.Infof("consuming %s again", sub.queueName)
	}
}

func (a *AMQP) bindAndConsume(sub subscription) error {
	if a.channel == nil || a.channel.IsClosed() {
		return ErrNotConnected
	}

	if err := a.declareExchange(sub.exchangeName, sub.exchangeType); err != nil {
		return errors.Wrap(err, "declaring exchange")
	}
	if err := a.declareQueue(sub.queueName); err != nil {
		return errors.Wrap(err, "declaring queue")
	}
	if err := a.channel.QueueBind(sub.queueName, sub.key, sub.exchangeName, noWait, nil); err != nil {
		return errors.Wrap(err, "binding queue")
	}

	deliveries, err := a.channel.Consume(sub.queueName, consumerTag, noAck, exclusive, noLocal, noWait, nil)
	if err != nil {
		return errors.Wrap(err, "consuming queue")
	}

	go convertDeliveryToInMsg(deliveries, sub.msgChan)
	return nil
}

func (a *AMQP) PublishPersistentMessage(ctx context.Context, exchange, exchangeType, key string, data interface{}, options *MessageOptions) error {
	var messageID, corrID, expTime string
	if options != nil {
		messageID = options.MessageID
		corrID = options.CorrelationID
		expTime = options.Expiration
	}

	body, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "encoding JSON message")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.channel == nil || a.channel.IsClosed() {
		return ErrNotConnected
	}

	// Exchanges are declared once per connection.
	if _, ok := a.declaredExchanges[exchange]; !ok {
		if err := a.declareExchange(exchange, exchangeType); err != nil {
			return errors.Wrap(err, "declaring exchange")
		}
		a.declaredExchanges[exchange] = struct{}{}
	}

	err = a.channel.PublishWithContext(
		ctx,
		exchange,
		key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     messageID,
			CorrelationId: corrID,
			Timestamp:     time.Now(),
			Body:          body,
			Expiration:    expTime,
		},
	)
	return errors.Wrap(err, "publishing message in channel")
}

func (a *AMQP) notifyWhenClosed() {
	a.mu.RLock()
	closed := a.conn.NotifyClose(make(chan *amqp.Error, 1))
	a.mu.RUnlock()

	errReason := <-closed
	if errReason == nil {
		return
	}
	a.log.WithError(errReason).Warnln("broker connection closed")

	//randomized interval = RetryInterval * (random value in range [1 - RandomizationFactor, 1 + RandomizationFactor])
	reconnectionBackOff := backoff.NewExponentialBackOff()
	reconnectionBackOff.InitialInterval = 30 * time.Second
	reconnectionBackOff.MaxInterval = 5 * time.Minute
	reconnectionBackOff.Multiplier = 1.7
	reconnectionBackOff.MaxElapsedTime = 0

	reconnection := func() error {
		if a.isStopped() {
			return nil
		}
		if err := a.connect(); err != nil {
			a.log.WithError(err).Warnln("cannot reconnect to the broker, retrying")
			return err
		}
		a.log.Infoln("reconnection to the broker was successful")
		return nil
	}

	if err := backoff.Retry(reconnection, reconnectionBackOff); err != nil || a.isStopped() {
		return
	}
	a.resubscribe()
	go a.notifyWhenClosed()
}

func (a *AMQP) isStopped() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopped
}

func (a *AMQP) connect() error {
	conn, err := amqp.Dial(a.url)
	if err != nil {
		return err
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.conn = conn
	a.channel = channel
	a.declaredExchanges = map[string]struct{}{}
	return nil
}

func (a *AMQP) declareExchange(name, exchangeType string) error {
	return a.channel.ExchangeDeclare(
		name,
		exchangeType,
		durable,
		deleteWhenUnused,
		internal,
		noWait,
		nil, // arguments
	)
}

func (a *AMQP) declareQueue(name string) error {
	_, err := a.channel.QueueDeclare(
		name,
		durable,
		deleteWhenUnused,
		exclusive,
		noWait,
		nil, // arguments
	)
	return err
}

func convertDeliveryToInMsg(deliveries <-chan amqp.Delivery, outMsg chan InMsg) {
	for d := range deliveries {
		outMsg <- InMsg{d.Exchange, d.RoutingKey, d.CorrelationId, d.Headers, d.Body}
	}
}
