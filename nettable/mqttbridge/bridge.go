// Package mqttbridge mirrors a nettable.Store onto an MQTT broker: telemetry is published and
// commands are taken from subscribed topics.
package mqttbridge

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/nettable"
	"go.viam.com/sysid/utils"
)

// DefaultTopicPrefix is used when Options.TopicPrefix is empty.
const DefaultTopicPrefix = "sysid"

// commandTypes are the entries taken from the broker and their types.
var commandTypes = map[string]nettable.ValueType{
	nettable.KeyAutospeed: nettable.TypeNumber,
	nettable.KeyRotate:    nettable.TypeBoolean,
	nettable.KeyMode:      nettable.TypeString,
}

// Options configures a Bridge.
type Options struct {
	TopicPrefix string
	QoS         byte
	// PublishKeys are mirrored to the broker. Defaults to the telemetry key.
	PublishKeys      []string
	SubscriberBuffer int
	// Timeout bounds every broker round trip.
	Timeout time.Duration
}

// A Bridge connects a store to an MQTT client.
type Bridge struct {
	client mqtt.Client
	store  *nettable.Store
	opts   Options
	logger logging.Logger

	publish   map[string]bool
	workers   utils.StoppableWorkers
	cancelSub func()
	published atomic.Uint64
	ignored   atomic.Uint64
}

// New returns a bridge. Commands cannot also be published, since they would echo back.
func New(client mqtt.Client, store *nettable.Store, opts Options, logger logging.Logger) (*Bridge, error) {
	if opts.TopicPrefix == "" {
		opts.TopicPrefix = DefaultTopicPrefix
	}
	opts.TopicPrefix = strings.TrimSuffix(opts.TopicPrefix, "/")
	if opts.QoS > 2 {
		return nil, errors.Errorf("invalid qos %d", opts.QoS)
	}
	if len(opts.PublishKeys) == 0 {
		opts.PublishKeys = []string{nettable.KeyTelemetry}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	publish := make(map[string]bool, len(opts.PublishKeys))
	for _, key := range opts.PublishKeys {
		if _, ok := commandTypes[key]; ok {
			return nil, errors.Errorf("cannot publish command key %q", key)
		}
		publish[key] = true
	}
	return &Bridge{
		client:  client,
		store:   store,
		opts:    opts,
		logger:  logger,
		publish: publish,
	}, nil
}

// Topic returns the broker topic of a key.
func (b *Bridge) Topic(key string) string {
	return b.opts.TopicPrefix + "/" + key
}

func (b *Bridge) wait(token mqtt.Token, what string) error {
	if !token.WaitTimeout(b.opts.Timeout) {
		return errors.Errorf("timed out waiting to %s", what)
	}
	return errors.Wrapf(token.Error(), "failed to %s", what)
}

// Start connects if needed, subscribes to the command topics and starts publishing.
func (b *Bridge) Start(ctx context.Context) error {
	if !b.client.IsConnected() {
		if err := b.wait(b.client.Connect(), "connect"); err != nil {
			return err
		}
	}

	filters := make(map[string]byte, len(commandTypes))
	for key := range commandTypes {
		filters[b.Topic(key)] = b.opts.QoS
	}
	if err := b.wait(b.client.SubscribeMultiple(filters, b.handle), "subscribe"); err != nil {
		return err
	}

	_, updates, cancel, err := b.store.Subscribe(b.opts.SubscriberBuffer)
	if err != nil {
		return err
	}
	b.cancelSub = cancel
	b.workers = utils.NewStoppableWorkersWithContext(ctx, func(ctx context.Context) {
		b.publishLoop(ctx, updates)
	})
	b.logger.Infow("mqtt bridge started", "prefix", b.opts.TopicPrefix)
	return nil
}

func (b *Bridge) publishLoop(ctx context.Context, updates <-chan nettable.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if !b.publish[u.Key] {
				continue
			}
			if err := b.publishUpdate(u); err != nil {
				b.logger.Warnw("cannot publish update", "key", u.Key, "error", err)
			}
		}
	}
}

func (b *Bridge) publishUpdate(u nettable.Update) error {
	msg, err := nettable.MessageFromUpdate(u)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := b.wait(b.client.Publish(b.Topic(u.Key), b.opts.QoS, false, payload), "publish"); err != nil {
		return err
	}
	b.published.Inc()
	return nil
}

// handle applies a command received from the broker. Malformed payloads are ignored.
func (b *Bridge) handle(_ mqtt.Client, msg mqtt.Message) {
	key := strings.TrimPrefix(msg.Topic(), b.opts.TopicPrefix+"/")
	vt, ok := commandTypes[key]
	if !ok {
		b.ignored.Inc()
		b.logger.Debugw("ignoring message on unknown topic", "topic", msg.Topic())
		return
	}
	v, err := nettable.DecodeValue(vt, msg.Payload())
	if err != nil {
		b.ignored.Inc()
		b.logger.Warnw("ignoring malformed command", "topic", msg.Topic(), "error", err)
		return
	}
	if err := b.store.Set(key, v); err != nil {
		b.logger.Warnw("cannot apply command", "key", key, "error", err)
	}
}

// Published returns how many updates reached the broker.
func (b *Bridge) Published() uint64 {
	return b.published.Load()
}

// Ignored returns how many received messages were dropped.
func (b *Bridge) Ignored() uint64 {
	return b.ignored.Load()
}

// Close stops publishing, unsubscribes and disconnects.
func (b *Bridge) Close() error {
	if b.cancelSub != nil {
		b.cancelSub()
	}
	if b.workers != nil {
		b.workers.Stop()
	}
	topics := make([]string, 0, len(commandTypes))
	for key := range commandTypes {
		topics = append(topics, b.Topic(key))
	}
	err := b.wait(b.client.Unsubscribe(topics...), "unsubscribe")
	b.client.Disconnect(250)
	return err
}
