package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/smazurov/glyphnode/internal/logging"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultOpTimeout      = 5 * time.Second
	defaultKeepAlive      = 60 * time.Second
	defaultMaxReconnect   = 30 * time.Second
	disconnectQuiesce     = 500 // milliseconds
)

// Config holds broker connection settings.
type Config struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Username string
	Password string
	Prefix   string
	QoS      byte
}

// MessageHandler receives one message. Returned errors are logged.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client is a paho MQTT client that restores its subscriptions after every
// reconnect and recovers from handler panics.
type Client struct {
	client pahomqtt.Client
	cfg    Config
	topics Topics
	logger *slog.Logger

	subMu sync.RWMutex
	subs  map[string]subscription

	connMu    sync.RWMutex
	connected bool
}

// Connect dials the broker. The availability topic is set to "online" on
// every connect and to "offline" by the broker's will.
func Connect(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("%w: no broker configured", ErrConnectionFailed)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultPrefix
	}
	if cfg.QoS > 2 {
		cfg.QoS = 1
	}
	if logger == nil {
		logger = logging.GetLogger("mqtt")
	}

	c := &Client{
		cfg:    cfg,
		topics: Topics{Prefix: cfg.Prefix},
		logger: logger,
		subs:   make(map[string]subscription),
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(defaultMaxReconnect)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	// Commands may block on admission; let them run concurrently.
	opts.SetOrderMatters(false)
	opts.SetWill(c.topics.Availability(), "offline", 1, true)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.setConnected(false)
		c.logger.Warn("MQTT connection lost", "error", err)
	})
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		c.logger.Debug("MQTT reconnecting")
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// OnConnect runs asynchronously and may not have fired yet.
	c.setConnected(true)
	c.logger.Info("Connected to MQTT broker", "broker", cfg.Broker, "client_id", cfg.ClientID)
	return c, nil
}

func (c *Client) handleConnect() {
	c.setConnected(true)

	c.subMu.RLock()
	for topic, sub := range c.subs {
		c.client.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))
	}
	c.subMu.RUnlock()

	c.client.Publish(c.topics.Availability(), 1, true, "online")
	c.logger.Debug("MQTT session established")
}

func (c *Client) setConnected(v bool) {
	c.connMu.Lock()
	c.connected = v
	c.connMu.Unlock()
}

// IsConnected reports the last known connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// Publish sends payload on topic with the configured QoS.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, c.cfg.QoS, retained, payload)
	if !token.WaitTimeout(defaultOpTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultOpTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Subscribe registers handler for topic. The subscription survives
// reconnects.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	c.subs[topic] = subscription{qos: c.cfg.QoS, handler: handler}
	c.subMu.Unlock()

	token := c.client.Subscribe(topic, c.cfg.QoS, c.wrapHandler(handler))
	err := waitToken(token, ErrSubscribeFailed)
	if err != nil {
		c.subMu.Lock()
		delete(c.subs, topic)
		c.subMu.Unlock()
	}
	return err
}

// Unsubscribe removes the subscription for topic.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	c.subMu.Lock()
	delete(c.subs, topic)
	c.subMu.Unlock()

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return waitToken(c.client.Unsubscribe(topic), ErrUnsubscribeFailed)
}

// Close publishes "offline" and disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() {
		token := c.client.Publish(c.topics.Availability(), 1, true, "offline")
		token.WaitTimeout(defaultOpTimeout)
	}
	c.client.Disconnect(disconnectQuiesce)
	c.setConnected(false)
	c.logger.Info("MQTT client disconnected")
	return nil
}

func waitToken(token pahomqtt.Token, sentinel error) error {
	if !token.WaitTimeout(defaultOpTimeout) {
		return fmt.Errorf("%w: timeout after %v", sentinel, defaultOpTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}

func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.logger.Warn("MQTT handler failed", "topic", msg.Topic(), "error", err)
		}
	}
}
