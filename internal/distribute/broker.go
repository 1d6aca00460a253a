// internal/distribute/broker.go
package distribute

import (
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/tamzrod/reader-provisioner/internal/logger"
)

// BrokerConfig is what Connect needs to reach the MQTT broker.
type BrokerConfig struct {
	URL            string // tcp://host:port, ssl://..., ws://...
	ClientIDPrefix string
	Username       string
	Password       string
	Timeout        time.Duration
}

// Broker is a connected paho client.
type Broker struct {
	client  mqtt.Client
	timeout time.Duration
	log     *logger.Logger

	mu   sync.Mutex
	subs map[string]subscription
}

type subscription struct {
	qos     byte
	handler mqtt.MessageHandler
}

// ClientID returns <prefix>-<8 hex chars>.
func ClientID(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// Connect dials the broker and waits for the connection.
// Subscriptions made through Subscribe are restored on reconnect.
func Connect(cfg BrokerConfig, logg *logger.Logger) (*Broker, error) {
	if cfg.URL == "" {
		return nil, errors.New("distribute: broker url required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logg == nil {
		logg = logger.Nop()
	}

	clientID := ClientID(cfg.ClientIDPrefix)
	log := logg.With("service", "Broker", "client_id", clientID)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetConnectTimeout(cfg.Timeout).
		SetOrderMatters(false)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("mqtt connection lost", "error", err)
	})

	b := &Broker{timeout: cfg.Timeout, log: log, subs: make(map[string]subscription)}
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		log.Info("mqtt connected", "broker", cfg.URL)
		b.resubscribe(c)
	})
	b.client = mqtt.NewClient(opts)

	tok := b.client.Connect()
	if !tok.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("distribute: connect %s: timeout after %s", cfg.URL, cfg.Timeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("distribute: connect %s: %w", cfg.URL, err)
	}
	return b, nil
}

// Publish sends payload and waits for the broker acknowledgement.
func (b *Broker) Publish(topic string, qos byte, retained bool, payload []byte) error {
	tok := b.client.Publish(topic, qos, retained, payload)
	if !tok.WaitTimeout(b.timeout) {
		return fmt.Errorf("distribute: publish %s: timeout", topic)
	}
	return tok.Error()
}

// Subscribe registers handler for topic. Handlers run on paho's goroutines.
func (b *Broker) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	h := func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	}

	b.mu.Lock()
	b.subs[topic] = subscription{qos: qos, handler: h}
	b.mu.Unlock()

	tok := b.client.Subscribe(topic, qos, h)
	if !tok.WaitTimeout(b.timeout) {
		return fmt.Errorf("distribute: subscribe %s: timeout", topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("distribute: subscribe %s: %w", topic, err)
	}
	b.log.Debug("mqtt subscribed", "topic", topic)
	return nil
}

// resubscribe restores subscriptions after a reconnect. Clean sessions drop them.
func (b *Broker) resubscribe(c mqtt.Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for topic, sub := range b.subs {
		tok := c.Subscribe(topic, sub.qos, sub.handler)
		go func(topic string) {
			if tok.WaitTimeout(b.timeout) && tok.Error() != nil {
				b.log.Error("mqtt resubscribe failed", "topic", topic, "error", tok.Error())
			}
		}(topic)
	}
}

// Close disconnects, allowing 250ms for in-flight work.
func (b *Broker) Close() {
	b.client.Disconnect(250)
}
