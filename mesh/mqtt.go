package mesh

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// CorpusHandler is called for every corpus message received.
// source names the topic; err is set when the payload could not be parsed.
type CorpusHandler func(source string, corpus Corpus, err error)

// MQTTClient manages the MQTT connection and the corpus subscription
type MQTTClient struct {
	client      mqtt.Client
	config      *Config
	handler     CorpusHandler
	logger      *zap.Logger
	isConnected bool
	done        chan struct{}
	closeOnce   sync.Once
	mu          sync.RWMutex
}

// corpusEnvelope is the JSON form of a corpus message
type corpusEnvelope struct {
	Source string `json:"source"`
	Corpus string `json:"corpus"`
}

// InitMQTT connects to the configured broker and subscribes to the corpus
// topic. If no broker is configured (env or file), MQTT is disabled and
// this returns nil.
func InitMQTT(config *Config, handler CorpusHandler, logger *zap.Logger) (*MQTTClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	broker := envOr("MQTT_BROKER", "")
	if broker == "" && config != nil {
		broker = config.MQTT.Broker
	}
	if broker == "" {
		logger.Info("MQTT disabled: MQTT_BROKER not set")
		return nil, nil
	}
	if config == nil || config.MQTT.CorpusTopic == "" {
		return nil, fmt.Errorf("MQTT enabled but mqtt.corpusTopic is not configured")
	}

	client := &MQTTClient{
		config:  config,
		handler: handler,
		logger:  logger,
		done:    make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)

	clientID := envOr("MQTT_CLIENT_ID", config.MQTT.ClientID)
	if clientID == "" {
		clientID = "tilemesh"
	}
	opts.SetClientID(clientID)

	if username := envOr("MQTT_USERNAME", config.MQTT.Username); username != "" {
		opts.SetUsername(username)
		opts.SetPassword(envOr("MQTT_PASSWORD", config.MQTT.Password))
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false) // keep the subscription across reconnects
	opts.SetOrderMatters(false)

	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)
	opts.SetReconnectingHandler(client.onReconnecting)

	client.client = mqtt.NewClient(opts)

	go client.connectWithRetry()

	return client, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// connectWithRetry attempts to connect with exponential backoff until it
// succeeds or the client is disconnected.
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		c.logger.Info("connecting to MQTT broker")

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				c.logger.Info("connected to MQTT broker")
				c.setConnected(true)
				return
			}
			c.logger.Warn("MQTT connection failed", zap.Error(token.Error()))
		} else {
			c.logger.Warn("MQTT connection timeout")
		}

		c.logger.Info("retrying MQTT connection", zap.Duration("delay", retryDelay))
		select {
		case <-c.done:
			return
		case <-time.After(retryDelay):
		}
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

// onConnect subscribes to the corpus topic whenever the connection is (re)established
func (c *MQTTClient) onConnect(client mqtt.Client) {
	c.setConnected(true)

	topic := c.config.MQTT.CorpusTopic
	c.logger.Info("subscribing to corpus topic", zap.String("topic", topic))
	token := client.Subscribe(topic, 0, c.createMessageHandler())
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		c.logger.Error("subscribe failed", zap.String("topic", topic), zap.Error(token.Error()))
	}
}

func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	c.logger.Warn("MQTT connection interrupted, auto-reconnect will retry", zap.Error(err))
	c.setConnected(false)
}

func (c *MQTTClient) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	c.logger.Info("MQTT reconnecting")
}

// createMessageHandler decodes corpus payloads and forwards them to the handler
func (c *MQTTClient) createMessageHandler() mqtt.MessageHandler {
	return func(client mqtt.Client, msg mqtt.Message) {
		payload := msg.Payload()
		c.logger.Debug("received corpus",
			zap.String("topic", msg.Topic()),
			zap.Int("bytes", len(payload)))

		source, corpus, err := DecodeCorpusPayload(payload, c.config.GetGlyphs())
		if source == "" {
			source = msg.Topic()
		}
		if err != nil {
			c.logger.Warn("decoding corpus failed", zap.String("source", source), zap.Error(err))
		}
		if c.handler != nil {
			c.handler(source, corpus, err)
		}
	}
}

// DecodeCorpusPayload accepts either the plain text corpus format or a JSON
// object {"source": "...", "corpus": "..."} carrying it.
func DecodeCorpusPayload(payload []byte, glyphs Glyphs) (string, Corpus, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env corpusEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return "", nil, fmt.Errorf("parsing JSON envelope: %w", err)
		}
		corpus, err := ParseCorpus([]byte(env.Corpus), glyphs)
		return env.Source, corpus, err
	}
	corpus, err := ParseCorpus(trimmed, glyphs)
	return "", corpus, err
}

// IsConnected returns true if the MQTT client is connected
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect stops connection attempts and closes the connection
func (c *MQTTClient) Disconnect() {
	c.closeOnce.Do(func() {
		if c.done != nil {
			close(c.done)
		}
	})
	if c.client != nil && c.client.IsConnected() {
		c.logger.Info("disconnecting from MQTT broker")
		c.client.Disconnect(250)
		c.setConnected(false)
	}
}

// GetClient returns the underlying MQTT client for publishing
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}

// newMQTTClientWithMock wraps a provided mqtt.Client, for tests
func newMQTTClientWithMock(client mqtt.Client, config *Config, handler CorpusHandler) *MQTTClient {
	return &MQTTClient{
		client:  client,
		config:  config,
		handler: handler,
		logger:  zap.NewNop(),
		done:    make(chan struct{}),
	}
}
