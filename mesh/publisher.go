package mesh

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// DefaultPublishPrefix is used when neither config nor env set a prefix
const DefaultPublishPrefix = "tilemesh"

// Publisher publishes solve results to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	logger        *zap.Logger
	last          *Result
	mu            sync.RWMutex
}

// NewPublisher creates a result publisher. The prefix comes from
// MQTT_PUBLISH_PREFIX, then the prefix argument, then DefaultPublishPrefix.
// A nil client disables publishing.
func NewPublisher(client mqtt.Client, prefix string, logger *zap.Logger) *Publisher {
	if env := os.Getenv("MQTT_PUBLISH_PREFIX"); env != "" {
		prefix = env
	}
	if prefix == "" {
		prefix = DefaultPublishPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,
		retain:        true,
		logger:        logger,
	}
}

// Prefix returns the topic prefix in use
func (p *Publisher) Prefix() string {
	return p.publishPrefix
}

// PublishResult publishes a result to {prefix}/result (retained latest) and
// to {prefix}/runs/{runID}.
func (p *Publisher) PublishResult(r Result) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	if err := p.publish(fmt.Sprintf("%s/result", p.publishPrefix), p.retain, payload); err != nil {
		return err
	}
	if err := p.publish(fmt.Sprintf("%s/runs/%s", p.publishPrefix, r.RunID), false, payload); err != nil {
		return err
	}

	p.mu.Lock()
	p.last = &r
	p.mu.Unlock()

	p.logger.Info("published result",
		zap.String("runId", r.RunID),
		zap.Uint64("checksum", r.Checksum),
		zap.Int("roughness", r.Roughness))
	return nil
}

// PublishError publishes a failure notice to {prefix}/error
func (p *Publisher) PublishError(source string, solveErr error) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}
	payload, err := json.Marshal(map[string]interface{}{
		"source":    source,
		"error":     solveErr.Error(),
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshaling error notice: %w", err)
	}
	return p.publish(fmt.Sprintf("%s/error", p.publishPrefix), false, payload)
}

func (p *Publisher) publish(topic string, retain bool, payload []byte) error {
	token := p.client.Publish(topic, p.qos, retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// LastResult returns the last successfully published result
func (p *Publisher) LastResult() (Result, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return Result{}, false
	}
	return *p.last, true
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether the latest-result topic is retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}
