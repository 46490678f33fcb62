package mqttbus

import (
	"context"
	"log"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handler processes one inbound message. Errors are logged, never fatal to
// the subscription.
type Handler func(topic string, payload []byte) error

// Consumer subscribes to a topic filter and dispatches messages to a handler.
type Consumer struct {
	client  mqtt.Client
	topic   string
	handler Handler
}

func NewConsumer(client mqtt.Client, topic string, handler Handler) *Consumer {
	return &Consumer{client: client, topic: topic, handler: handler}
}

// Run subscribes at QoS 1 and blocks until ctx is cancelled, then
// unsubscribes.
func (c *Consumer) Run(ctx context.Context) {
	token := c.client.Subscribe(c.topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		if c.handler == nil {
			return
		}
		if err := c.handler(msg.Topic(), msg.Payload()); err != nil {
			log.Printf("mqttbus: handler error on %s: %v", msg.Topic(), err)
		}
	})
	if token.Wait() && token.Error() != nil {
		log.Printf("mqttbus: subscribe to %s failed: %v", c.topic, token.Error())
		return
	}
	log.Printf("mqttbus: subscribed to %s", c.topic)

	<-ctx.Done()

	unsub := c.client.Unsubscribe(c.topic)
	unsub.Wait()
}

// StateCache keeps the most recent payload seen on a state topic, typically a
// retained message published by the host automation platform.
type StateCache struct {
	mu      sync.RWMutex
	client  mqtt.Client
	topic   string
	payload []byte
}

// NewStateCache subscribes to the topic and starts caching payloads. A
// retained message, if any, arrives right after subscribing.
func NewStateCache(client mqtt.Client, topic string) (*StateCache, error) {
	s := &StateCache{client: client, topic: topic}
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		s.mu.Lock()
		s.payload = append(s.payload[:0], msg.Payload()...)
		s.mu.Unlock()
	})
	if token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	log.Printf("mqttbus: caching state from %s", topic)
	return s, nil
}

// Latest returns a copy of the last payload and whether one was seen.
func (s *StateCache) Latest() ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.payload) == 0 {
		return nil, false
	}
	out := make([]byte, len(s.payload))
	copy(out, s.payload)
	return out, true
}

// Close drops the subscription.
func (s *StateCache) Close() {
	s.client.Unsubscribe(s.topic)
}
