package mqttbus

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher delivers payloads to a topic. Command-class messages go out at
// QoS 1; consumers are expected to dedup redeliveries.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

type publisher struct {
	client mqtt.Client
}

func NewPublisher(client mqtt.Client) Publisher {
	return &publisher{client: client}
}

func (p *publisher) Publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 1, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("mqttbus: publish to %s failed: %w", topic, token.Error())
	}
	return nil
}
