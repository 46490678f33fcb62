// Package mqttbus wraps the paho MQTT client with the connection, publish and
// subscribe patterns used across the service: retried broker connects,
// QoS-1 command delivery and retained state reads.
package mqttbus

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Config identifies the broker and the client.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string
}

// Connect establishes the broker connection, retrying with exponential
// backoff. The connection is closed when ctx is cancelled.
func Connect(ctx context.Context, cfg *Config) (mqtt.Client, error) {
	addr := fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(addr)
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Printf("mqttbus: connect to %s failed: %v", addr, token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithMaxRetries(bo, 4))
	if err != nil {
		return nil, fmt.Errorf("mqttbus: could not connect to %s after retries: %w", addr, err)
	}

	log.Printf("mqttbus: connected to %s", addr)

	go func() {
		<-ctx.Done()
		client.Disconnect(250)
		log.Println("mqttbus: connection closed")
	}()

	return client, nil
}
