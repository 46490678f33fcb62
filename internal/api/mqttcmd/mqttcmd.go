// Package mqttcmd maps inbound MQTT command messages onto engine operations.
package mqttcmd

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gpellegrini/irrigo/pkg/dedup"
	"github.com/gpellegrini/irrigo/pkg/mqttbus"
)

// TopicFilter is the subscription filter for irrigation commands.
const TopicFilter = "irrigation/command/#"

const dedupWindow = 30 * time.Second

// Engine is the subset of engine operations drivable over MQTT.
type Engine interface {
	StartSession() error
	CancelSession()
	StartZone(zoneID int, minutes float64) error
	StopZone(zoneID int) error
	Recalculate()
}

type zoneCommand struct {
	ZoneID  int     `json:"zone_id"`
	Minutes float64 `json:"minutes"`
}

// NewHandler returns the command dispatcher. QoS-1 redeliveries inside the
// dedup window are dropped; command failures are logged and swallowed so a
// bad message never kills the subscription.
func NewHandler(eng Engine) mqttbus.Handler {
	seen := dedup.New(dedupWindow, 256)

	return func(topic string, payload []byte) error {
		key := append([]byte(topic+"\n"), payload...)
		if seen.Seen(key) {
			log.Printf("mqttcmd: duplicate command on %s dropped", topic)
			return nil
		}

		if err := dispatch(eng, command(topic), payload); err != nil {
			log.Printf("mqttcmd: command %s failed: %v", topic, err)
		}
		return nil
	}
}

// command strips everything up to and including "command/" from the topic.
func command(topic string) string {
	if i := strings.Index(topic, "command/"); i >= 0 {
		return topic[i+len("command/"):]
	}
	return topic
}

func dispatch(eng Engine, cmd string, payload []byte) error {
	switch cmd {
	case "start":
		return eng.StartSession()
	case "stop":
		eng.CancelSession()
		return nil
	case "recalculate":
		eng.Recalculate()
		return nil
	case "zone/start":
		var zc zoneCommand
		if err := json.Unmarshal(payload, &zc); err != nil {
			return fmt.Errorf("bad payload: %w", err)
		}
		if zc.Minutes <= 0 {
			return fmt.Errorf("bad payload: minutes must be positive, got %v", zc.Minutes)
		}
		return eng.StartZone(zc.ZoneID, zc.Minutes)
	case "zone/stop":
		var zc zoneCommand
		if err := json.Unmarshal(payload, &zc); err != nil {
			return fmt.Errorf("bad payload: %w", err)
		}
		return eng.StopZone(zc.ZoneID)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
