// Package actuator switches zone valves on and off. The hardware protocol
// behind the valve is out of scope; commands leave the system as MQTT
// messages picked up by whatever drives the relays.
package actuator

import (
	"encoding/json"
	"log"
	"strconv"
	"strings"

	"github.com/gpellegrini/irrigo/pkg/mqttbus"
)

// Actuator switches one zone's valve.
type Actuator interface {
	On(zoneID int) error
	Off(zoneID int) error
}

// Noop logs transitions without driving anything, used when no broker is
// configured.
type Noop struct{}

func (Noop) On(zoneID int) error {
	log.Printf("actuator: zone %d ON (noop)", zoneID)
	return nil
}

func (Noop) Off(zoneID int) error {
	log.Printf("actuator: zone %d OFF (noop)", zoneID)
	return nil
}

type valveCommand struct {
	ZoneID int    `json:"zone_id"`
	State  string `json:"state"`
}

// MQTT publishes valve commands on a per-zone topic. The topic template
// carries a {zone} placeholder, e.g. "irrigation/valve/{zone}/set".
type MQTT struct {
	pub       mqttbus.Publisher
	topicTmpl string
}

func NewMQTT(pub mqttbus.Publisher, topicTmpl string) *MQTT {
	if strings.TrimSpace(topicTmpl) == "" {
		topicTmpl = "irrigation/valve/{zone}/set"
	}
	return &MQTT{pub: pub, topicTmpl: topicTmpl}
}

func (a *MQTT) On(zoneID int) error  { return a.publish(zoneID, "on") }
func (a *MQTT) Off(zoneID int) error { return a.publish(zoneID, "off") }

func (a *MQTT) publish(zoneID int, state string) error {
	payload, _ := json.Marshal(valveCommand{ZoneID: zoneID, State: state})
	topic := strings.ReplaceAll(a.topicTmpl, "{zone}", strconv.Itoa(zoneID))
	if err := a.pub.Publish(topic, payload); err != nil {
		return err
	}
	log.Printf("actuator: zone %d %s via %s", zoneID, strings.ToUpper(state), topic)
	return nil
}
