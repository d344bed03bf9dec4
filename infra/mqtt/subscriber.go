// Package mqtt subscribes to the gauge telemetry feed and records readings
// into the in-memory store the input assembler reads from.
package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"path"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/pcwa-smotley/abayopt/core/telemetry"
	"github.com/pcwa-smotley/abayopt/infra/logger"
)

// Reading is the wire format published per gauge sample.
type Reading struct {
	Gauge     string    `json:"gauge,omitempty"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscriber feeds gauge readings from the broker into the telemetry store.
type Subscriber struct {
	client mqtt.Client
	store  telemetry.Store
	topic  string
	log    logger.Logger
}

// NewSubscriber connects to the broker and subscribes to topic. The topic's
// last level names the gauge when the payload leaves it empty, so both
// "abay/gauges/R4_Flow" with bare values and a single topic with
// self-describing payloads work.
func NewSubscriber(broker, clientID, topic string, tlsConfig *tls.Config, store telemetry.Store) (*Subscriber, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetTLSConfig(tlsConfig).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	s := &Subscriber{client: client, store: store, topic: topic, log: logger.New("mqtt-gauges")}
	sub := client.Subscribe(topic, 1, s.handle)
	if sub.Wait() && sub.Error() != nil {
		client.Disconnect(250)
		return nil, sub.Error()
	}
	return s, nil
}

func (s *Subscriber) handle(_ mqtt.Client, msg mqtt.Message) {
	var r Reading
	if err := json.Unmarshal(msg.Payload(), &r); err != nil {
		s.log.Warnf("bad gauge payload on %s: %v", msg.Topic(), err)
		return
	}
	if r.Gauge == "" {
		r.Gauge = path.Base(msg.Topic())
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	s.store.Record(telemetry.Reading{Gauge: r.Gauge, Value: r.Value, Timestamp: r.Timestamp})
	s.log.Debugf("recorded %s=%.2f at %s", r.Gauge, r.Value, r.Timestamp.Format(time.RFC3339))
}

// Close disconnects from the broker.
func (s *Subscriber) Close() {
	if s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}
