package alarm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-treatment-board/internal/engine"
)

// Publisher is the part of an MQTT client the sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTConfig describes the broker the bay-side buzzers listen on.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Client wraps a connected paho client.
type Client struct {
	client mqtt.Client
}

// NewClient connects to the broker with auto-reconnect enabled.
func NewClient(cfg MQTTConfig) (*Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt broker: %w", token.Error())
	}
	return &Client{client: client}, nil
}

// Publish sends payload and waits briefly for the broker to acknowledge it.
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("publish to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Disconnect closes the connection after a 250ms grace period.
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

// MQTTSink publishes alarms for the buzzers mounted at each bay.
// Bay alarms go to <prefix>/bays/<id>/alarm and waiting list alarms to
// <prefix>/waiting/alarm.
type MQTTSink struct {
	Pub    Publisher
	Prefix string
	Log    *zap.Logger
}

type buzzerMessage struct {
	BayID       int    `json:"bay_id,omitempty"`
	WaitingID   string `json:"waiting_id,omitempty"`
	TreatmentID string `json:"treatment_id"`
	Type        string `json:"type"`
	Patient     string `json:"patient"`
	At          string `json:"at"`
}

// Topic returns the topic an alarm is published on.
func (s MQTTSink) Topic(a engine.Alarm) string {
	if a.BayID > 0 {
		return fmt.Sprintf("%s/bays/%d/alarm", s.Prefix, a.BayID)
	}
	return s.Prefix + "/waiting/alarm"
}

func (s MQTTSink) Alert(_ context.Context, a engine.Alarm) {
	payload, err := json.Marshal(buzzerMessage{
		BayID:       a.BayID,
		WaitingID:   a.WaitingID,
		TreatmentID: a.TreatmentID,
		Type:        string(a.TreatmentType),
		Patient:     a.PatientName,
		At:          a.At.UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.Log.Warn("mqtt alarm: marshal failed", zap.Error(err))
		return
	}
	if err := s.Pub.Publish(s.Topic(a), 1, false, payload); err != nil {
		s.Log.Warn("mqtt alarm: publish failed", zap.Error(err))
	}
}
