package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"chargex_project/internal/domain"
	"chargex_project/internal/service"
	"chargex_project/pkg/logger"
)

const (
	telemetryTopic = "devices/+/telemetry"
	connectTimeout = 10 * time.Second
	submitTimeout  = 15 * time.Second
)

// Options configures the broker connection.
type Options struct {
	BrokerURL string
	Username  string
	Password  string
}

// Bridge subscribes to per-device telemetry topics and feeds received
// payloads into the ingestion pipeline, so MQTT devices follow the same
// path as HTTP submissions.
type Bridge struct {
	client   paho.Client
	pipeline *service.Pipeline
}

// NewBridge connects to the broker and subscribes to the telemetry topic.
func NewBridge(opts Options, pipeline *service.Pipeline) (*Bridge, error) {
	b := &Bridge{pipeline: pipeline}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID("chargex-ingest-" + uuid.NewString()[:8]).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warnf("MQTT connection lost: %v", err)
		})

	client := paho.NewClient(clientOpts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", opts.BrokerURL, token.Error())
	}

	b.client = client
	return b, nil
}

// onConnect re-subscribes on every (re)connection.
func (b *Bridge) onConnect(client paho.Client) {
	if token := client.Subscribe(telemetryTopic, 1, b.handleTelemetry); token.Wait() && token.Error() != nil {
		logger.Errorf("MQTT subscribe to %s failed: %v", telemetryTopic, token.Error())
		return
	}
	logger.Infof("MQTT bridge subscribed to %s", telemetryTopic)
}

func (b *Bridge) handleTelemetry(_ paho.Client, msg paho.Message) {
	deviceID := deviceIDFromTopic(msg.Topic())
	if deviceID == "" {
		logger.Warnf("MQTT message on unexpected topic %s, dropping", msg.Topic())
		return
	}

	var record domain.TelemetryRecord
	if err := json.Unmarshal(msg.Payload(), &record); err != nil {
		logger.Warnf("Invalid MQTT telemetry payload from %s: %v", deviceID, err)
		return
	}
	// The topic is authoritative for the device identity.
	record.DeviceID = deviceID

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	if _, err := b.pipeline.Submit(ctx, record); err != nil {
		logger.Errorf("Failed to ingest MQTT telemetry from %s: %v", deviceID, err)
	}
}

// deviceIDFromTopic extracts the device segment of devices/<id>/telemetry.
func deviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "devices" || parts[2] != "telemetry" {
		return ""
	}
	return parts[1]
}

// Close disconnects from the broker, allowing in-flight handlers to finish.
func (b *Bridge) Close() {
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(250)
		logger.Info("MQTT bridge disconnected")
	}
}
