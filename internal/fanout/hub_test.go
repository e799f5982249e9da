package fanout

import (
	"encoding/json"
	"testing"
	"time"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func receive(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case data := <-c.send:
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("failed to decode envelope: %v", err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
		return Envelope{}
	}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected delivery: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishToDeviceRoom(t *testing.T) {
	hub := startHub(t)

	subscriber := NewClient(hub, nil)
	subscriber.Subscribe(DeviceRoom("dev-1"))
	bystander := NewClient(hub, nil)
	bystander.Subscribe(DeviceRoom("dev-2"))

	hub.Publish(DeviceRoom("dev-1"), EventTelemetryUpdate, map[string]string{"deviceId": "dev-1"})

	env := receive(t, subscriber)
	if env.Event != EventTelemetryUpdate {
		t.Fatalf("expected telemetry_update, got %s", env.Event)
	}
	if env.Room != DeviceRoom("dev-1") {
		t.Fatalf("expected device room, got %q", env.Room)
	}

	expectNothing(t, bystander)
}

func TestGlobalPublishReachesEveryone(t *testing.T) {
	hub := startHub(t)

	a := NewClient(hub, nil)
	b := NewClient(hub, nil)
	b.Subscribe(BatteryRoom("batt-1"))

	hub.Publish(GlobalRoom, EventNewAlert, map[string]string{"id": "alert-1"})

	for _, c := range []*Client{a, b} {
		env := receive(t, c)
		if env.Event != EventNewAlert {
			t.Fatalf("expected new_alert, got %s", env.Event)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := startHub(t)

	client := NewClient(hub, nil)
	client.Subscribe(BatteryRoom("batt-1"))

	hub.Publish(BatteryRoom("batt-1"), EventBatteryUpdate, nil)
	receive(t, client)

	client.Unsubscribe(BatteryRoom("batt-1"))
	hub.Publish(BatteryRoom("batt-1"), EventBatteryUpdate, nil)
	expectNothing(t, client)
}

func TestClientCount(t *testing.T) {
	hub := startHub(t)

	NewClient(hub, nil)
	NewClient(hub, nil)

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 clients, got %d", hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
