package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(testLogger())
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal error: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
	return Message{}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := startHub(t)
	client := &Client{hub: hub, send: make(chan []byte, 256)}

	hub.register <- client
	time.Sleep(50 * time.Millisecond)
	if got := hub.ClientCount(); got != 1 {
		t.Errorf("after register: ClientCount() = %d, want 1", got)
	}

	hub.unregister <- client
	time.Sleep(50 * time.Millisecond)
	if got := hub.ClientCount(); got != 0 {
		t.Errorf("after unregister: ClientCount() = %d, want 0", got)
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := startHub(t)
	c1 := &Client{hub: hub, send: make(chan []byte, 256)}
	c2 := &Client{hub: hub, send: make(chan []byte, 256)}
	hub.register <- c1
	hub.register <- c2
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast([]byte("hello"))
	for i, c := range []*Client{c1, c2} {
		select {
		case got := <-c.send:
			if string(got) != "hello" {
				t.Errorf("client %d got %q", i, got)
			}
		case <-time.After(time.Second):
			t.Errorf("client %d did not receive broadcast", i)
		}
	}
}

func TestHubBroadcast_DropsSlowClient(t *testing.T) {
	hub := startHub(t)
	slow := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.register <- slow
	time.Sleep(50 * time.Millisecond)

	slow.send <- []byte("filler")
	hub.Broadcast([]byte("overflow"))
	time.Sleep(50 * time.Millisecond)

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("slow client should be dropped, ClientCount() = %d, want 0", got)
	}
}

func TestHubStop(t *testing.T) {
	hub := NewHub(testLogger())
	stopped := make(chan struct{})
	go func() {
		hub.Run()
		close(stopped)
	}()
	client := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.register <- client

	hub.Stop()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if _, ok := <-client.send; ok {
		t.Error("client channel should be closed")
	}
	// Broadcasting after Stop must not block.
	hub.Broadcast([]byte("late"))
}

func TestStageMessages(t *testing.T) {
	hub := startHub(t)
	client := &Client{hub: hub, send: make(chan []byte, 256)}
	hub.register <- client
	time.Sleep(50 * time.Millisecond)

	hub.BroadcastStageStarted("run-1", "load")
	msg := receive(t, client)
	if msg.Type != MsgStageStarted {
		t.Errorf("type = %q, want %q", msg.Type, MsgStageStarted)
	}
	var ev StageEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.RunID != "run-1" || ev.Stage != "load" || ev.Clean != nil {
		t.Errorf("unexpected event %+v", ev)
	}

	clean, orphaned := 3, 1
	hub.BroadcastStageCompleted(StageEvent{RunID: "run-1", Stage: "integrity", Entity: "accounts", Clean: &clean, Orphaned: &orphaned})
	msg = receive(t, client)
	if msg.Type != MsgStageCompleted || !strings.Contains(string(msg.Payload), `"orphaned":1`) {
		t.Errorf("unexpected message %s %s", msg.Type, msg.Payload)
	}

	hub.BroadcastRunCompleted(map[string]string{"run_id": "run-1"})
	if msg := receive(t, client); msg.Type != MsgRunCompleted {
		t.Errorf("type = %q, want %q", msg.Type, MsgRunCompleted)
	}

	hub.BroadcastError("run-1", "load", "source missing")
	msg = receive(t, client)
	var e ErrorEvent
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		t.Fatal(err)
	}
	if msg.Type != MsgError || e.Stage != "load" || e.Message != "source missing" {
		t.Errorf("unexpected error event %s %+v", msg.Type, e)
	}
}

func TestNewMessage_NilPayload(t *testing.T) {
	data, err := NewMessage(MsgSync, nil)
	if err != nil {
		t.Fatalf("NewMessage error: %v", err)
	}
	if string(data) != `{"type":"sync"}` {
		t.Errorf("got %s", data)
	}
}

func TestHandleWebSocket(t *testing.T) {
	hub := startHub(t)
	hub.SetStateProvider(func() ([]byte, error) {
		return []byte(`{"run_id":"run-0"}`), nil
	})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() Message {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	}

	greeting := read()
	if greeting.Type != MsgLastRun || string(greeting.Payload) != `{"run_id":"run-0"}` {
		t.Errorf("unexpected greeting %s %s", greeting.Type, greeting.Payload)
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"sync"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := read(); msg.Type != MsgLastRun {
		t.Errorf("sync should resend the last run, got %s", msg.Type)
	}

	for hub.ClientCount() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	hub.BroadcastStageStarted("run-1", "normalize")
	if msg := read(); msg.Type != MsgStageStarted {
		t.Errorf("type = %q, want %q", msg.Type, MsgStageStarted)
	}
}
