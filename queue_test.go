package nullnexus

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// A failed queued write keeps the failing message at the head, arms the
// queue retry timer, and after the connection recovers everything is
// delivered in the original order.
func TestClient_WriteFailureKeepsHead(t *testing.T) {
	received := make(chan string, 10)
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- string(msg)
		}
	})
	defer server.Close()

	host, port := serverHostPort(t, server)
	client := New(testConfig(host, port), nil)
	defer client.Stop()

	client.Start()
	if !client.IsConnected() {
		t.Fatal("not connected after Start")
	}

	// Break the socket under the lock, then drain: the head write fails
	// before any reconnect can swap in a fresh connection.
	client.mu.Lock()
	client.queue = append(client.queue, "m1", "m2", "m3")
	client.conn.NetConn().Close()
	client.drainLocked()
	queued := len(client.queue)
	var head string
	if queued > 0 {
		head = client.queue[0]
	}
	retryArmed := client.queueTimer != nil
	client.mu.Unlock()

	if queued != 3 {
		t.Fatalf("Queued = %d after failed drain, want 3", queued)
	}
	if head != "m1" {
		t.Errorf("queue head = %q after failed drain, want %q", head, "m1")
	}
	if !retryArmed {
		t.Error("queue retry timer not armed after failed drain")
	}

	// The read pump notices the dead socket and reconnects; the whole
	// queue arrives on the new connection, none skipped, in order.
	for i, want := range []string{"m1", "m2", "m3"} {
		select {
		case got := <-received:
			if got != want {
				t.Errorf("message %d: got %q, want %q", i, got, want)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timeout waiting for message %d", i)
		}
	}
	if got := client.Stats().Queued; got != 0 {
		t.Errorf("Queued = %d after recovery, want 0", got)
	}
}

// A queue retry callback whose timer has been superseded must leave the
// currently armed timer and the queue alone.
func TestClient_StaleQueueRetryCallback(t *testing.T) {
	host, port := reservePort(t)

	cfg := testConfig(host, port)
	cfg.QueueRetryDelay = time.Hour // armed timer never fires on its own

	client := New(cfg, nil)
	defer client.Stop()

	if !client.Send("held", true) {
		t.Fatal("queued Send returned false")
	}

	client.mu.Lock()
	client.scheduleQueueRetryLocked()
	client.mu.Unlock()

	stale := time.NewTimer(time.Hour)
	defer stale.Stop()
	client.queueFired(stale)

	client.mu.Lock()
	armed := client.queueTimer != nil
	client.mu.Unlock()
	if !armed {
		t.Error("stale callback cleared the armed queue retry timer")
	}
	if got := client.Stats().Queued; got != 1 {
		t.Errorf("Queued = %d, want 1", got)
	}
}
