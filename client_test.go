package nullnexus

import (
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

// serverHostPort splits a test server address into host and port.
func serverHostPort(t *testing.T, server *httptest.Server) (string, string) {
	t.Helper()
	host, port, err := net.SplitHostPort(server.Listener.Addr().String())
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	return host, port
}

func testConfig(host, port string) ClientConfig {
	cfg := DefaultClientConfig()
	cfg.Host = host
	cfg.Port = port
	cfg.Path = "/stream"
	cfg.RetryDelay = 100 * time.Millisecond
	cfg.QueueRetryDelay = 50 * time.Millisecond
	return cfg
}

func TestClient_StartStop(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	host, port := serverHostPort(t, server)
	client := New(testConfig(host, port), nil)

	client.Start()

	if !client.IsActive() {
		t.Error("expected IsActive after Start")
	}
	if !client.IsConnected() {
		t.Error("expected IsConnected after Start against a live server")
	}

	client.Stop()

	if client.IsActive() {
		t.Error("expected not active after Stop")
	}
	if client.IsConnected() {
		t.Error("expected not connected after Stop")
	}
}

func TestClient_StopWithoutStart(t *testing.T) {
	client := New(testConfig("localhost", "9"), nil)

	// Must be a no-op, twice.
	client.Stop()
	client.Stop()

	stats := client.Stats()
	if stats.Active || stats.Connected || stats.Attempts != 0 {
		t.Errorf("unexpected side effects: %+v", stats)
	}
}

func TestClient_DoubleStart(t *testing.T) {
	var mu sync.Mutex
	connCount := 0

	server := mockWSServer(t, func(conn *websocket.Conn) {
		mu.Lock()
		connCount++
		mu.Unlock()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	host, port := serverHostPort(t, server)
	client := New(testConfig(host, port), nil)
	defer client.Stop()

	client.Start()
	client.Start()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if connCount != 1 {
		t.Errorf("connCount = %d, want 1", connCount)
	}
	if got := client.Stats().Attempts; got != 1 {
		t.Errorf("Attempts = %d, want 1", got)
	}
}

func TestClient_SendNotConnected(t *testing.T) {
	client := New(testConfig("localhost", "9"), nil)

	if client.Send("test", false) {
		t.Error("Send should return false with no connection")
	}
	if got := client.Stats().Queued; got != 0 {
		t.Errorf("Queued = %d, want 0 (non-queued send must not enqueue)", got)
	}
}

func TestClient_SendImmediate(t *testing.T) {
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

	if !client.Send(`{"kind":"hello"}`, false) {
		t.Fatal("Send failed on live connection")
	}

	select {
	case msg := <-received:
		if msg != `{"kind":"hello"}` {
			t.Errorf("received %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestClient_QueueOrder(t *testing.T) {
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

	want := []string{"one", "two", "three"}
	for _, msg := range want {
		if !client.Send(msg, true) {
			t.Fatalf("queued Send(%q) returned false", msg)
		}
	}

	for i, w := range want {
		select {
		case got := <-received:
			if got != w {
				t.Errorf("message %d: got %q, want %q", i, got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for message %d", i)
		}
	}
}

func TestClient_OnMessage(t *testing.T) {
	sent := []string{"alpha", "beta", "gamma"}

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for _, msg := range sent {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		time.Sleep(time.Second)
	})
	defer server.Close()

	host, port := serverHostPort(t, server)
	delivered := make(chan string, 10)
	cfg := testConfig(host, port)
	cfg.OnMessage = func(payload string) { delivered <- payload }

	client := New(cfg, nil)
	defer client.Stop()

	client.Start()

	for i, w := range sent {
		select {
		case got := <-delivered:
			if got != w {
				t.Errorf("message %d: got %q, want %q", i, got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for message %d", i)
		}
	}

	if got := client.Stats().Delivered; got != int64(len(sent)) {
		t.Errorf("Delivered = %d, want %d", got, len(sent))
	}
}

func TestClient_Restart(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	host, port := serverHostPort(t, server)
	client := New(testConfig(host, port), nil)

	for i := 0; i < 3; i++ {
		client.Start()
		if !client.IsConnected() {
			t.Fatalf("cycle %d: not connected after Start", i)
		}
		client.Stop()
		if client.IsConnected() {
			t.Fatalf("cycle %d: still connected after Stop", i)
		}
	}
}

func TestDefaultClientConfig(t *testing.T) {
	cfg := DefaultClientConfig()
	if cfg.RetryDelay != 10*time.Second {
		t.Errorf("RetryDelay = %v, want 10s", cfg.RetryDelay)
	}
	if cfg.QueueRetryDelay != 1*time.Second {
		t.Errorf("QueueRetryDelay = %v, want 1s", cfg.QueueRetryDelay)
	}
	if cfg.Scheme != "ws" {
		t.Errorf("Scheme = %q, want ws", cfg.Scheme)
	}
}
