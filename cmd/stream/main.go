// stream connects to a WebSocket endpoint, prints every received
// message, and sends each stdin line to the server. Lines are queued
// when the connection is down and delivered in order on reconnect.
// Usage: go run ./cmd/stream --host example.test --port 443 --path /stream --scheme wss
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	nullnexus "github.com/cinortaxeh/libnullnexus"
)

func main() {
	host := flag.String("host", "localhost", "server host")
	port := flag.String("port", "8080", "server port")
	path := flag.String("path", "/stream", "endpoint path")
	scheme := flag.String("scheme", "ws", "ws or wss")
	retry := flag.Duration("retry", 10*time.Second, "reconnect delay")
	queue := flag.Bool("queue", true, "queue sends while offline")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	client := nullnexus.New(nullnexus.ClientConfig{
		Scheme:     *scheme,
		Host:       *host,
		Port:       *port,
		Path:       *path,
		RetryDelay: *retry,
		OnMessage: func(payload string) {
			fmt.Printf("<< %s\n", payload)
		},
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	client.Start()
	defer client.Stop()

	// Forward stdin lines to the server.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			if !client.Send(line, *queue) {
				logger.Warn("send failed, message dropped", "payload", line)
			}
		}
		cancel()
	}()

	logger.Info("streaming - press Ctrl+C to stop")
	<-ctx.Done()
}
