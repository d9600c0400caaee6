// Package nullnexus implements a resilient client for a persistent
// WebSocket connection.
//
// The client:
//   - Hides transient network failure behind automatic reconnection
//     with a fixed retry delay
//   - Preserves FIFO order for messages queued while offline
//   - Guarantees exactly one live connection attempt at a time
//   - Leaks no goroutine or timer past Stop
package nullnexus
