// Package archive implements the batching message archiver.
//
// The archiver consumes messages received over the WebSocket client,
// accumulates them into batches, and writes them to PostgreSQL on batch
// size or flush interval, whichever comes first. Inserts are
// append-only with ON CONFLICT DO NOTHING, so replaying a message after
// a reconnect never produces a duplicate row.
package archive
