// Package audit implements async event dispatching for session lifecycle
// events and security alerts.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured record with timestamp, type, severity, member, IP, metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; that belongs to the Engine. A slow or failing sink never changes the
// outcome of the operation that emitted the event.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import boardAuth or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
