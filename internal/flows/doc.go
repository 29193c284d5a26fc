// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunAuthenticate, RunReissue, RunLogout,
// RunSignup) accepts a typed dependency struct and returns a result carrying
// a failure kind instead of a host-level error. The Engine maps failure kinds
// onto its error taxonomy, metrics and audit events, which keeps the Engine
// type thin and lets every branch be tested with fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the session cache, the token codec, the
// member directory and the login throttle. They do NOT own any of these
// resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import boardAuth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
