// Package security summarizes an engine configuration into a posture report
// with warnings for settings that weaken the session lifecycle.
//
// # What this package must NOT do
//
//   - Perform I/O or read live engine state.
package security
