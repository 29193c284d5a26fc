// Package jwt issues and verifies the HS256 access and refresh tokens used by
// boardAuth. Verification is pure: it never consults session state, and every
// rejection is a *VerifyError tagged as malformed, expired or unsupported.
package jwt
