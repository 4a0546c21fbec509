// Package http exposes the live console to projection screens on the local
// network.
//
// Reads:
//   - GET /live/state: the current view state, including the projected
//     window and the preview line.
//   - GET /live/stream: a WebSocket that pushes the same payload on every
//     change.
//   - GET /presence, GET /preferences, GET /print, GET /print.md.
//
// Sessions:
//   - POST /session with {"token"} logs in, DELETE /session logs out and
//     GET /session returns the principal.
//
// Writes that act for the logged-in user (navigation, song selection and
// event edits) require an active session. Navigation answers 204 when the
// input has no effect, for example advancing past the end marker. View and
// preference changes are local to this device and need no session.
//
// Errors use the body {"error_code","message","errors"}.
package http
