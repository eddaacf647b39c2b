// Package admin serves admin screens over HTTP.
//
// Each screen is addressed by name under /screens/{screen}. The caller's
// identity comes from the headers resolved by package auth, and every actor
// gets its own live session:
//
//	GET    /screens/users/form       current values, errors and submit state
//	PUT    /screens/users/snapshot   assign the upstream record {key, values}
//	PATCH  /screens/users/form       apply {field, value} or {changes: [...]}
//	POST   /screens/users/submit     commit when dirty and valid
//	DELETE /screens/users/draft      leave the screen and drop its draft
//	GET    /screens/users/live       websocket stream of state changes
//
// The live stream carries "state" messages after every change, a "submitted"
// message with each submit result, and a "toast" message when the result has
// something to tell the operator.
//
// The server also answers /healthz and, when metrics are configured,
// /metrics.
package admin
