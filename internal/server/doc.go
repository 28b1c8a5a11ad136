// Package server provides HTTP routing, middleware, and the processing trigger endpoints.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method-qualified patterns.
//
// # Trigger Surface
//
// [API] implements the [Handler] interface and serves:
//   - POST /webhook/drive : storage change notifications, authenticated by the channel token
//   - POST /manual-check : an on-demand playlist scan
//   - GET /status : aggregate job counts
//   - GET /jobs and GET /jobs/{id} : job inspection
//   - POST /auth/publish : publish API credential exchange
//
// # Webhook Registration
//
// [RegisterWebhook] opens a storage watch channel carrying a generated id and
// the shared secret. Channels expire after about a day and are re-registered
// on startup.
package server
