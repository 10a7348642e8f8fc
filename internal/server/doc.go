// Package server provides the HTTP surface of gmailreader.
//
// # Key Components
//
// ServerContext holds the shared dependencies: the OAuth manager, the
// mailbox accessor and the session store. It keeps no per-user state;
// every request authenticates with its own credential.
//
// HTTPServer routes two APIs onto one mux:
//   - /api/auth/* and /api/gmail/*: browser routes authenticated by the
//     session store (cookies)
//   - /api/v1/*: scripting routes authenticated by an
//     "Authorization: Bearer <access_token>" header
//
// HealthChecker serves /healthz, /readyz and /healthz/detailed.
// MetricsServer exposes Prometheus metrics on a separate listener.
//
// # Error mapping
//
// Authentication failures map to 401, missing messages to 404 and
// everything else to 500. Bodies are {"success": false, "error": "..."};
// the bearer API adds the underlying error as "details" on 500.
package server
