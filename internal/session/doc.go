// Package session keeps per-browser state between requests.
//
// Two stores implement Store:
//
//   - CookieStore keeps values in HttpOnly cookies, sealed with AES-256-GCM
//     when a key is configured.
//   - MemoryStore keeps values on the server and only sends an opaque session
//     ID cookie to the browser.
//
// Neither store persists across restarts.
package session
