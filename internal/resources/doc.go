// Package resources provides read-only MCP resources for the authenticated
// mailbox: the owner's profile and individual messages addressed by ID.
package resources
