// Package common provides helpers shared by the MCP tool packages:
// instrumentation wrappers and argument accessors.
package common
