// Package cmd implements the command-line interface for gmailreader.
//
// This package provides the following commands:
//   - serve: Start the web application (browser sessions and the bearer API)
//   - mcp: Serve the mailbox to AI assistants over MCP on stdio
//   - auth: Obtain, exchange and import Google credentials for the CLI and MCP server
//   - list, get: Read messages from the terminal
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// Configuration is resolved from flags, environment variables, an optional
// .env file and an optional gmailreader.yaml, in that order of precedence.
package cmd
