// Package google_tools provides MCP tools for completing Google OAuth from an
// MCP client.
//
// The flow:
//  1. Call google_get_auth_url to get the consent URL
//  2. The user visits the URL and grants read access to Gmail
//  3. The user copies the code parameter from the redirect
//  4. Call google_save_auth_code with the code
//
// The resulting credential is written to the credential file that the Gmail
// tools read, so later calls pick it up without a restart.
package google_tools
