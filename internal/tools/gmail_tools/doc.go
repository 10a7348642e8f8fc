// Package gmail_tools exposes the read-only mailbox as MCP tools:
//
//   - gmail_list_messages: list recent messages, optionally filtered by labels
//   - gmail_get_message: show one message with its body as text, HTML or Markdown
//   - gmail_get_messages: fetch several messages at once, reporting per-message failures
//   - gmail_get_profile: show the mailbox owner's address and totals
//
// Credentials come from a google.TokenProvider. A provider error or a rejected
// token is reported as a tool error that tells the caller how to authenticate.
//
// Example:
//
//	gmail_list_messages(maxResults: 5, labelIds: "INBOX,UNREAD")
//	gmail_get_message(messageId: "18c2a...", format: "markdown")
package gmail_tools
