// Package logging provides structured logging helpers for gmailreader.
//
// All logging goes through log/slog. The helpers here keep attribute names
// consistent and make sure user emails and tokens never reach the logs in
// clear text.
//
// # Usage Patterns
//
//	logger := logging.WithOperation(slog.Default(), "gmail.list")
//	logger.Info("listed messages",
//	    logging.Status(logging.StatusSuccess),
//	    logging.UserHash(email))
//
// # Security Considerations
//
//   - User emails are hashed (UserHash) or reduced to their domain (Domain)
//   - Tokens are replaced by a length marker (SanitizeToken)
package logging
