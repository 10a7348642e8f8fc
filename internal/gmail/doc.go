// Package gmail reads a user's mailbox through the Gmail API.
//
// It lists recent messages as summaries, fetches a single message with its
// decoded HTML and plain text bodies, and reads the account profile. Every
// call takes the caller's credential as an oauth2.TokenSource, so one
// Mailbox can serve any number of users concurrently.
//
// Body extraction walks the MIME part tree of a message (see DecodeBody).
// Rendering helpers turn an HTML body into plain text or Markdown.
//
// Example usage:
//
//	mb := gmail.NewMailbox()
//	msgs, err := mb.ListMessages(ctx, ts, gmail.ListOptions{MaxResults: 10})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	detail, err := mb.GetMessage(ctx, ts, msgs[0].ID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(detail.BodyText)
package gmail
