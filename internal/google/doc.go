// Package google manages the OAuth2 credential lifecycle for the Gmail API.
//
// It builds authorization URLs, exchanges authorization codes for credentials,
// turns credentials into token sources for API calls, and exports them in a
// JSON shape that scripts can reuse as bearer tokens. It also defines the error
// taxonomy shared by the rest of the application.
package google
