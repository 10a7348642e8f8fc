package google

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

var (
	// ErrAuth means the credential is missing, malformed, expired or revoked.
	ErrAuth = errors.New("authentication failed")

	// ErrNotFound means the requested message does not exist for this account.
	ErrNotFound = errors.New("not found")

	// ErrUpstream covers every other remote or transport failure.
	ErrUpstream = errors.New("upstream request failed")

	// ErrDecode is internal to body decoding and never returned to callers.
	ErrDecode = errors.New("malformed encoded data")
)

// Classify wraps a remote failure with the matching taxonomy error.
// The original error stays in the chain so errors.As still reaches it.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAuth) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrUpstream) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%s: %w: %w", op, ErrAuth, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w: %w", op, ErrAuth, err)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
		}
	}

	if strings.Contains(err.Error(), "invalid_grant") {
		return fmt.Errorf("%s: %w: %w", op, ErrAuth, err)
	}

	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}

// HTTPStatus maps a taxonomy error to the status code presented to clients.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrorKind returns a short label for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "upstream"
	}
}
