package google

// DefaultOAuthScopes are the scopes requested during login.
//
// The scopes provide access to:
//   - Gmail: read and modify (labels, read state)
//   - User info: the account email shown in the UI
var DefaultOAuthScopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/userinfo.email",
}
