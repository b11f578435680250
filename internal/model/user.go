package model

import "fmt"

// User is the signed-in account as reported by the identity provider.
type User struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
}

// DisplayName labels a forum author. The current user sees their own display
// name (or anonymous id) suffixed with "(You)"; everyone else is shown as an
// anonymous id built from the first 8 characters of the user id.
func DisplayName(authorID string, current *User) string {
	short := authorID
	if len(short) > 8 {
		short = short[:8]
	}

	if current != nil && current.UID == authorID {
		if current.DisplayName != "" {
			return fmt.Sprintf("%s (You)", current.DisplayName)
		}

		return fmt.Sprintf("Anon%s (You)", short)
	}

	return "Anon" + short
}
