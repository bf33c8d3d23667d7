package domain

import "time"

// SessionData is the value stored server-side for each issued token,
// keyed by the token's unique identifier. Its presence in the store is
// what keeps an otherwise signature-valid token accepted; deleting it
// revokes the token immediately.
//
// Role is frozen at login time. Changing a user's role does not touch
// live sessions; the new role takes effect on the next login.
type SessionData struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Role      *Role     `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
