package auth

import "time"

type Admin struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	TOTPSecretEnc []byte     `json:"-"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
}

func (a Admin) MFAEnabled() bool {
	return len(a.TOTPSecretEnc) > 0
}
