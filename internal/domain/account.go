package domain

import "time"

// OTPLength is the number of digits in a verification code.
const OTPLength = 6

// Account represents a registered user.
type Account struct {
	ID           string
	Name         string
	Email        string
	Username     string
	PasswordHash []byte
	OTP          *string
	IsVerified   bool
	About        string
	Skills       []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPendingOTP reports whether a verification code is outstanding.
func (a *Account) HasPendingOTP() bool {
	return a.OTP != nil && *a.OTP != ""
}

// AccountView is the outward representation of an account. It
// carries no password hash or OTP.
type AccountView struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Username   string   `json:"username"`
	IsVerified bool     `json:"isVerified"`
	About      string   `json:"about"`
	Skills     []string `json:"skills"`
}

// View projects the account into its outward representation.
func (a *Account) View() AccountView {
	skills := make([]string, len(a.Skills))
	copy(skills, a.Skills)
	return AccountView{
		ID:         a.ID,
		Name:       a.Name,
		Email:      a.Email,
		Username:   a.Username,
		IsVerified: a.IsVerified,
		About:      a.About,
		Skills:     skills,
	}
}
