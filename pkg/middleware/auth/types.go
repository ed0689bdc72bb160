package auth

// GuestUsername is reported for callers that carry no credentials.
const GuestUsername = "Guest"

type Role struct {
	Name string `json:"name"`
}

type AuthenticationSource struct {
	Provider string `json:"provider"`
}

type User struct {
	Username             string               `json:"username"`
	AuthenticationSource AuthenticationSource `json:"authenticationSource"`
	Role                 Role                 `json:"role"`
}

// Guest is the zero-credential caller.
func Guest() User { return User{Username: GuestUsername} }

func (u User) IsGuest() bool { return u.Username == "" || u.Username == GuestUsername }
