package staff

import (
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/auth"
)

// User is a member of hospital staff who can sign in.
type User struct {
	ID        uuid.UUID `json:"id" yaml:"id"`
	Username  string    `json:"username" yaml:"username"`
	FullName  string    `json:"full_name" yaml:"full_name"`
	Role      auth.Role `json:"role" yaml:"role"`
	Password  string    `json:"-" yaml:"password"`
	Active    bool      `json:"active" yaml:"active"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Actor returns the permission-gate view of the user.
func (u *User) Actor() *auth.Actor {
	return auth.NewActor(u.ID.String(), u.Username, u.Role)
}

func (u *User) clone() *User {
	c := *u
	return &c
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /auth/refresh and /auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Me describes the authenticated caller.
type Me struct {
	ID          string            `json:"id"`
	Username    string            `json:"username"`
	Role        auth.Role         `json:"role"`
	Permissions []auth.Permission `json:"permissions"`
}
