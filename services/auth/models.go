package auth

import (
	"time"

	"checkround/pkg/store"
)

const (
	UsersContainer   store.Container = "users"
	SessionContainer store.Container = "session"
)

type Role string

const (
	RoleOperator   Role = "operator"
	RoleSupervisor Role = "supervisor"
)

// User is a person allowed to sign in on this device.
type User struct {
	ID           int       `json:"id"`
	FullName     string    `json:"nama_lengkap"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session identifies the user signed in on this device.
type Session struct {
	ID        string    `json:"session_id"`
	UserID    int       `json:"user_id"`
	Username  string    `json:"username"`
	FullName  string    `json:"nama_lengkap"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is a User without credentials, safe to render.
type Profile struct {
	ID       int
	FullName string
	Username string
	Role     Role
}

func (u User) Profile() Profile {
	return Profile{ID: u.ID, FullName: u.FullName, Username: u.Username, Role: u.Role}
}
