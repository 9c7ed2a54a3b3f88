package users

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleSeller  Role = "seller"
)

type User struct {
	ID        int64
	Name      string
	Email     string
	Role      Role
	Active    bool
	CreatedAt time.Time
}
