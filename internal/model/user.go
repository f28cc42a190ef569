package model

const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RoleNurse   = "nurse"
	RolePatient = "patient"
	RoleOther   = "other"
)

var validRoles = map[string]struct{}{
	RoleAdmin:   {},
	RoleDoctor:  {},
	RoleNurse:   {},
	RolePatient: {},
	RoleOther:   {},
}

func IsValidRole(role string) bool {
	_, ok := validRoles[role]
	return ok
}

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	Ctime        int64  `json:"ctime"`
	Mtime        int64  `json:"mtime"`
}
