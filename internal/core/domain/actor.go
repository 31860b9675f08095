package domain

type Role string

const (
	RoleNurse  Role = "nurse"
	RolePorter Role = "porter"
	RoleAdmin  Role = "admin"
)

// Actor identifies the authenticated caller. The role is resolved once by the
// identity layer; core operations never infer it from the identity itself.
type Actor struct {
	ID   string
	Role Role
}
