package model

import "github.com/google/uuid"

// Principal is the authenticated caller extracted from the access token.
type Principal struct {
	UserID uuid.UUID
	Role   string
}

const (
	PrincipalRoleBuyer    = "BUYER"
	PrincipalRoleProvider = "PROVIDER"
	PrincipalRoleAdmin    = "ADMIN"
)

func (p Principal) IsBuyer() bool    { return p.Role == PrincipalRoleBuyer }
func (p Principal) IsProvider() bool { return p.Role == PrincipalRoleProvider }
func (p Principal) IsAdmin() bool    { return p.Role == PrincipalRoleAdmin }
