package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fixwise/negotiations/internal/model"
)

type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Parser validates access tokens issued by the identity service.
type Parser struct {
	secret []byte
}

func NewParser(accessSecret string) *Parser {
	return &Parser{secret: []byte(accessSecret)}
}

// Parse verifies the token signature and expiry and extracts the principal.
func (p *Parser) Parse(tokenString string) (model.Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return model.Principal{}, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return model.Principal{}, fmt.Errorf("invalid token")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return model.Principal{}, fmt.Errorf("invalid user_id claim: %w", err)
	}
	switch claims.Role {
	case model.PrincipalRoleBuyer, model.PrincipalRoleProvider, model.PrincipalRoleAdmin:
	default:
		return model.Principal{}, fmt.Errorf("unknown role claim %q", claims.Role)
	}

	return model.Principal{UserID: userID, Role: claims.Role}, nil
}
