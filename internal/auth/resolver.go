// Package auth resolves the caller's role from a request. The resolver is
// injected into the authorization middleware so the identity mechanism can
// be swapped without touching the handlers: the header resolver trusts a
// plain role header (placeholder and test seam), the JWT resolver verifies
// a signed token.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"

	"prodcat/internal/models"
)

// RoleHeader is the identity header read by the header resolver.
const RoleHeader = "X-User-Role"

// RoleResolver resolves the caller's role from an incoming request. An
// error means the caller's identity could not be established at all;
// whether the resolved role is sufficient is the middleware's call.
type RoleResolver interface {
	ResolveRole(c *fiber.Ctx) (models.Role, error)
}

// HeaderRoleResolver reads the role straight from the X-User-Role header
// with no cryptographic binding.
type HeaderRoleResolver struct{}

// ResolveRole implements RoleResolver.
func (HeaderRoleResolver) ResolveRole(c *fiber.Ctx) (models.Role, error) {
	raw := c.Get(RoleHeader)
	if raw == "" {
		return "", fmt.Errorf("%s header is missing or invalid", RoleHeader)
	}
	role, ok := models.ParseRole(raw)
	if !ok {
		// A present but unrecognized role still identifies the caller; the
		// allowed-roles check rejects it as forbidden, not unauthorized.
		return models.Role(strings.ToLower(strings.TrimSpace(raw))), nil
	}
	return role, nil
}

// JWTRoleResolver extracts the role from the "role" claim of an
// HMAC-signed Bearer token.
type JWTRoleResolver struct {
	secret string
}

// NewJWTRoleResolver creates a JWTRoleResolver with the given signing secret.
func NewJWTRoleResolver(secret string) *JWTRoleResolver {
	return &JWTRoleResolver{secret: secret}
}

// ResolveRole implements RoleResolver.
func (r *JWTRoleResolver) ResolveRole(c *fiber.Ctx) (models.Role, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("Authorization header is required")
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") {
		return "", fmt.Errorf("Authorization header format must be 'Bearer <token>'")
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(r.secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid or expired token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}
	rawRole, _ := claims["role"].(string)
	if rawRole == "" {
		return "", fmt.Errorf("token does not carry a role claim")
	}
	role, parsed := models.ParseRole(rawRole)
	if !parsed {
		// Same as the header resolver: an unknown role resolves and is
		// then refused by the allowed-roles check.
		return models.Role(strings.ToLower(strings.TrimSpace(rawRole))), nil
	}
	return role, nil
}

// GenerateToken issues an HMAC-signed token carrying the given role,
// suitable for the JWT resolver.
func GenerateToken(secret string, role models.Role, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"role": string(role),
		"exp":  time.Now().Add(ttl).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
