package user

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

var (
	NowFunc = time.Now // mockable

	// Audience is the audience every session token must be issued for.
	Audience = "earn-your-wings"

	// errors
	ErrInvalidToken   = errors.New("invalid token")
	ErrMissingSubject = errors.New("token has no subject")
)

// Metadata is the public metadata the auth provider attaches to its users.
// Roles may be given as a list or as a single role.
type Metadata struct {
	Roles []string `json:"roles,omitempty"`
	Role  string   `json:"role,omitempty"`
}

// Claims represents the authorization claims transmitted via the auth provider's JWT.
type Claims struct {
	jwt.StandardClaims
	Name           string   `json:"name,omitempty"`
	Email          string   `json:"email,omitempty"`
	PublicMetadata Metadata `json:"public_metadata"`
}

func (c *Claims) Valid() error {
	if err := c.StandardClaims.Valid(); err != nil {
		return err
	}
	if c.Subject == "" {
		return ErrMissingSubject
	}
	if !c.VerifyAudience(Audience, false) {
		return ErrInvalidToken
	}
	return nil
}

// User builds the current user out of the claims.
func (c *Claims) User() User {
	roles := append([]string{}, c.PublicMetadata.Roles...)
	if c.PublicMetadata.Role != "" {
		roles = append(roles, c.PublicMetadata.Role)
	}
	return User{
		ID:    c.Subject,
		Name:  c.Name,
		Email: c.Email,
		Roles: NormalizeRoles(roles),
	}
}

// NewClaims returns claims asserting usr, valid for ttl.
func NewClaims(usr User, issuer string, ttl time.Duration) *Claims {
	now := NowFunc()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    issuer,
			Subject:   usr.ID,
			Audience:  Audience,
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:           usr.Name,
		Email:          usr.Email,
		PublicMetadata: Metadata{Roles: usr.Roles},
	}
}

// GenerateToken generates a signed (HS256) JWT token string representing the Claims.
func GenerateToken(claims *Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// ParseToken verifies a signed token and returns its claims.
func ParseToken(tokenStr string, key []byte) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return key, nil
	})
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
