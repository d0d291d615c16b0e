package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"stayhub/internal/domain"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrTokenExpired    = errors.New("token expired")
)

type claims struct {
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWT verifies HMAC-signed bearer tokens carrying the user id and role.
type JWT struct {
	secret []byte
	ttl    time.Duration
}

func NewJWT(secret string, ttl time.Duration) *JWT {
	return &JWT{secret: []byte(secret), ttl: ttl}
}

func (j *JWT) Authenticate(_ context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, ErrUnauthenticated
	}
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthenticated
		}
		return j.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, ErrTokenExpired
		}
		return domain.Identity{}, ErrUnauthenticated
	}
	if !parsed.Valid || c.UserID == 0 {
		return domain.Identity{}, ErrUnauthenticated
	}

	role := domain.Role(c.Role)
	switch role {
	case domain.RoleUser, domain.RoleMerchant, domain.RoleAdmin:
	default:
		role = domain.RoleUser
	}
	return domain.Identity{UserID: c.UserID, Role: role}, nil
}

// Issue mints a token for id. Used by tests and local tooling; the real
// login flow lives in the account service.
func (j *JWT) Issue(id domain.Identity, now time.Time) (string, error) {
	c := claims{
		UserID: id.UserID,
		Role:   string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(j.secret)
}
