package jwt

import (
	"context"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/access"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Service verifies identity provider tokens. GenerateAccessToken issues tokens
// with the same claims for local runs and tests.
type Service interface {
	JWTAuth() *jwtauth.JWTAuth
	GenerateAccessToken(uid, email string) (token string, expiresAt int64, err error)
}

type JWTService struct {
	accessTokenExpirationTime time.Duration
	tokenAuth                 *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime time.Duration) Service {
	return &JWTService{
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) GenerateAccessToken(uid, email string) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(j.accessTokenExpirationTime).Unix()

	claims := map[string]interface{}{
		"sub":     uid,
		"user_id": uid,
		"email":   email,
		"exp":     expiresAt,
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// IdentityFromContext reads the verified token's claims. The uid is taken from
// user_id and falls back to sub.
func IdentityFromContext(ctx context.Context) (*access.Identity, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return nil, access.ErrInvalidToken
	}

	uid, _ := claims["user_id"].(string)
	if uid == "" {
		uid, _ = claims["sub"].(string)
	}
	if uid == "" {
		return nil, access.ErrInvalidToken
	}

	email, _ := claims["email"].(string)

	return &access.Identity{UID: uid, Email: email}, nil
}
