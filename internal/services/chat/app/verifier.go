package server

import (
	"context"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/firehall/stationhouse/internal/platform/errors"
	"github.com/firehall/stationhouse/internal/services/chat/domain"
)

const tokenCookieName = "sh_token"

// TokenVerifier turns a bearer token into an authenticated principal.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Principal, error)
}

// jwtVerifier validates HS256 session tokens minted by the auth service.
type jwtVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTVerifier builds a verifier for HS256 tokens signed with secret.
// issuer is matched against the token's iss claim when non-empty.
func NewJWTVerifier(secret []byte, issuer string) TokenVerifier {
	return &jwtVerifier{secret: secret, issuer: issuer, now: time.Now}
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

func (v *jwtVerifier) Verify(ctx context.Context, token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, errors.New(errors.CodeAuthTokenMissing, "auth token missing")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return domain.Principal{}, mapJWTError(err)
	}
	if !parsed.Valid {
		return domain.Principal{}, errors.New(errors.CodeAuthTokenInvalid, "auth token invalid")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return domain.Principal{}, errors.New(errors.CodeAuthTokenInvalid, "auth token subject invalid")
	}

	roles := make([]domain.Role, 0, len(claims.Roles))
	for _, raw := range claims.Roles {
		role, err := domain.ParseRole(raw)
		if err != nil {
			return domain.Principal{}, errors.Wrap(errors.CodeAuthTokenInvalid, "auth token role invalid", err)
		}
		roles = append(roles, role)
	}

	return domain.Principal{ID: userID, Name: claims.Name, Roles: roles}, nil
}

func mapJWTError(err error) error {
	if stderrors.Is(err, jwt.ErrTokenExpired) {
		return errors.Wrap(errors.CodeAuthTokenExpired, "auth token expired", err)
	}
	return errors.Wrap(errors.CodeAuthTokenInvalid, "auth token invalid", err)
}
