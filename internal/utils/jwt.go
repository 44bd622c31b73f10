package utils // helper functions for access token handling

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail signature or claim
// validation.
var ErrInvalidToken = errors.New("invalid access token")

// Identity is the authenticated principal carried by an access token.
// BranchID is only set for staff tokens and scopes the holder to one branch.
type Identity struct {
	UserID   uint64
	Role     string
	BranchID uint64
}

// AccessToken is a signed HS256 JWT together with its expiry.  Tokens are
// normally minted by the auth service; this constructor exists for tests
// and local tooling.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken signs an HS256 JWT for the given identity.  Claims follow
// the auth service's layout: sub, role, branch_id, exp, iat.
func NewAccessToken(secret string, ident Identity, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  float64(ident.UserID),
		"role": ident.Role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	if ident.BranchID != 0 {
		claims["branch_id"] = float64(ident.BranchID)
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies the signature and expiry of a raw token and
// extracts the identity claims.  Only HMAC signatures are accepted.
func ParseAccessToken(secret, raw string) (Identity, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return Identity{}, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	ident := Identity{
		UserID:   claimUint64(claims, "sub"),
		BranchID: claimUint64(claims, "branch_id"),
	}
	if r, ok := claims["role"].(string); ok {
		ident.Role = r
	}
	if ident.UserID == 0 {
		return Identity{}, ErrInvalidToken
	}
	return ident, nil
}

// claimUint64 reads a numeric claim.  JSON numbers decode as float64, but
// tokens minted elsewhere sometimes carry string ids, so both are accepted.
func claimUint64(claims jwt.MapClaims, key string) uint64 {
	switch v := claims[key].(type) {
	case float64:
		if v > 0 {
			return uint64(v)
		}
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
