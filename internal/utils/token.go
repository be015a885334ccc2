package utils // package utils provides helpers for token minting, parsing and hashing

import (
	"crypto/sha256" // SHA-256 hashing for stored refresh tokens
	"encoding/hex"  // hex encoding of digests
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// Token type markers carried in the "typ" claim. A token presented to the
// wrong verifier fails even before the signature check can be fooled, so an
// access token can never stand in for a refresh token or vice versa.
const (
	typAccess  = "access"
	typRefresh = "refresh"
)

// ErrEmptyIdentity is returned when a token is requested for an identity
// missing its subject id or email.
var ErrEmptyIdentity = errors.New("token identity requires subject id and email")

// Identity is the decoded claim set shared by both token classes.
type Identity struct {
	UserID uint64
	Email  string
	Role   string
}

// SignedToken pairs a serialized JWT with its expiration time.
type SignedToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs a short-lived HS256 JWT for a user. Claims:
// subject (sub), email, role, typ, expiration (exp) and issued at (iat).
func NewAccessToken(secret string, id Identity, ttlMin int) (SignedToken, error) {
	return signToken(secret, id, typAccess, time.Duration(ttlMin)*time.Minute)
}

// NewRefreshToken builds and signs a long-lived HS256 JWT with the refresh
// secret. The raw string goes back to the client; only its SHA-256 hash is
// persisted server-side.
func NewRefreshToken(secret string, id Identity, ttlDays int) (SignedToken, error) {
	return signToken(secret, id, typRefresh, time.Duration(ttlDays)*24*time.Hour)
}

func signToken(secret string, id Identity, typ string, ttl time.Duration) (SignedToken, error) {
	if id.UserID == 0 || id.Email == "" {
		return SignedToken{}, ErrEmptyIdentity
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":   id.UserID,
		"email": id.Email,
		"typ":   typ,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	if typ == typAccess {
		claims["role"] = id.Role
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// ParseAccess verifies an access token's signature and expiry against the
// access secret and returns the decoded identity.
func ParseAccess(secret, raw string) (Identity, error) {
	return parseToken(secret, raw, typAccess)
}

// ParseRefresh verifies a refresh token against the refresh secret. A valid
// signature proves nothing about revocation; callers must still look the
// token up in the store.
func ParseRefresh(secret, raw string) (Identity, error) {
	return parseToken(secret, raw, typRefresh)
}

func parseToken(secret, raw, wantTyp string) (Identity, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC to close the
		// classic alg-confusion hole.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return Identity{}, errors.New("invalid or expired token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("invalid claims")
	}
	if typ, _ := claims["typ"].(string); typ != wantTyp {
		return Identity{}, errors.New("wrong token type")
	}
	var id Identity
	// JWT numbers decode as float64.
	if sub, ok := claims["sub"].(float64); ok {
		id.UserID = uint64(sub)
	}
	if id.UserID == 0 {
		return Identity{}, errors.New("missing subject")
	}
	id.Email, _ = claims["email"].(string)
	id.Role, _ = claims["role"].(string)
	return id, nil
}

// HashToken returns the SHA-256 hash of a raw refresh token as a hex string.
// Storing only the hash keeps a leaked database from yielding usable
// refresh credentials.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
