package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// resetPurpose is the purpose claim required on password-reset tokens.
// Verification rejects reset tokens lacking it so a reset token can never
// be replayed as a general auth credential.
const resetPurpose = "password_reset"

// Token is a signed credential together with its expiry. The Value field
// contains the serialized JWT; Exp is its UTC expiration time.
type Token struct {
	Value string
	Exp   time.Time
}

// Claims is the result of a successful verification.
type Claims struct {
	UserID    uint64
	Role      string // only set on access tokens
	Purpose   string // only set on reset tokens
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec issues and verifies the three credential kinds. Each kind signs
// with its own secret, so a token of one kind never verifies as another
// even though the claim shapes overlap. Secrets are read-only after
// construction; the codec is safe for concurrent use.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	resetSecret   []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewCodec builds a Codec from the three signing secrets and the token
// lifetimes expressed the way the environment provides them.
func NewCodec(accessSecret, refreshSecret, resetSecret string, accessTTLMin, refreshTTLDays int) *Codec {
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		resetSecret:   []byte(resetSecret),
		accessTTL:     time.Duration(accessTTLMin) * time.Minute,
		refreshTTL:    time.Duration(refreshTTLDays) * 24 * time.Hour,
	}
}

// IssueAccess builds and signs a short-lived HS256 access token carrying
// the subject and role claims. Access tokens are stateless: their validity
// depends only on signature and expiry, never on server state.
func (c *Codec) IssueAccess(userID uint64, role string) (Token, error) {
	exp := time.Now().UTC().Add(c.accessTTL)
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  time.Now().UTC().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, Exp: exp}, nil
}

// IssueRefresh builds and signs a long-lived refresh token. Unlike access
// tokens its validity additionally depends on a live session row whose
// stored hash matches HashRefresh of this value.
func (c *Codec) IssueRefresh(userID uint64) (Token, error) {
	exp := time.Now().UTC().Add(c.refreshTTL)
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": exp.Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, Exp: exp}, nil
}

// IssueReset builds a single-purpose password-reset token. It shares the
// encoding of the other kinds but signs with the reset secret and carries
// the purpose claim that VerifyReset demands.
func (c *Codec) IssueReset(userID uint64, ttl time.Duration) (Token, error) {
	exp := time.Now().UTC().Add(ttl)
	claims := jwt.MapClaims{
		"sub":     userID,
		"purpose": resetPurpose,
		"exp":     exp.Unix(),
		"iat":     time.Now().UTC().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.resetSecret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, Exp: exp}, nil
}

// VerifyAccess validates an access token and returns its claims.
func (c *Codec) VerifyAccess(raw string) (Claims, error) {
	return c.verify(raw, c.accessSecret)
}

// VerifyRefresh validates a refresh token's signature and expiry. The
// caller is still responsible for checking the session store; a refresh
// token that verifies here but matches no active session is worthless.
func (c *Codec) VerifyRefresh(raw string) (Claims, error) {
	return c.verify(raw, c.refreshSecret)
}

// VerifyReset validates a password-reset token, including the purpose
// claim. A token signed with the reset secret but lacking the purpose is
// rejected as malformed.
func (c *Codec) VerifyReset(raw string) (Claims, error) {
	cl, err := c.verify(raw, c.resetSecret)
	if err != nil {
		return Claims{}, err
	}
	if cl.Purpose != resetPurpose {
		return Claims{}, ErrMalformed
	}
	return cl, nil
}

// verify parses and validates raw under the given secret, mapping library
// errors onto the package taxonomy.
func (c *Codec) verify(raw string, secret []byte) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC; otherwise a
		// crafted token could pick its own verification algorithm.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		default:
			return Claims{}, ErrMalformed
		}
	}
	if !tok.Valid {
		return Claims{}, ErrInvalidSignature
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrMalformed
	}
	cl := Claims{}
	switch sub := mc["sub"].(type) {
	case float64:
		// JSON numbers decode as float64.
		cl.UserID = uint64(sub)
	case string:
		n, perr := strconv.ParseUint(sub, 10, 64)
		if perr != nil {
			return Claims{}, ErrMalformed
		}
		cl.UserID = n
	default:
		return Claims{}, ErrMalformed
	}
	if cl.UserID == 0 {
		return Claims{}, ErrMalformed
	}
	if v, ok := mc["role"].(string); ok {
		cl.Role = v
	}
	if v, ok := mc["purpose"].(string); ok {
		cl.Purpose = v
	}
	if v, ok := mc["iat"].(float64); ok {
		cl.IssuedAt = time.Unix(int64(v), 0).UTC()
	}
	if v, ok := mc["exp"].(float64); ok {
		cl.ExpiresAt = time.Unix(int64(v), 0).UTC()
	}
	return cl, nil
}

// HashRefresh returns the SHA-256 hash of a refresh token as a hex string.
// Only the hash is persisted, so a stolen sessions table cannot be used to
// refresh anyone's session.
func HashRefresh(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
