// Package service contains the application's business logic.
package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"threads/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token lifetimes.
const (
	SessionTokenTTL = time.Hour
	ResetTokenTTL   = 15 * time.Minute
)

// Token purposes carried in the "typ" claim.
const (
	TokenTypeSession = "session"
	TokenTypeReset   = "reset"
)

// Claims is the JWT payload issued by TokenService.
type Claims struct {
	jwt.RegisteredClaims
	UserID uint   `json:"userId"`
	Type   string `json:"typ"`
	// Fingerprint binds a reset token to the password hash it was issued against.
	Fingerprint string `json:"pwf,omitempty"`
}

// TokenService issues and verifies HS256 tokens for sessions and password resets.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

// NewTokenService returns a TokenService signing with secret.
func NewTokenService(secret, issuer, audience string) *TokenService {
	return &TokenService{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
}

// IssueSessionToken returns a one hour session token for userID.
func (s *TokenService) IssueSessionToken(userID uint) (string, error) {
	return s.issue(userID, TokenTypeSession, "", SessionTokenTTL)
}

// IssueResetToken returns a 15 minute password reset token bound to passwordHash.
func (s *TokenService) IssueResetToken(userID uint, passwordHash string) (string, error) {
	return s.issue(userID, TokenTypeReset, PasswordFingerprint(passwordHash), ResetTokenTTL)
}

func (s *TokenService) issue(userID uint, typ, fingerprint string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:      userID,
		Type:        typ,
		Fingerprint: fingerprint,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer, audience and expiry.
// An expired token yields a TokenExpiredError, anything else an InvalidTokenError.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.NewTokenExpiredError()
		}
		return nil, models.NewInvalidTokenError(err)
	}

	if claims.UserID == 0 || claims.Subject != strconv.FormatUint(uint64(claims.UserID), 10) {
		return nil, models.NewInvalidTokenError(errors.New("token subject does not match user id"))
	}
	return claims, nil
}

// VerifySession verifies a session token and returns its user id.
func (s *TokenService) VerifySession(tokenString string) (uint, error) {
	claims, err := s.verifyType(tokenString, TokenTypeSession)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// VerifyReset verifies a password reset token.
func (s *TokenService) VerifyReset(tokenString string) (*Claims, error) {
	return s.verifyType(tokenString, TokenTypeReset)
}

func (s *TokenService) verifyType(tokenString, typ string) (*Claims, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != typ {
		return nil, models.NewInvalidTokenError(fmt.Errorf("expected %s token, got %q", typ, claims.Type))
	}
	return claims, nil
}

// PasswordFingerprint is a short digest of a password hash. It changes
// whenever the password does, which retires reset tokens issued earlier.
func PasswordFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}
