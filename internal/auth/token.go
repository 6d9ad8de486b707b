package auth

import (
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/spec-kit/repair-service/internal/domain"
)

const tokenIssuer = "campus-repair"

// TokenManager issues and validates the role-bearing access tokens shared by
// the student, repairman and admin portals.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager. A non-positive TTL means one hour.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute, now: time.Now}
}

// Claims is the token payload: the account id and the portal role it was issued for.
type Claims struct {
	SubjectID int64       `json:"uid"`
	Role      domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token for the account.
func (tm *TokenManager) GenerateToken(subjectID int64, role domain.Role) (string, time.Time, error) {
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	claims := &Claims{
		SubjectID: subjectID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(subjectID, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}
	return signed, expiresAt, nil
}

// ParseToken validates signature, issuer and expiry and returns the claims.
// Tokens naming no account or an unknown role are rejected.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (interface{}, error) { return tm.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, errors.Wrap(err, "parse token")
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.SubjectID <= 0 || !claims.Role.Valid() {
		return nil, errors.New("token missing subject or role")
	}
	return claims, nil
}
