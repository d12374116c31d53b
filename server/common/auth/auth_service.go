package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type Claims struct {
	Subject string `json:"sub_name"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

type Service struct {
	secret       []byte
	ttl          time.Duration
	passwordHash string
}

// NewService builds a token service. passwordHash is a bcrypt hash of the
// admin credential; an empty hash disables password login entirely.
func NewService(secret string, ttlMinutes int, passwordHash string) *Service {
	return &Service{
		secret:       []byte(secret),
		ttl:          time.Duration(ttlMinutes) * time.Minute,
		passwordHash: passwordHash,
	}
}

func (s *Service) CheckPassword(password string) error {
	if s.passwordHash == "" {
		return fmt.Errorf("password login is disabled")
	}
	return bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password))
}

func (s *Service) GenerateToken(subject, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Subject: subject,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

func (s *Service) ParseToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func (s *Service) ParseAuthContext(token string) (subject, role string, err error) {
	claims, err := s.ParseToken(token)
	if err != nil {
		return "", "", err
	}
	return claims.Subject, claims.Role, nil
}
