package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"smoke_controller/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = time.Hour

// Domain errors for auth flows.
var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidToken    = errors.New("invalid token")
)

// AuthOptions configure token issuing.
type AuthOptions struct {
	SigningKey string
	TokenTTL   time.Duration
}

// Operator is a configured login, seeded at startup.
type Operator struct {
	Username string
	Password string
}

// AuthService handles operator auth logic
type AuthService struct {
	operators repository.Operators
	key      []byte
	ttl      time.Duration
}

func NewAuthService(repo repository.Operators, opts AuthOptions) *AuthService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	return &AuthService{operators: repo, key: []byte(opts.SigningKey), ttl: opts.TokenTTL}
}

// SeedOperators stores every configured operator whose username is not taken yet and
// reports how many were created. Existing operators keep their stored password.
func (s *AuthService) SeedOperators(ctx context.Context, ops []Operator) (int, error) {
	created := 0
	for _, op := range ops {
		hash, err := hashPassword(op.Password)
		if err != nil {
			return created, fmt.Errorf("operator %q: %w", op.Username, err)
		}
		ok, err := s.operators.Seed(ctx, op.Username, hash)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// Claims defines JWT claims
type Claims struct {
	jwt.RegisteredClaims
	UserID int `json:"user_id"`
}

// GenerateToken validates credentials and returns JWT
func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (string, error) {
	u, err := s.operators.Lookup(ctx, username)
	if errors.Is(err, repository.ErrOperatorNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}

	if err := verifyPassword(u.PasswordHash, password); err != nil {
		return "", ErrInvalidPassword
	}

	return s.issueToken(u.ID)
}

// ParseToken parses JWT and returns userID
func (s *AuthService) ParseToken(accessToken string) (int, error) {
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}

	return claims.UserID, nil
}

// helper: hash password safely
func hashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func verifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (s *AuthService) issueToken(userID int) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID,
	})
	return token.SignedString(s.key)
}
