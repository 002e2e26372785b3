package auth

import (
	"errors"
	"fmt"
	"time"

	"Kasumi/server/internal/pkg/helpers"
	"Kasumi/server/internal/storage"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrClientExists       = errors.New("client name already registered")
	ErrInvalidCredentials = errors.New("invalid client name or secret")
	ErrInvalidToken       = errors.New("invalid token")
)

// Service implements authentication of API clients
type Service struct {
	jwtSecret string
	tokenTTL  time.Duration
	store     Store
}

// Store defines the persistence interface
type Store interface {
	CreateClient(name, hashedSecret string) (int64, error)
	GetClientByName(name string) (*storage.APIClient, error)
}

// Claims represents JWT claims
type Claims struct {
	ClientID   int64  `json:"client_id"`
	ClientName string `json:"client_name"`
	jwt.StandardClaims
}

// New creates a new auth service. A non-positive ttl defaults to 24 hours.
func New(jwtSecret string, ttl time.Duration, store Store) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		jwtSecret: jwtSecret,
		tokenTTL:  ttl,
		store:     store,
	}
}

// Register creates a new API client
func (s *Service) Register(name, secret string) (int64, error) {
	if err := helpers.ValidateClientName(name); err != nil {
		return 0, err
	}
	if err := helpers.ValidateSecret(secret); err != nil {
		return 0, err
	}

	existing, err := s.store.GetClientByName(name)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, ErrClientExists
	}

	hashed, err := hashSecret(secret)
	if err != nil {
		return 0, err
	}

	// the lookup above can lose a race with a concurrent Register
	id, err := s.store.CreateClient(name, hashed)
	if errors.Is(err, storage.ErrDuplicate) {
		return 0, ErrClientExists
	}
	return id, err
}

// Login authenticates a client and returns a JWT token
func (s *Service) Login(name, secret string) (string, error) {
	if name == "" || secret == "" {
		return "", ErrInvalidCredentials
	}

	client, err := s.store.GetClientByName(name)
	if err != nil {
		return "", err
	}
	if client == nil || !verifySecret(secret, client.HashedSecret) {
		return "", ErrInvalidCredentials
	}

	return s.CreateToken(client.ID, client.Name)
}

// CreateToken creates a new JWT token for a client
func (s *Service) CreateToken(clientID int64, name string) (string, error) {
	now := time.Now()
	claims := &Claims{
		ClientID:   clientID,
		ClientName: name,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(s.tokenTTL).Unix(),
			IssuedAt:  now.Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// ValidateToken validates and parses a JWT token
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// hashSecret hashes a client secret using bcrypt
func hashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// verifySecret verifies a secret against its bcrypt hash
func verifySecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
