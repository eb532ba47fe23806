package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/shadowtwin/internal/database"
	"github.com/snappy-loop/shadowtwin/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials signals wrong email or password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrWeakPassword signals a password shorter than 8 characters.
	ErrWeakPassword = errors.New("auth: password must be at least 8 characters")
	// ErrInvalidEmail signals an unparsable email address.
	ErrInvalidEmail = errors.New("auth: invalid email")
	// ErrInvalidToken signals a missing, expired or forged session token.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// UserStore is the identity row store
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service handles sign up, sign in and session tokens
type Service struct {
	users     UserStore
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewService creates a new auth service
func NewService(users UserStore, jwtSecret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{users: users, jwtSecret: []byte(jwtSecret), ttl: ttl, now: time.Now}
}

// SignUp creates an account and returns a session for it
func (s *Service) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user := &models.User{ID: uuid.New(), Email: email, PasswordHash: string(hash), CreatedAt: s.now()}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	log.Info().Str("user_id", user.ID.String()).Msg("User signed up")
	return s.session(user)
}

// SignIn verifies credentials and returns a new session
func (s *Service) SignIn(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(user)
}

// CurrentUser loads the user a verified token belongs to
func (s *Service) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) session(user *models.User) (*models.AuthResponse, error) {
	expires := s.now().Add(s.ttl)
	token, err := s.IssueToken(user.ID, expires)
	if err != nil {
		return nil, fmt.Errorf("auth: generate token: %w", err)
	}
	return &models.AuthResponse{Token: token, ExpiresAt: expires, User: *user}, nil
}

// IssueToken signs an HS256 token for userID valid until expires
func (s *Service) IssueToken(userID uuid.UUID, expires time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// VerifyToken validates a token and returns its user id
func (s *Service) VerifyToken(tokenString string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
