package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"backend-petsancheck/internal/db"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("token invalid")
)

var (
	hashPasswordFn = bcrypt.GenerateFromPassword
	signTokenFn    = (*Service).signToken
)

type Service struct {
	secret []byte
	db     db.Querier
}

type Claims struct {
	WalkerID string `json:"walker_id"`
	jwt.RegisteredClaims
}

func NewService(secret string, q db.Querier) *Service {
	return &Service{
		secret: []byte(secret),
		db:     q,
	}
}

// IssueToken signs a short-lived access token for walkerID.
func IssueToken(secret, walkerID string, ttl time.Duration) (string, error) {
	return NewService(secret, nil).signToken(walkerID, ttl)
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (Walker, TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return Walker{}, TokenResponse{}, errors.New("email and password required")
	}
	hash, err := hashPasswordFn([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Walker{}, TokenResponse{}, err
	}

	walker := Walker{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO walkers (id, email, display_name, password_hash)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, walker.ID, walker.Email, walker.DisplayName, walker.PasswordHash)
	if err := row.Scan(&walker.CreatedAt); err != nil {
		return Walker{}, TokenResponse{}, fmt.Errorf("insert walker: %w", err)
	}

	tokens, err := s.GenerateTokens(ctx, walker.ID)
	if err != nil {
		return Walker{}, TokenResponse{}, err
	}
	return walker, tokens, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (Walker, TokenResponse, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, email, display_name, password_hash, created_at
		FROM walkers WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(req.Email)))

	var walker Walker
	if err := row.Scan(&walker.ID, &walker.Email, &walker.DisplayName, &walker.PasswordHash, &walker.CreatedAt); err != nil {
		return Walker{}, TokenResponse{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(walker.PasswordHash), []byte(req.Password)); err != nil {
		return Walker{}, TokenResponse{}, ErrInvalidCredentials
	}

	tokens, err := s.GenerateTokens(ctx, walker.ID)
	if err != nil {
		return Walker{}, TokenResponse{}, err
	}
	return walker, tokens, nil
}

func (s *Service) GenerateTokens(ctx context.Context, walkerID string) (TokenResponse, error) {
	access, err := signTokenFn(s, walkerID, accessTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	refresh, err := signTokenFn(s, walkerID, refreshTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	if err := s.saveRefreshToken(ctx, refresh, walkerID, refreshTokenTTL); err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) ValidateRefreshToken(ctx context.Context, token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}

	walkerID, expiresAt, err := s.lookupRefreshToken(ctx, token)
	if err != nil || walkerID != claims.WalkerID || time.Now().After(expiresAt) {
		return "", fmt.Errorf("%w: refresh token rejected", ErrTokenInvalid)
	}
	return claims.WalkerID, nil
}

func (s *Service) ValidateAccessToken(token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}
	return claims.WalkerID, nil
}

func (s *Service) signToken(walkerID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		WalkerID: walkerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.WalkerID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (s *Service) saveRefreshToken(ctx context.Context, token, walkerID string, ttl time.Duration) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, walker_id, token, expires_at)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), walkerID, token, time.Now().Add(ttl))
	return err
}

func (s *Service) lookupRefreshToken(ctx context.Context, token string) (string, time.Time, error) {
	row := s.db.QueryRow(ctx, `
		SELECT walker_id, expires_at
		FROM refresh_tokens
		WHERE token = $1 AND revoked_at IS NULL
	`, token)
	var walkerID string
	var expiresAt time.Time
	if err := row.Scan(&walkerID, &expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return walkerID, expiresAt, nil
}
