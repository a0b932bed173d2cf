package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
	"github.com/atvirokodosprendimai/mongoschema/internal/core/ports"
)

var ErrUnauthorized = errors.New("unauthorized")

type AuthService struct {
	repo ports.APIKeyRepository
	now  func() time.Time
}

func NewAuthService(repo ports.APIKeyRepository) *AuthService {
	return &AuthService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Enabled reports whether at least one active key exists. Without keys the
// HTTP API is open.
func (s *AuthService) Enabled(ctx context.Context) (bool, error) {
	n, err := s.repo.CountActive(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.APIKey, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.APIKey{}, ErrUnauthorized
	}

	hash := HashToken(token)
	apiKey, err := s.repo.FindByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.APIKey{}, ErrUnauthorized
		}
		return domain.APIKey{}, err
	}
	if !apiKey.Active {
		return domain.APIKey{}, ErrUnauthorized
	}

	usedAt := s.now()
	if err := s.repo.MarkUsed(ctx, hash, usedAt); err != nil {
		return domain.APIKey{}, fmt.Errorf("mark api key used: %w", err)
	}
	apiKey.LastUsedAt = &usedAt
	return apiKey, nil
}

// Register stores token under name. Only the hash is persisted.
func (s *AuthService) Register(ctx context.Context, name, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("api key token must not be empty")
	}
	if strings.TrimSpace(name) == "" {
		name = "default"
	}
	return s.repo.Upsert(ctx, domain.APIKey{
		TokenHash: HashToken(token),
		Name:      name,
		Active:    true,
		CreatedAt: s.now(),
	})
}

// Issue generates a random token, registers it and returns the plain token.
func (s *AuthService) Issue(ctx context.Context, name string) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	token := "msk_" + hex.EncodeToString(buf)
	if err := s.Register(ctx, name, token); err != nil {
		return "", err
	}
	return token, nil
}

func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
