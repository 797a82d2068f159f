package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
)

const (
	shortLinkAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	maxShortLinkAttempts = 10
)

// CodeGenerator produces candidate short-link codes.
type CodeGenerator func() (string, error)

// NewShortCode returns a random code of models.ShortLinkLength alphanumeric characters.
func NewShortCode() (string, error) {
	size := big.NewInt(int64(len(shortLinkAlphabet)))
	buf := make([]byte, models.ShortLinkLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("failed to generate short link: %w", err)
		}
		buf[i] = shortLinkAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// IsShortCode reports whether code has the shape of a generated short link.
func IsShortCode(code string) bool {
	if len(code) != models.ShortLinkLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}

// allocateShortLink draws codes until one is unused by any recipe visible to tx.
// The unique index on recipes.short_link still guards against a concurrent insert.
func allocateShortLink(ctx context.Context, tx *gorm.DB, gen CodeGenerator) (string, error) {
	for attempt := 0; attempt < maxShortLinkAttempts; attempt++ {
		code, err := gen()
		if err != nil {
			return "", err
		}

		var taken int64
		if err := tx.WithContext(ctx).Model(&models.Recipe{}).Where("short_link = ?", code).Count(&taken).Error; err != nil {
			return "", fmt.Errorf("failed to check short link: %w", err)
		}
		if taken == 0 {
			return code, nil
		}
		log.Debug().Int("attempt", attempt+1).Msg("Short link collision, retrying")
	}
	return "", ErrShortLinkExhausted
}

// LinkCache caches short-link resolutions.
type LinkCache interface {
	Get(ctx context.Context, code string) (uint, bool, error)
	Set(ctx context.Context, code string, recipeID uint) error
	Delete(ctx context.Context, code string) error
}

// ShortLinkService hands out and resolves short links to recipes.
type ShortLinkService struct {
	db      *gorm.DB
	cache   LinkCache
	baseURL string
	metrics *metrics.Registry
	newCode CodeGenerator
}

// NewShortLinkService creates the service. cache may be nil, in which case every lookup hits the database.
func NewShortLinkService(db *gorm.DB, cache LinkCache, baseURL string, m *metrics.Registry) *ShortLinkService {
	return &ShortLinkService{db: db, cache: cache, baseURL: baseURL, metrics: m, newCode: NewShortCode}
}

// Link returns the absolute short URL of a recipe, assigning a code first if the recipe has none.
func (s *ShortLinkService) Link(ctx context.Context, recipeID uint) (string, error) {
	var code string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipe models.Recipe
		if err := tx.Select("id", "short_link").First(&recipe, recipeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return detail(ErrNotFound, "recipe not found")
			}
			return fmt.Errorf("failed to load recipe: %w", err)
		}
		if recipe.ShortLink != nil {
			code = *recipe.ShortLink
			return nil
		}

		var err error
		if code, err = allocateShortLink(ctx, tx, s.newCode); err != nil {
			return err
		}
		return tx.Model(&models.Recipe{}).Where("id = ?", recipeID).Update("short_link", code).Error
	})
	if err != nil {
		return "", translateWriteError(err)
	}
	return fmt.Sprintf("%s/s/%s/", s.baseURL, code), nil
}

// Resolve returns the canonical URL of the recipe behind code.
func (s *ShortLinkService) Resolve(ctx context.Context, code string) (string, error) {
	if !IsShortCode(code) {
		s.metrics.RecordShortLink("unknown")
		return "", detail(ErrNotFound, "short link not found")
	}

	if s.cache != nil {
		id, found, err := s.cache.Get(ctx, code)
		if err != nil {
			log.Warn().Err(err).Str("code", code).Msg("Short link cache unavailable")
		} else if found {
			s.metrics.RecordShortLink("hit")
			return s.recipeURL(id), nil
		}
	}

	var recipe models.Recipe
	if err := s.db.WithContext(ctx).Select("id").Where("short_link = ?", code).First(&recipe).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.RecordShortLink("unknown")
			return "", detail(ErrNotFound, "short link not found")
		}
		return "", fmt.Errorf("failed to resolve short link: %w", err)
	}
	s.metrics.RecordShortLink("miss")

	if s.cache != nil {
		if err := s.cache.Set(ctx, code, recipe.ID); err != nil {
			log.Warn().Err(err).Str("code", code).Msg("Failed to cache short link")
		}
	}
	return s.recipeURL(recipe.ID), nil
}

func (s *ShortLinkService) recipeURL(id uint) string {
	return fmt.Sprintf("%s/recipes/%d/", s.baseURL, id)
}
