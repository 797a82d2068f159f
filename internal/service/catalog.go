package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

const catalogCacheSize = 2048

// DefaultTags are loaded by the load-tags command.
var DefaultTags = []models.Tag{
	{Name: "Breakfast", Slug: "breakfast"},
	{Name: "Lunch", Slug: "lunch"},
	{Name: "Dinner", Slug: "dinner"},
	{Name: "Desserts", Slug: "desserts"},
	{Name: "Vegetarian", Slug: "vegetarian"},
	{Name: "Meat dishes", Slug: "meat-dishes"},
}

// CatalogService serves tags and ingredients. Both are immutable reference
// data, so single-item lookups are cached in process.
type CatalogService struct {
	db    *gorm.DB
	cache *lru.Cache
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	cache, _ := lru.New(catalogCacheSize)
	return &CatalogService{db: db, cache: cache}
}

func (s *CatalogService) Tags(ctx context.Context) ([]types.TagView, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	views := make([]types.TagView, 0, len(tags))
	for _, t := range tags {
		views = append(views, types.NewTagView(t))
	}
	return views, nil
}

func (s *CatalogService) Tag(ctx context.Context, id uint) (*types.TagView, error) {
	key := fmt.Sprintf("tag:%d", id)
	if cached, ok := s.cache.Get(key); ok {
		view := cached.(types.TagView)
		return &view, nil
	}

	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, detail(ErrNotFound, "tag not found")
		}
		return nil, fmt.Errorf("failed to load tag: %w", err)
	}
	view := types.NewTagView(tag)
	s.cache.Add(key, view)
	return &view, nil
}

// Ingredients lists ingredients whose name starts with prefix, case-insensitively.
func (s *CatalogService) Ingredients(ctx context.Context, prefix string) ([]types.IngredientView, error) {
	q := s.db.WithContext(ctx).Order("name").Order("measurement_unit")
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		q = q.Where("LOWER(name) LIKE ? ESCAPE '\\'", escapeLike(strings.ToLower(prefix))+"%")
	}

	var ingredients []models.Ingredient
	if err := q.Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	views := make([]types.IngredientView, 0, len(ingredients))
	for _, i := range ingredients {
		views = append(views, types.NewIngredientView(i))
	}
	return views, nil
}

func (s *CatalogService) Ingredient(ctx context.Context, id uint) (*types.IngredientView, error) {
	key := fmt.Sprintf("ingredient:%d", id)
	if cached, ok := s.cache.Get(key); ok {
		view := cached.(types.IngredientView)
		return &view, nil
	}

	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, detail(ErrNotFound, "ingredient not found")
		}
		return nil, fmt.Errorf("failed to load ingredient: %w", err)
	}
	view := types.NewIngredientView(ingredient)
	s.cache.Add(key, view)
	return &view, nil
}

// LoadTags inserts tags, skipping any that already exist. It returns how many were new.
func (s *CatalogService) LoadTags(ctx context.Context, tags []models.Tag) (int64, error) {
	if len(tags) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&tags)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to load tags: %w", res.Error)
	}
	log.Info().Int64("created", res.RowsAffected).Int("total", len(tags)).Msg("Tags loaded")
	return res.RowsAffected, nil
}

// LoadIngredients reads ingredients from r and inserts those not yet present.
// format is "json" (a list of {name, measurement_unit}) or "csv" (name,unit rows).
func (s *CatalogService) LoadIngredients(ctx context.Context, r io.Reader, format string) (int64, error) {
	ingredients, err := parseIngredients(r, format)
	if err != nil {
		return 0, err
	}
	if len(ingredients) == 0 {
		return 0, nil
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&ingredients, 500)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to load ingredients: %w", res.Error)
	}
	log.Info().Int64("created", res.RowsAffected).Int("total", len(ingredients)).Msg("Ingredients loaded")
	return res.RowsAffected, nil
}

func parseIngredients(r io.Reader, format string) ([]models.Ingredient, error) {
	var out []models.Ingredient
	switch strings.ToLower(format) {
	case "json":
		var rows []struct {
			Name            string `json:"name"`
			MeasurementUnit string `json:"measurement_unit"`
		}
		if err := json.NewDecoder(r).Decode(&rows); err != nil {
			return nil, fmt.Errorf("invalid ingredients JSON: %w", err)
		}
		for _, row := range rows {
			out = append(out, models.Ingredient{Name: strings.TrimSpace(row.Name), MeasurementUnit: strings.TrimSpace(row.MeasurementUnit)})
		}
	case "csv":
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = 2
		records, err := reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("invalid ingredients CSV: %w", err)
		}
		for _, rec := range records {
			out = append(out, models.Ingredient{Name: strings.TrimSpace(rec[0]), MeasurementUnit: strings.TrimSpace(rec[1])})
		}
	default:
		return nil, fmt.Errorf("unsupported ingredients format %q", format)
	}

	for i, ing := range out {
		if ing.Name == "" || ing.MeasurementUnit == "" {
			return nil, fmt.Errorf("ingredient %d: name and measurement unit are required", i+1)
		}
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
