package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// IngredientAmount is a resolved ingredient together with the amount a recipe uses.
type IngredientAmount struct {
	Ingredient models.Ingredient
	Amount     int
}

// ValidatedRecipe is a recipe write request that passed validation, with every reference resolved.
type ValidatedRecipe struct {
	AuthorID    uint
	Name        string
	Text        string
	CookingTime int
	Image       *Image
	Tags        []models.Tag
	Ingredients []IngredientAmount
}

// ValidateRecipe checks req and resolves its tag and ingredient ids.
// Every rule is evaluated and all failures are returned together in one *ValidationError.
func ValidateRecipe(ctx context.Context, db *gorm.DB, actorID uint, req *types.RecipeWriteRequest) (*ValidatedRecipe, error) {
	verr := NewValidationError()
	out := &ValidatedRecipe{
		AuthorID:    actorID,
		Name:        strings.TrimSpace(req.Name),
		Text:        strings.TrimSpace(req.Text),
		CookingTime: req.CookingTime,
	}

	if req.Image == "" {
		verr.Add("image", "this field is required")
	} else if img, err := DecodeDataURL(req.Image); err != nil {
		verr.Add("image", err.Error())
	} else {
		out.Image = img
	}

	tags, err := resolveTags(ctx, db, req.Tags, verr)
	if err != nil {
		return nil, err
	}
	out.Tags = tags

	ingredients, err := resolveIngredients(ctx, db, req.Ingredients, verr)
	if err != nil {
		return nil, err
	}
	out.Ingredients = ingredients

	if req.CookingTime < models.MinCookingTime || req.CookingTime > models.MaxCookingTime {
		verr.Add("cooking_time", fmt.Sprintf("must be between %d and %d", models.MinCookingTime, models.MaxCookingTime))
	}

	switch {
	case out.Name == "":
		verr.Add("name", "this field is required")
	case utf8.RuneCountInString(out.Name) > models.MaxNameLength:
		verr.Add("name", fmt.Sprintf("must be at most %d characters", models.MaxNameLength))
	}
	if out.Text == "" {
		verr.Add("text", "this field is required")
	}

	if err := verr.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func resolveTags(ctx context.Context, db *gorm.DB, ids []uint, verr *ValidationError) ([]models.Tag, error) {
	if len(ids) == 0 {
		verr.Add("tags", "at least one tag is required")
		return nil, nil
	}

	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			verr.Add("tags", fmt.Sprintf("tag %d is listed more than once", id))
		}
		seen[id] = true
	}

	var found []models.Tag
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	byID := make(map[uint]models.Tag, len(found))
	for _, tag := range found {
		byID[tag.ID] = tag
	}

	tags := make([]models.Tag, 0, len(ids))
	done := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if done[id] {
			continue
		}
		done[id] = true
		tag, ok := byID[id]
		if !ok {
			verr.Add("tags", fmt.Sprintf("tag %d does not exist", id))
			continue
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func resolveIngredients(ctx context.Context, db *gorm.DB, inputs []types.IngredientAmountInput, verr *ValidationError) ([]IngredientAmount, error) {
	if len(inputs) == 0 {
		verr.Add("ingredients", "at least one ingredient is required")
		return nil, nil
	}

	ids := make([]uint, 0, len(inputs))
	seen := make(map[uint]bool, len(inputs))
	for _, in := range inputs {
		if seen[in.ID] {
			verr.Add("ingredients", fmt.Sprintf("ingredient %d is listed more than once", in.ID))
		}
		seen[in.ID] = true
		ids = append(ids, in.ID)

		if in.Amount < models.MinAmount || in.Amount > models.MaxAmount {
			verr.Add("ingredients", fmt.Sprintf("amount of ingredient %d must be between %d and %d", in.ID, models.MinAmount, models.MaxAmount))
		}
	}

	var found []models.Ingredient
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to load ingredients: %w", err)
	}
	byID := make(map[uint]models.Ingredient, len(found))
	for _, ing := range found {
		byID[ing.ID] = ing
	}

	out := make([]IngredientAmount, 0, len(inputs))
	done := make(map[uint]bool, len(inputs))
	for _, in := range inputs {
		if done[in.ID] {
			continue
		}
		done[in.ID] = true
		ing, ok := byID[in.ID]
		if !ok {
			verr.Add("ingredients", fmt.Sprintf("ingredient %d does not exist", in.ID))
			continue
		}
		out = append(out, IngredientAmount{Ingredient: ing, Amount: in.Amount})
	}
	return out, nil
}
