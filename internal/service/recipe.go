package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// Actor is the authenticated user performing a write.
type Actor struct {
	ID      uint
	IsStaff bool
}

// CanModify reports whether the actor may change or delete something authored by authorID.
func (a Actor) CanModify(authorID uint) bool {
	return a.IsStaff || a.ID == authorID
}

// RecipeFilter narrows a recipe listing. Favorite and cart filters only apply to an authenticated viewer.
type RecipeFilter struct {
	AuthorID         *uint
	TagSlugs         []string
	IsFavorited      bool
	IsInShoppingCart bool
	Limit            int
	Offset           int
}

// RecipeService implements the recipe write path and recipe reads.
type RecipeService struct {
	db      *gorm.DB
	images  ImageStore
	links   LinkCache
	metrics *metrics.Registry
	newCode CodeGenerator
}

// NewRecipeService creates a recipe service. links may be nil.
func NewRecipeService(db *gorm.DB, images ImageStore, links LinkCache, m *metrics.Registry) *RecipeService {
	return &RecipeService{
		db:      db,
		images:  images,
		links:   links,
		metrics: m,
		newCode: NewShortCode,
	}
}

// Create validates req and stores a new recipe authored by actor together with its tags,
// ingredients and short link, all in one transaction.
func (s *RecipeService) Create(ctx context.Context, actor Actor, req *types.RecipeWriteRequest) (*types.RecipeView, error) {
	valid, err := ValidateRecipe(ctx, s.db, actor.ID, req)
	if err != nil {
		return nil, err
	}

	imageURL, err := storeImage(ctx, s.images, "recipes", valid.Image)
	if err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		AuthorID:    actor.ID,
		Name:        valid.Name,
		Image:       imageURL,
		Text:        valid.Text,
		CookingTime: valid.CookingTime,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := allocateShortLink(ctx, tx, s.newCode)
		if err != nil {
			return err
		}
		recipe.ShortLink = &code

		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return err
		}
		return insertAssociations(tx, recipe.ID, valid)
	})
	if err != nil {
		discardImage(ctx, s.images, imageURL)
		return nil, translateWriteError(err)
	}

	s.metrics.RecordRecipeWrite("create")
	log.Info().Uint("recipe_id", recipe.ID).Uint("author_id", actor.ID).Msg("Recipe created")
	return s.Get(ctx, &actor.ID, recipe.ID)
}

// Update replaces the recipe's fields and its complete tag and ingredient sets.
// Only the author or staff may update. Either everything changes or nothing does.
func (s *RecipeService) Update(ctx context.Context, actor Actor, id uint, req *types.RecipeWriteRequest) (*types.RecipeView, error) {
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(existing.AuthorID) {
		return nil, detail(ErrPermissionDenied, "only the author or an administrator can change this recipe")
	}

	valid, err := ValidateRecipe(ctx, s.db, existing.AuthorID, req)
	if err != nil {
		return nil, err
	}

	imageURL, err := storeImage(ctx, s.images, "recipes", valid.Image)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"name":         valid.Name,
			"text":         valid.Text,
			"cooking_time": valid.CookingTime,
			"image":        imageURL,
		}
		if existing.ShortLink == nil {
			code, err := allocateShortLink(ctx, tx, s.newCode)
			if err != nil {
				return err
			}
			updates["short_link"] = code
		}

		res := tx.Model(&models.Recipe{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return detail(ErrNotFound, "recipe not found")
		}

		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		return insertAssociations(tx, id, valid)
	})
	if err != nil {
		discardImage(ctx, s.images, imageURL)
		return nil, translateWriteError(err)
	}

	if existing.Image != imageURL {
		discardImage(ctx, s.images, existing.Image)
	}

	s.metrics.RecordRecipeWrite("update")
	log.Info().Uint("recipe_id", id).Uint("actor_id", actor.ID).Msg("Recipe updated")
	return s.Get(ctx, &actor.ID, id)
}

// Delete removes a recipe with its associations, favorites and cart entries.
func (s *RecipeService) Delete(ctx context.Context, actor Actor, id uint) error {
	existing, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanModify(existing.AuthorID) {
		return detail(ErrPermissionDenied, "only the author or an administrator can delete this recipe")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.RecipeTag{},
			&models.RecipeIngredient{},
			&models.Favorite{},
			&models.ShoppingCartItem{},
		} {
			if err := tx.Where("recipe_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&models.Recipe{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return detail(ErrNotFound, "recipe not found")
		}
		return nil
	})
	if err != nil {
		return translateWriteError(err)
	}

	if existing.ShortLink != nil && s.links != nil {
		if err := s.links.Delete(ctx, *existing.ShortLink); err != nil {
			log.Warn().Err(err).Uint("recipe_id", id).Msg("Failed to invalidate short link cache")
		}
	}
	discardImage(ctx, s.images, existing.Image)

	s.metrics.RecordRecipeWrite("delete")
	log.Info().Uint("recipe_id", id).Uint("actor_id", actor.ID).Msg("Recipe deleted")
	return nil
}

// Get returns a recipe as seen by viewer. A nil viewer is anonymous.
func (s *RecipeService) Get(ctx context.Context, viewer *uint, id uint) (*types.RecipeView, error) {
	var recipe models.Recipe
	if err := withRecipeDetails(s.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, detail(ErrNotFound, "recipe not found")
		}
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}

	views, err := recipeViews(ctx, s.db, viewer, []models.Recipe{recipe})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// List returns one page of recipes, newest first, and the total number matching filter.
func (s *RecipeService) List(ctx context.Context, viewer *uint, filter RecipeFilter) ([]types.RecipeView, int64, error) {
	db := s.db.WithContext(ctx)
	q := db.Model(&models.Recipe{})

	if filter.AuthorID != nil {
		q = q.Where("recipes.author_id = ?", *filter.AuthorID)
	}
	if len(filter.TagSlugs) > 0 {
		tagged := db.Model(&models.RecipeTag{}).
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.TagSlugs)
		q = q.Where("recipes.id IN (?)", tagged)
	}
	if viewer != nil && filter.IsFavorited {
		q = q.Where("recipes.id IN (?)", db.Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", *viewer))
	}
	if viewer != nil && filter.IsInShoppingCart {
		q = q.Where("recipes.id IN (?)", db.Model(&models.ShoppingCartItem{}).Select("recipe_id").Where("user_id = ?", *viewer))
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	var recipes []models.Recipe
	page := withRecipeDetails(q).Order("recipes.created_at DESC").Order("recipes.id DESC")
	if filter.Limit > 0 {
		page = page.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := page.Find(&recipes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}

	views, err := recipeViews(ctx, s.db, viewer, recipes)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (s *RecipeService) load(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, detail(ErrNotFound, "recipe not found")
		}
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	return &recipe, nil
}

func insertAssociations(tx *gorm.DB, recipeID uint, valid *ValidatedRecipe) error {
	tags := make([]models.RecipeTag, 0, len(valid.Tags))
	for _, tag := range valid.Tags {
		tags = append(tags, models.RecipeTag{RecipeID: recipeID, TagID: tag.ID})
	}
	if err := tx.Omit(clause.Associations).Create(&tags).Error; err != nil {
		return err
	}

	ingredients := make([]models.RecipeIngredient, 0, len(valid.Ingredients))
	for _, item := range valid.Ingredients {
		ingredients = append(ingredients, models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: item.Ingredient.ID,
			Amount:       item.Amount,
		})
	}
	return tx.Omit(clause.Associations).Create(&ingredients).Error
}

func withRecipeDetails(db *gorm.DB) *gorm.DB {
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id") }
	return db.
		Preload("Author").
		Preload("Tags", byID).
		Preload("Tags.Tag").
		Preload("Ingredients", byID).
		Preload("Ingredients.Ingredient")
}

// translateWriteError maps storage uniqueness failures to ErrConflict and passes everything else through.
func translateWriteError(err error) error {
	if database.IsUniqueViolation(err) {
		return detail(ErrConflict, ErrConflict.Error())
	}
	return err
}
