package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// ShoppingListHeader is the first line of a rendered shopping list.
const ShoppingListHeader = "Shopping list:"

// ShoppingListItem is one aggregated ingredient of a shopping list.
type ShoppingListItem struct {
	Name            string
	MeasurementUnit string
	Amount          int64
}

// RelationService manages favorites, the shopping cart and subscriptions.
type RelationService struct {
	db      *gorm.DB
	metrics *metrics.Registry
}

func NewRelationService(db *gorm.DB, m *metrics.Registry) *RelationService {
	return &RelationService{db: db, metrics: m}
}

func (s *RelationService) AddFavorite(ctx context.Context, userID, recipeID uint) (*types.RecipeShortView, error) {
	recipe, err := s.recipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	row := &models.Favorite{UserID: userID, RecipeID: recipeID}
	if err := s.add(ctx, row, "user_id = ? AND recipe_id = ?", []interface{}{userID, recipeID}, "recipe is already in favorites"); err != nil {
		return nil, err
	}
	s.metrics.RecordRelation("favorite", "add")
	view := types.NewRecipeShortView(recipe)
	return &view, nil
}

func (s *RelationService) RemoveFavorite(ctx context.Context, userID, recipeID uint) error {
	if _, err := s.recipe(ctx, recipeID); err != nil {
		return err
	}
	if err := s.remove(ctx, &models.Favorite{}, "user_id = ? AND recipe_id = ?", []interface{}{userID, recipeID}, "recipe is not in favorites"); err != nil {
		return err
	}
	s.metrics.RecordRelation("favorite", "remove")
	return nil
}

func (s *RelationService) AddToCart(ctx context.Context, userID, recipeID uint) (*types.RecipeShortView, error) {
	recipe, err := s.recipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	row := &models.ShoppingCartItem{UserID: userID, RecipeID: recipeID}
	if err := s.add(ctx, row, "user_id = ? AND recipe_id = ?", []interface{}{userID, recipeID}, "recipe is already in the shopping cart"); err != nil {
		return nil, err
	}
	s.metrics.RecordRelation("cart", "add")
	view := types.NewRecipeShortView(recipe)
	return &view, nil
}

func (s *RelationService) RemoveFromCart(ctx context.Context, userID, recipeID uint) error {
	if _, err := s.recipe(ctx, recipeID); err != nil {
		return err
	}
	if err := s.remove(ctx, &models.ShoppingCartItem{}, "user_id = ? AND recipe_id = ?", []interface{}{userID, recipeID}, "recipe is not in the shopping cart"); err != nil {
		return err
	}
	s.metrics.RecordRelation("cart", "remove")
	return nil
}

// Subscribe makes userID follow authorID. recipesLimit bounds the recipe preview; zero or less means all.
func (s *RelationService) Subscribe(ctx context.Context, userID, authorID uint, recipesLimit int) (*types.SubscriptionView, error) {
	author, err := s.user(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if userID == authorID {
		return nil, detail(ErrSelfSubscription, ErrSelfSubscription.Error())
	}
	row := &models.Subscription{UserID: userID, AuthorID: authorID}
	if err := s.add(ctx, row, "user_id = ? AND author_id = ?", []interface{}{userID, authorID}, "already subscribed to this author"); err != nil {
		return nil, err
	}
	s.metrics.RecordRelation("subscription", "add")

	views, err := s.subscriptionViews(ctx, []models.User{*author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *RelationService) Unsubscribe(ctx context.Context, userID, authorID uint) error {
	if _, err := s.user(ctx, authorID); err != nil {
		return err
	}
	if err := s.remove(ctx, &models.Subscription{}, "user_id = ? AND author_id = ?", []interface{}{userID, authorID}, "not subscribed to this author"); err != nil {
		return err
	}
	s.metrics.RecordRelation("subscription", "remove")
	return nil
}

// Subscriptions lists the authors userID follows, ordered by username.
func (s *RelationService) Subscriptions(ctx context.Context, userID uint, limit, offset, recipesLimit int) ([]types.SubscriptionView, int64, error) {
	db := s.db.WithContext(ctx)
	q := db.Model(&models.User{}).
		Where("id IN (?)", db.Model(&models.Subscription{}).Select("author_id").Where("user_id = ?", userID))

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var authors []models.User
	page := q.Order("username")
	if limit > 0 {
		page = page.Limit(limit).Offset(offset)
	}
	if err := page.Find(&authors).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	views, err := s.subscriptionViews(ctx, authors, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// ShoppingList sums ingredient amounts over every recipe in the user's cart,
// grouped by ingredient name and unit and ordered by name.
func (s *RelationService) ShoppingList(ctx context.Context, userID uint) ([]ShoppingListItem, error) {
	db := s.db.WithContext(ctx)

	var inCart int64
	if err := db.Model(&models.ShoppingCartItem{}).Where("user_id = ?", userID).Count(&inCart).Error; err != nil {
		return nil, fmt.Errorf("failed to check shopping cart: %w", err)
	}
	if inCart == 0 {
		return nil, detail(ErrEmptyShoppingCart, ErrEmptyShoppingCart.Error())
	}

	items := []ShoppingListItem{}
	err := db.Table("shopping_carts").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS amount").
		Joins("JOIN recipe_ingredients ON recipe_ingredients.recipe_id = shopping_carts.recipe_id").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("shopping_carts.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name, ingredients.measurement_unit").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate shopping list: %w", err)
	}

	s.metrics.RecordShoppingList()
	return items, nil
}

// RenderShoppingList formats items as a header line followed by one "name (unit): total" line each.
func RenderShoppingList(items []ShoppingListItem) string {
	var b strings.Builder
	b.WriteString(ShoppingListHeader)
	for _, item := range items {
		fmt.Fprintf(&b, "\n%s (%s): %d", item.Name, item.MeasurementUnit, item.Amount)
	}
	b.WriteString("\n")
	return b.String()
}

type authorRecipeCount struct {
	AuthorID uint
	Total    int64
}

func (s *RelationService) subscriptionViews(ctx context.Context, authors []models.User, recipesLimit int) ([]types.SubscriptionView, error) {
	views := make([]types.SubscriptionView, 0, len(authors))
	if len(authors) == 0 {
		return views, nil
	}

	ids := make([]uint, 0, len(authors))
	for _, a := range authors {
		ids = append(ids, a.ID)
	}

	var counts []authorRecipeCount
	err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", ids).
		Group("author_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}
	totals := make(map[uint]int64, len(counts))
	for _, c := range counts {
		totals[c.AuthorID] = c.Total
	}

	for i := range authors {
		var recipes []models.Recipe
		q := s.db.WithContext(ctx).Where("author_id = ?", authors[i].ID).Order("created_at DESC").Order("id DESC")
		if recipesLimit > 0 {
			q = q.Limit(recipesLimit)
		}
		if err := q.Find(&recipes).Error; err != nil {
			return nil, fmt.Errorf("failed to load recipes of author %d: %w", authors[i].ID, err)
		}
		views = append(views, types.NewSubscriptionView(&authors[i], recipes, totals[authors[i].ID]))
	}
	return views, nil
}

// add inserts row unless a row matching query already exists. A unique violation
// from a concurrent insert is reported the same way as the pre-check.
func (s *RelationService) add(ctx context.Context, row interface{}, query string, args []interface{}, exists string) error {
	db := s.db.WithContext(ctx)

	var n int64
	if err := db.Model(row).Where(query, args...).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check %T: %w", row, err)
	}
	if n > 0 {
		return detail(ErrAlreadyExists, exists)
	}

	if err := db.Create(row).Error; err != nil {
		if database.IsUniqueViolation(err) {
			log.Debug().Err(err).Msgf("Concurrent insert of %T", row)
			return detail(ErrAlreadyExists, exists)
		}
		return fmt.Errorf("failed to create %T: %w", row, err)
	}
	return nil
}

// remove deletes exactly the row matching query, or reports ErrRelationNotFound.
func (s *RelationService) remove(ctx context.Context, model interface{}, query string, args []interface{}, missing string) error {
	res := s.db.WithContext(ctx).Where(query, args...).Delete(model)
	if res.Error != nil {
		return fmt.Errorf("failed to delete %T: %w", model, res.Error)
	}
	if res.RowsAffected == 0 {
		return detail(ErrRelationNotFound, missing)
	}
	return nil
}

func (s *RelationService) recipe(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, detail(ErrNotFound, "recipe not found")
		}
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	return &recipe, nil
}

func (s *RelationService) user(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, detail(ErrNotFound, "user not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}
