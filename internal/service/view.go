package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// recipeViews maps recipes with preloaded details to views, computing the viewer's
// flags with one query per flag for the whole batch.
func recipeViews(ctx context.Context, db *gorm.DB, viewer *uint, recipes []models.Recipe) ([]types.RecipeView, error) {
	views := make([]types.RecipeView, 0, len(recipes))
	if len(recipes) == 0 {
		return views, nil
	}

	var favorited, inCart, subscribed map[uint]bool
	if viewer != nil {
		recipeIDs := make([]uint, 0, len(recipes))
		authorIDs := make([]uint, 0, len(recipes))
		for _, r := range recipes {
			recipeIDs = append(recipeIDs, r.ID)
			authorIDs = append(authorIDs, r.AuthorID)
		}

		var err error
		if favorited, err = pluckSet(ctx, db, &models.Favorite{}, "recipe_id", "user_id = ? AND recipe_id IN ?", *viewer, recipeIDs); err != nil {
			return nil, err
		}
		if inCart, err = pluckSet(ctx, db, &models.ShoppingCartItem{}, "recipe_id", "user_id = ? AND recipe_id IN ?", *viewer, recipeIDs); err != nil {
			return nil, err
		}
		if subscribed, err = subscribedTo(ctx, db, *viewer, authorIDs); err != nil {
			return nil, err
		}
	}

	for i := range recipes {
		r := &recipes[i]
		views = append(views, types.NewRecipeView(r, types.RecipeFlags{
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			AuthorSubscribed: subscribed[r.AuthorID],
		}))
	}
	return views, nil
}

// subscribedTo returns which of authorIDs the viewer follows.
func subscribedTo(ctx context.Context, db *gorm.DB, viewer uint, authorIDs []uint) (map[uint]bool, error) {
	return pluckSet(ctx, db, &models.Subscription{}, "author_id", "user_id = ? AND author_id IN ?", viewer, authorIDs)
}

func pluckSet(ctx context.Context, db *gorm.DB, model interface{}, column, query string, args ...interface{}) (map[uint]bool, error) {
	var ids []uint
	if err := db.WithContext(ctx).Model(model).Where(query, args...).Pluck(column, &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load %T flags: %w", model, err)
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
