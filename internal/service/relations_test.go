package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func TestFavoriteToggle(t *testing.T) {
	f := newRecipeFixture(t)
	relations := NewRelationService(f.db, nil)
	ctx := context.Background()
	recipe := f.create(t, f.author, f.request([]uint{f.tags[0].ID}, amount(f.salt.ID, 1)))

	view, err := relations.AddFavorite(ctx, f.other.ID, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, recipe.ID, view.ID)
	assert.Equal(t, recipe.Name, view.Name)

	_, err = relations.AddFavorite(ctx, f.other.ID, recipe.ID)
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, int64(1), testhelpers.Count(t, f.db, &models.Favorite{}, "user_id = ?", f.other.ID))

	require.NoError(t, relations.RemoveFavorite(ctx, f.other.ID, recipe.ID))
	assert.ErrorIs(t, relations.RemoveFavorite(ctx, f.other.ID, recipe.ID), ErrRelationNotFound)

	_, err = relations.AddFavorite(ctx, f.other.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, relations.RemoveFavorite(ctx, f.other.ID, 9999), ErrNotFound)
}

func TestAddRelationLosingInsertRace(t *testing.T) {
	f := newRecipeFixture(t)
	relations := NewRelationService(f.db, nil)
	ctx := context.Background()
	recipe := f.create(t, f.author, f.request([]uint{f.tags[0].ID}, amount(f.salt.ID, 1)))

	// The existence check passes but a concurrent request wins the insert.
	testhelpers.FailCreates(t, f.db, "favorites", gorm.ErrDuplicatedKey)
	testhelpers.FailCreates(t, f.db, "shopping_carts", &pq.Error{Code: "23505"})

	_, err := relations.AddFavorite(ctx, f.other.ID, recipe.ID)
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.EqualError(t, err, "recipe is already in favorites")

	_, err = relations.AddToCart(ctx, f.other.ID, recipe.ID)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	assert.Zero(t, testhelpers.Count(t, f.db, &models.Favorite{}, ""))
	assert.Zero(t, testhelpers.Count(t, f.db, &models.ShoppingCartItem{}, ""))
}

func TestAddRelationStorageFailure(t *testing.T) {
	f := newRecipeFixture(t)
	relations := NewRelationService(f.db, nil)
	broken := errors.New("disk I/O error")
	testhelpers.FailCreates(t, f.db, "subscriptions", broken)

	_, err := relations.Subscribe(context.Background(), f.other.ID, f.author.ID, 0)
	require.ErrorIs(t, err, broken)
	assert.NotErrorIs(t, err, ErrAlreadyExists)
	assert.Zero(t, testhelpers.Count(t, f.db, &models.Subscription{}, ""))
}

func TestCartToggle(t *testing.T) {
	f := newRecipeFixture(t)
	relations := NewRelationService(f.db, nil)
	ctx := context.Background()
	recipe := f.create(t, f.author, f.request([]uint{f.tags[0].ID}, amount(f.salt.ID, 1)))

	_, err := relations.AddToCart(ctx, f.other.ID, recipe.ID)
	require.NoError(t, err)
	_, err = relations.AddToCart(ctx, f.other.ID, recipe.ID)
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, int64(1), testhelpers.Count(t, f.db, &models.ShoppingCartItem{}, "user_id = ?", f.other.ID))

	require.NoError(t, relations.RemoveFromCart(ctx, f.other.ID, recipe.ID))
	assert.ErrorIs(t, relations.RemoveFromCart(ctx, f.other.ID, recipe.ID), ErrRelationNotFound)
}

func TestSubscriptions(t *testing.T) {
	f := newRecipeFixture(t)
	relations := NewRelationService(f.db, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.create(t, f.author, f.request([]uint{f.tags[0].ID}, amount(f.salt.ID, 1)))
	}

	view, err := relations.Subscribe(ctx, f.other.ID, f.author.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, f.author.ID, view.ID)
	assert.True(t, view.IsSubscribed)
	assert.Len(t, view.Recipes, 2)
	assert.Equal(t, int64(3), view.RecipesCount)

	_, err = relations.Subscribe(ctx, f.other.ID, f.author.ID, 0)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	list, total, err := relations.Subscriptions(ctx, f.other.ID, 10, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Recipes, 3)

	require.NoError(t, relations.Unsubscribe(ctx, f.other.ID, f.author.ID))
	assert.ErrorIs(t, relations.Unsubscribe(ctx, f.other.ID, f.author.ID), ErrRelationNotFound)

	_, err = relations.Subscribe(ctx, f.other.ID, 9999, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSelfSubscriptionAlwaysFails(t *testing.T) {
	f := newRecipeFixture(t)
	relations := NewRelationService(f.db, nil)
	ctx := context.Background()

	_, err := relations.Subscribe(ctx, f.author.ID, f.author.ID, 0)
	assert.ErrorIs(t, err, ErrSelfSubscription)

	_, err = relations.Subscribe(ctx, f.author.ID, f.other.ID, 0)
	require.NoError(t, err)
	_, err = relations.Subscribe(ctx, f.author.ID, f.author.ID, 0)
	assert.ErrorIs(t, err, ErrSelfSubscription)
	assert.Zero(t, testhelpers.Count(t, f.db, &models.Subscription{}, "user_id = author_id"))
}

func TestShoppingListSumsAcrossRecipes(t *testing.T) {
	f := newRecipeFixture(t)
	relations := NewRelationService(f.db, nil)
	ctx := context.Background()

	x := testhelpers.CreateRecipe(t, f.db, f.author, "x", []*models.Tag{f.tags[0]}, map[uint]int{f.salt.ID: 5, f.flour.ID: 1})
	y := testhelpers.CreateRecipe(t, f.db, f.author, "y", []*models.Tag{f.tags[0]}, map[uint]int{f.salt.ID: 3, f.sugar.ID: 2})
	z := testhelpers.CreateRecipe(t, f.db, f.author, "z", []*models.Tag{f.tags[0]}, map[uint]int{f.salt.ID: 100})
	testhelpers.AddToCart(t, f.db, f.other, x)
	testhelpers.AddToCart(t, f.db, f.other, y)
	testhelpers.AddToCart(t, f.db, f.author, z)

	items, err := relations.ShoppingList(ctx, f.other.ID)
	require.NoError(t, err)
	assert.Equal(t, []ShoppingListItem{
		{Name: "Flour", MeasurementUnit: "kg", Amount: 1},
		{Name: "Salt", MeasurementUnit: "g", Amount: 8},
		{Name: "Sugar", MeasurementUnit: "g", Amount: 2},
	}, items)

	assert.Equal(t, "Shopping list:\nFlour (kg): 1\nSalt (g): 8\nSugar (g): 2\n", RenderShoppingList(items))
}

func TestShoppingListSeparatesUnits(t *testing.T) {
	f := newRecipeFixture(t)
	relations := NewRelationService(f.db, nil)
	saltKg := testhelpers.CreateIngredient(t, f.db, "Salt", "kg")

	x := testhelpers.CreateRecipe(t, f.db, f.author, "x", nil, map[uint]int{f.salt.ID: 5, saltKg.ID: 1})
	testhelpers.AddToCart(t, f.db, f.other, x)

	items, err := relations.ShoppingList(context.Background(), f.other.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestShoppingListEmptyCart(t *testing.T) {
	f := newRecipeFixture(t)
	relations := NewRelationService(f.db, nil)

	_, err := relations.ShoppingList(context.Background(), f.other.ID)
	assert.ErrorIs(t, err, ErrEmptyShoppingCart)
}

func TestShoppingListCartWithoutIngredients(t *testing.T) {
	f := newRecipeFixture(t)
	relations := NewRelationService(f.db, nil)

	bare := testhelpers.CreateRecipe(t, f.db, f.author, "bare", nil, nil)
	testhelpers.AddToCart(t, f.db, f.other, bare)

	items, err := relations.ShoppingList(context.Background(), f.other.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, "Shopping list:\n", RenderShoppingList(items))
}
