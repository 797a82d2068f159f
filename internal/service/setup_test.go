package service

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

type recipeFixture struct {
	db      *gorm.DB
	images  *testhelpers.MemoryImageStore
	recipes *RecipeService
	author  *models.User
	other   *models.User
	admin   *models.User
	tags    []*models.Tag
	salt    *models.Ingredient
	sugar   *models.Ingredient
	flour   *models.Ingredient
}

func newRecipeFixture(t *testing.T) *recipeFixture {
	t.Helper()

	db := testhelpers.SetupSQLiteDB(t)
	images := testhelpers.NewMemoryImageStore()
	return &recipeFixture{
		db:      db,
		images:  images,
		recipes: NewRecipeService(db, images, nil, nil),
		author:  testhelpers.CreateUser(t, db, "author"),
		other:   testhelpers.CreateUser(t, db, "other"),
		admin:   testhelpers.CreateAdmin(t, db, "admin"),
		tags: []*models.Tag{
			testhelpers.CreateTag(t, db, "breakfast"),
			testhelpers.CreateTag(t, db, "lunch"),
			testhelpers.CreateTag(t, db, "dinner"),
		},
		salt:  testhelpers.CreateIngredient(t, db, "Salt", "g"),
		sugar: testhelpers.CreateIngredient(t, db, "Sugar", "g"),
		flour: testhelpers.CreateIngredient(t, db, "Flour", "kg"),
	}
}

func (f *recipeFixture) actor(u *models.User) Actor {
	return Actor{ID: u.ID, IsStaff: u.IsStaff}
}

func (f *recipeFixture) request(tags []uint, ingredients ...types.IngredientAmountInput) *types.RecipeWriteRequest {
	return &types.RecipeWriteRequest{
		Name:        "Pancakes",
		Text:        "Mix and fry.",
		CookingTime: 20,
		Image:       testhelpers.PNGDataURL,
		Tags:        tags,
		Ingredients: ingredients,
	}
}

func (f *recipeFixture) create(t *testing.T, author *models.User, req *types.RecipeWriteRequest) *types.RecipeView {
	t.Helper()

	view, err := f.recipes.Create(context.Background(), f.actor(author), req)
	if err != nil {
		t.Fatalf("failed to create recipe: %v", err)
	}
	return view
}

func amount(id uint, n int) types.IngredientAmountInput {
	return types.IngredientAmountInput{ID: id, Amount: n}
}
