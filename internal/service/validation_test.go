package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/types"
)

func validationFields(t *testing.T, err error) map[string][]string {
	t.Helper()

	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	return verr.Fields
}

func TestValidateRecipeAccepts(t *testing.T) {
	f := newRecipeFixture(t)
	req := f.request([]uint{f.tags[0].ID, f.tags[1].ID}, amount(f.salt.ID, 5), amount(f.flour.ID, 2))

	valid, err := ValidateRecipe(context.Background(), f.db, f.author.ID, req)
	require.NoError(t, err)

	assert.Equal(t, f.author.ID, valid.AuthorID)
	assert.Equal(t, "Pancakes", valid.Name)
	assert.Equal(t, "png", valid.Image.Format)
	require.Len(t, valid.Tags, 2)
	assert.Equal(t, "breakfast", valid.Tags[0].Slug)
	require.Len(t, valid.Ingredients, 2)
	assert.Equal(t, "Salt", valid.Ingredients[0].Ingredient.Name)
	assert.Equal(t, 5, valid.Ingredients[0].Amount)
}

func TestValidateRecipeAmountBounds(t *testing.T) {
	f := newRecipeFixture(t)

	tests := []struct {
		amount int
		valid  bool
	}{
		{-1, false},
		{0, false},
		{1, true},
		{32000, true},
		{32001, false},
	}

	for _, tt := range tests {
		req := f.request([]uint{f.tags[0].ID}, amount(f.salt.ID, tt.amount))
		_, err := ValidateRecipe(context.Background(), f.db, f.author.ID, req)
		if tt.valid {
			assert.NoError(t, err, "amount %d", tt.amount)
			continue
		}
		fields := validationFields(t, err)
		assert.Contains(t, fields, "ingredients", "amount %d", tt.amount)
	}
}

func TestValidateRecipeCookingTimeBounds(t *testing.T) {
	f := newRecipeFixture(t)

	for _, cookingTime := range []int{0, -5, 32001} {
		req := f.request([]uint{f.tags[0].ID}, amount(f.salt.ID, 1))
		req.CookingTime = cookingTime
		_, err := ValidateRecipe(context.Background(), f.db, f.author.ID, req)
		assert.Contains(t, validationFields(t, err), "cooking_time", "cooking_time %d", cookingTime)
	}

	for _, cookingTime := range []int{1, 32000} {
		req := f.request([]uint{f.tags[0].ID}, amount(f.salt.ID, 1))
		req.CookingTime = cookingTime
		_, err := ValidateRecipe(context.Background(), f.db, f.author.ID, req)
		assert.NoError(t, err, "cooking_time %d", cookingTime)
	}
}

func TestValidateRecipeRejectsDuplicates(t *testing.T) {
	f := newRecipeFixture(t)

	req := f.request([]uint{f.tags[0].ID, f.tags[0].ID}, amount(f.salt.ID, 1), amount(f.salt.ID, 2))
	_, err := ValidateRecipe(context.Background(), f.db, f.author.ID, req)

	fields := validationFields(t, err)
	require.Contains(t, fields, "tags")
	require.Contains(t, fields, "ingredients")
	assert.Contains(t, fields["tags"][0], "more than once")
	assert.Contains(t, fields["ingredients"][0], "more than once")
}

func TestValidateRecipeUnknownReferences(t *testing.T) {
	f := newRecipeFixture(t)

	req := f.request([]uint{f.tags[0].ID, 999}, amount(f.salt.ID, 1), amount(998, 1))
	_, err := ValidateRecipe(context.Background(), f.db, f.author.ID, req)

	fields := validationFields(t, err)
	assert.Equal(t, []string{"tag 999 does not exist"}, fields["tags"])
	assert.Equal(t, []string{"ingredient 998 does not exist"}, fields["ingredients"])
}

func TestValidateRecipeReportsEveryField(t *testing.T) {
	f := newRecipeFixture(t)

	_, err := ValidateRecipe(context.Background(), f.db, f.author.ID, &types.RecipeWriteRequest{})

	fields := validationFields(t, err)
	for _, field := range []string{"image", "tags", "ingredients", "cooking_time", "name", "text"} {
		assert.Contains(t, fields, field)
	}
}

func TestValidateRecipeImage(t *testing.T) {
	f := newRecipeFixture(t)

	tests := []struct {
		name  string
		image string
	}{
		{"not a data url", "https://example.com/a.png"},
		{"not base64", "data:image/png;base64,@@@"},
		{"not an image type", "data:text/plain;base64,aGVsbG8="},
		{"not an image payload", "data:image/png;base64,aGVsbG8="},
		{"missing encoding", "data:image/png,aGVsbG8="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request([]uint{f.tags[0].ID}, amount(f.salt.ID, 1))
			req.Image = tt.image
			_, err := ValidateRecipe(context.Background(), f.db, f.author.ID, req)
			assert.Contains(t, validationFields(t, err), "image")
		})
	}
}

func TestValidateRecipeNameLength(t *testing.T) {
	f := newRecipeFixture(t)

	req := f.request([]uint{f.tags[0].ID}, amount(f.salt.ID, 1))
	req.Name = strings.Repeat("a", 257)
	_, err := ValidateRecipe(context.Background(), f.db, f.author.ID, req)
	assert.Contains(t, validationFields(t, err), "name")

	req.Name = strings.Repeat("a", 256)
	_, err = ValidateRecipe(context.Background(), f.db, f.author.ID, req)
	assert.NoError(t, err)
}

func TestDecodeDataURL(t *testing.T) {
	img, err := DecodeDataURL("data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, "png", img.Format)
	assert.NotEmpty(t, img.Data)
}

func TestValidationErrorErr(t *testing.T) {
	verr := NewValidationError()
	assert.NoError(t, verr.Err())

	verr.Add("tags", "bad")
	verr.Add("name", "missing")
	err := verr.Err()
	require.Error(t, err)
	assert.Equal(t, "validation failed: name: missing, tags: bad", err.Error())
}
