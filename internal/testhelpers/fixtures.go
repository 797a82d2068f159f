package testhelpers

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
)

// PNGDataURL is a valid 1x1 PNG encoded as a data URL.
const PNGDataURL = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// DefaultPassword is the password of every user created by CreateUser.
const DefaultPassword = "s3cret-Passw0rd"

// CreateUser inserts a user named username with DefaultPassword.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: string(hash),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

// CreateAdmin inserts a staff user.
func CreateAdmin(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := CreateUser(t, db, username)
	if err := db.Model(user).Update("is_staff", true).Error; err != nil {
		t.Fatalf("failed to promote %s: %v", username, err)
	}
	user.IsStaff = true
	return user
}

func CreateTag(t *testing.T, db *gorm.DB, slug string) *models.Tag {
	t.Helper()

	tag := &models.Tag{Name: "Tag " + slug, Slug: slug}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("failed to create tag %s: %v", slug, err)
	}
	return tag
}

func CreateIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()

	ingredient := &models.Ingredient{Name: name, MeasurementUnit: unit}
	if err := db.Create(ingredient).Error; err != nil {
		t.Fatalf("failed to create ingredient %s: %v", name, err)
	}
	return ingredient
}

// CreateRecipe inserts a recipe directly, bypassing validation.
// amounts maps ingredient id to amount.
func CreateRecipe(t *testing.T, db *gorm.DB, author *models.User, name string, tags []*models.Tag, amounts map[uint]int) *models.Recipe {
	t.Helper()

	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        name,
		Image:       "https://media.example/recipes/" + name + ".png",
		Text:        "Cook " + name,
		CookingTime: 10,
	}
	if err := db.Create(recipe).Error; err != nil {
		t.Fatalf("failed to create recipe %s: %v", name, err)
	}
	for _, tag := range tags {
		if err := db.Create(&models.RecipeTag{RecipeID: recipe.ID, TagID: tag.ID}).Error; err != nil {
			t.Fatalf("failed to tag recipe %s: %v", name, err)
		}
	}
	for id, amount := range amounts {
		if err := db.Create(&models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: id, Amount: amount}).Error; err != nil {
			t.Fatalf("failed to add ingredient %d to recipe %s: %v", id, name, err)
		}
	}
	return recipe
}

// AddToCart puts recipe into user's shopping cart.
func AddToCart(t *testing.T, db *gorm.DB, user *models.User, recipe *models.Recipe) {
	t.Helper()

	if err := db.Create(&models.ShoppingCartItem{UserID: user.ID, RecipeID: recipe.ID}).Error; err != nil {
		t.Fatalf("failed to add recipe %d to cart: %v", recipe.ID, err)
	}
}

// Count returns the number of rows of model matching the optional condition.
func Count(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()

	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("failed to count %T: %v", model, err)
	}
	return n
}
