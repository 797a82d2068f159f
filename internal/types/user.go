package types

import (
	"github.com/pageza/foodgram/backend/internal/models"
)

// UserView is the public shape of a user as seen by a particular viewer.
type UserView struct {
	Email        string  `json:"email"`
	ID           uint    `json:"id"`
	Username     string  `json:"username"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	IsSubscribed bool    `json:"is_subscribed"`
	Avatar       *string `json:"avatar"`
}

// CreatedUserView is returned by registration and omits viewer-dependent fields.
type CreatedUserView struct {
	Email     string `json:"email"`
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SubscriptionView is an author the viewer follows, with a preview of their recipes.
type SubscriptionView struct {
	UserView
	Recipes      []RecipeShortView `json:"recipes"`
	RecipesCount int64             `json:"recipes_count"`
}

func NewUserView(u *models.User, subscribed bool) UserView {
	return UserView{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
		Avatar:       u.Avatar,
	}
}

func NewCreatedUserView(u *models.User) CreatedUserView {
	return CreatedUserView{
		Email:     u.Email,
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// NewSubscriptionView maps an author and a preview of their recipes.
func NewSubscriptionView(author *models.User, recipes []models.Recipe, total int64) SubscriptionView {
	view := SubscriptionView{
		UserView:     NewUserView(author, true),
		Recipes:      make([]RecipeShortView, 0, len(recipes)),
		RecipesCount: total,
	}
	for i := range recipes {
		view.Recipes = append(view.Recipes, NewRecipeShortView(&recipes[i]))
	}
	return view
}
