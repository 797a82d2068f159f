package types

import (
	"github.com/pageza/foodgram/backend/internal/models"
)

type TagView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type IngredientView struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

// RecipeIngredientView is an ingredient together with the amount a recipe uses.
type RecipeIngredientView struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// RecipeView is the read shape of a recipe.
type RecipeView struct {
	ID               uint                   `json:"id"`
	Tags             []TagView              `json:"tags"`
	Author           UserView               `json:"author"`
	Ingredients      []RecipeIngredientView `json:"ingredients"`
	IsFavorited      bool                   `json:"is_favorited"`
	IsInShoppingCart bool                   `json:"is_in_shopping_cart"`
	Name             string                 `json:"name"`
	Image            string                 `json:"image"`
	Text             string                 `json:"text"`
	CookingTime      int                    `json:"cooking_time"`
}

// RecipeShortView is returned when a recipe is added to favorites or the cart,
// and embedded in subscription listings.
type RecipeShortView struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// RecipeFlags are the per-viewer computed fields of a RecipeView.
type RecipeFlags struct {
	IsFavorited      bool
	IsInShoppingCart bool
	AuthorSubscribed bool
}

func NewTagView(t models.Tag) TagView {
	return TagView{ID: t.ID, Name: t.Name, Slug: t.Slug}
}

func NewIngredientView(i models.Ingredient) IngredientView {
	return IngredientView{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

// NewRecipeView maps a recipe with preloaded author, tags and ingredients to its read shape.
func NewRecipeView(r *models.Recipe, flags RecipeFlags) RecipeView {
	view := RecipeView{
		ID:               r.ID,
		Tags:             make([]TagView, 0, len(r.Tags)),
		Author:           NewUserView(&r.Author, flags.AuthorSubscribed),
		Ingredients:      make([]RecipeIngredientView, 0, len(r.Ingredients)),
		IsFavorited:      flags.IsFavorited,
		IsInShoppingCart: flags.IsInShoppingCart,
		Name:             r.Name,
		Image:            r.Image,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
	for _, rt := range r.Tags {
		view.Tags = append(view.Tags, NewTagView(rt.Tag))
	}
	for _, ri := range r.Ingredients {
		view.Ingredients = append(view.Ingredients, RecipeIngredientView{
			ID:              ri.Ingredient.ID,
			Name:            ri.Ingredient.Name,
			MeasurementUnit: ri.Ingredient.MeasurementUnit,
			Amount:          ri.Amount,
		})
	}
	return view
}

func NewRecipeShortView(r *models.Recipe) RecipeShortView {
	return RecipeShortView{ID: r.ID, Name: r.Name, Image: r.Image, CookingTime: r.CookingTime}
}
