package models

import (
	"time"
)

const (
	MinCookingTime  = 1
	MaxCookingTime  = 32000
	MinAmount       = 1
	MaxAmount       = 32000
	MaxNameLength   = 256
	ShortLinkLength = 6
)

type Recipe struct {
	ID          uint               `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	AuthorID    uint               `gorm:"not null;index" json:"author_id"`
	Author      User               `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	Name        string             `gorm:"size:256;not null" json:"name"`
	Image       string             `gorm:"size:512;not null" json:"image"`
	Text        string             `gorm:"type:text;not null" json:"text"`
	CookingTime int                `gorm:"not null;check:chk_recipes_cooking_time,cooking_time >= 1 AND cooking_time <= 32000" json:"cooking_time"`
	ShortLink   *string            `gorm:"size:6;uniqueIndex" json:"short_link"`
	Tags        []RecipeTag        `gorm:"constraint:OnDelete:CASCADE" json:"tags"`
	Ingredients []RecipeIngredient `gorm:"constraint:OnDelete:CASCADE" json:"ingredients"`
}

// RecipeTag links a recipe to one of its tags.
type RecipeTag struct {
	ID       uint `gorm:"primarykey"`
	RecipeID uint `gorm:"not null;uniqueIndex:idx_recipe_tag"`
	TagID    uint `gorm:"not null;uniqueIndex:idx_recipe_tag;index"`
	Tag      Tag  `gorm:"constraint:OnDelete:CASCADE"`
}

// RecipeIngredient links a recipe to an ingredient with the amount used.
type RecipeIngredient struct {
	ID           uint       `gorm:"primarykey"`
	RecipeID     uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient"`
	IngredientID uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient;index"`
	Ingredient   Ingredient `gorm:"constraint:OnDelete:CASCADE"`
	Amount       int        `gorm:"not null;check:chk_recipe_ingredients_amount,amount >= 1 AND amount <= 32000"`
}
