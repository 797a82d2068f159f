package models

import "time"

type Favorite struct {
	ID        uint   `gorm:"primarykey"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_favorite_user_recipe"`
	User      User   `gorm:"constraint:OnDelete:CASCADE"`
	RecipeID  uint   `gorm:"not null;uniqueIndex:idx_favorite_user_recipe;index"`
	Recipe    Recipe `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

type ShoppingCartItem struct {
	ID        uint   `gorm:"primarykey"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_cart_user_recipe"`
	User      User   `gorm:"constraint:OnDelete:CASCADE"`
	RecipeID  uint   `gorm:"not null;uniqueIndex:idx_cart_user_recipe;index"`
	Recipe    Recipe `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

func (ShoppingCartItem) TableName() string {
	return "shopping_carts"
}

// Subscription means UserID follows AuthorID's recipes.
type Subscription struct {
	ID        uint `gorm:"primarykey"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_subscription_user_author;check:chk_subscriptions_not_self,user_id <> author_id"`
	User      User `gorm:"constraint:OnDelete:CASCADE"`
	AuthorID  uint `gorm:"not null;uniqueIndex:idx_subscription_user_author;index"`
	Author    User `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Tag{},
		&Ingredient{},
		&Recipe{},
		&RecipeTag{},
		&RecipeIngredient{},
		&Favorite{},
		&ShoppingCartItem{},
		&Subscription{},
	}
}
