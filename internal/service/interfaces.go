package service

import (
	"context"
	"io"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	Create(ctx context.Context, actor Actor, req *types.RecipeWriteRequest) (*types.RecipeView, error)
	Update(ctx context.Context, actor Actor, id uint, req *types.RecipeWriteRequest) (*types.RecipeView, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	Get(ctx context.Context, viewer *uint, id uint) (*types.RecipeView, error)
	List(ctx context.Context, viewer *uint, filter RecipeFilter) ([]types.RecipeView, int64, error)
}

// IRelationService defines the interface for favorites, cart and subscriptions
type IRelationService interface {
	AddFavorite(ctx context.Context, userID, recipeID uint) (*types.RecipeShortView, error)
	RemoveFavorite(ctx context.Context, userID, recipeID uint) error
	AddToCart(ctx context.Context, userID, recipeID uint) (*types.RecipeShortView, error)
	RemoveFromCart(ctx context.Context, userID, recipeID uint) error
	Subscribe(ctx context.Context, userID, authorID uint, recipesLimit int) (*types.SubscriptionView, error)
	Unsubscribe(ctx context.Context, userID, authorID uint) error
	Subscriptions(ctx context.Context, userID uint, limit, offset, recipesLimit int) ([]types.SubscriptionView, int64, error)
	ShoppingList(ctx context.Context, userID uint) ([]ShoppingListItem, error)
}

// IShortLinkService defines the interface for short link operations
type IShortLinkService interface {
	Link(ctx context.Context, recipeID uint) (string, error)
	Resolve(ctx context.Context, code string) (string, error)
}

// IUserService defines the interface for account operations
type IUserService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*models.User, error)
	Get(ctx context.Context, viewer *uint, id uint) (*types.UserView, error)
	List(ctx context.Context, viewer *uint, limit, offset int) ([]types.UserView, int64, error)
	SetPassword(ctx context.Context, userID uint, req *types.SetPasswordRequest) error
	SetAvatar(ctx context.Context, userID uint, dataURL string) (string, error)
	DeleteAvatar(ctx context.Context, userID uint) error
}

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
	Logout(ctx context.Context, claims *types.TokenClaims) error
}

// ICatalogService defines the interface for tag and ingredient lookups
type ICatalogService interface {
	Tags(ctx context.Context) ([]types.TagView, error)
	Tag(ctx context.Context, id uint) (*types.TagView, error)
	Ingredients(ctx context.Context, prefix string) ([]types.IngredientView, error)
	Ingredient(ctx context.Context, id uint) (*types.IngredientView, error)
	LoadTags(ctx context.Context, tags []models.Tag) (int64, error)
	LoadIngredients(ctx context.Context, r io.Reader, format string) (int64, error)
}

var (
	_ IRecipeService    = (*RecipeService)(nil)
	_ IRelationService  = (*RelationService)(nil)
	_ IShortLinkService = (*ShortLinkService)(nil)
	_ IUserService      = (*UserService)(nil)
	_ IAuthService      = (*AuthService)(nil)
	_ ICatalogService   = (*CatalogService)(nil)
)
