package types

// IngredientAmountInput is one {id, amount} pair of a recipe write payload.
type IngredientAmountInput struct {
	ID     uint `json:"id"`
	Amount int  `json:"amount"`
}

// RecipeWriteRequest represents the request body for creating or updating a recipe.
// Image is a data URL of the form data:<mime>;base64,<payload>.
type RecipeWriteRequest struct {
	Name        string                  `json:"name"`
	Text        string                  `json:"text"`
	CookingTime int                     `json:"cooking_time"`
	Image       string                  `json:"image"`
	Tags        []uint                  `json:"tags"`
	Ingredients []IngredientAmountInput `json:"ingredients"`
}

// RegisterRequest represents the request body for user registration
type RegisterRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

type SetPasswordRequest struct {
	NewPassword     string `json:"new_password" binding:"required"`
	CurrentPassword string `json:"current_password" binding:"required"`
}

type AvatarRequest struct {
	Avatar string `json:"avatar"`
}

type AvatarResponse struct {
	Avatar string `json:"avatar"`
}

// ShortLinkResponse is the body of GET /api/recipes/{id}/get-link/.
type ShortLinkResponse struct {
	ShortLink string `json:"short-link"`
}
