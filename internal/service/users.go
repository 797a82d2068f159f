package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

const (
	maxUsernameLength = 150
	maxEmailLength    = 254
	minPasswordLength = 8
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// UserService manages accounts, passwords and avatars.
type UserService struct {
	db         *gorm.DB
	images     ImageStore
	bcryptCost int
}

func NewUserService(db *gorm.DB, images ImageStore) *UserService {
	return &UserService{db: db, images: images, bcryptCost: bcrypt.DefaultCost}
}

// Register creates a regular user account.
func (s *UserService) Register(ctx context.Context, req *types.RegisterRequest) (*models.User, error) {
	user, err := s.newUser(req)
	if err != nil {
		return nil, err
	}
	if err := s.checkAvailable(ctx, user); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fieldError("username", "a user with this email or username already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	return user, nil
}

// CreateAdmin creates a staff account, or promotes an existing account with the same email.
func (s *UserService) CreateAdmin(ctx context.Context, req *types.RegisterRequest) (*models.User, error) {
	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.TrimSpace(req.Email)).First(&existing).Error
	switch {
	case err == nil:
		if err := s.db.WithContext(ctx).Model(&existing).Update("is_staff", true).Error; err != nil {
			return nil, fmt.Errorf("failed to promote user: %w", err)
		}
		existing.IsStaff = true
		return &existing, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	user, err := s.newUser(req)
	if err != nil {
		return nil, err
	}
	user.IsStaff = true
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fieldError("username", "a user with this username already exists")
		}
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	return user, nil
}

func (s *UserService) newUser(req *types.RegisterRequest) (*models.User, error) {
	verr := NewValidationError()
	email := strings.TrimSpace(req.Email)
	username := strings.TrimSpace(req.Username)

	if _, err := mail.ParseAddress(email); err != nil || len(email) > maxEmailLength {
		verr.Add("email", "enter a valid email address")
	}
	validateUsername(username, verr)
	for field, value := range map[string]string{"first_name": req.FirstName, "last_name": req.LastName} {
		if strings.TrimSpace(value) == "" {
			verr.Add(field, "this field is required")
		} else if utf8.RuneCountInString(value) > maxUsernameLength {
			verr.Add(field, fmt.Sprintf("must be at most %d characters", maxUsernameLength))
		}
	}
	if len(req.Password) < minPasswordLength {
		verr.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &models.User{
		Email:        email,
		Username:     username,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: string(hash),
	}, nil
}

// checkAvailable reports taken emails and usernames as field errors.
func (s *UserService) checkAvailable(ctx context.Context, user *models.User) error {
	verr := NewValidationError()
	for field, value := range map[string]string{"email": user.Email, "username": user.Username} {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("LOWER("+field+") = ?", strings.ToLower(value)).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to check %s: %w", field, err)
		}
		if n > 0 {
			verr.Add(field, fmt.Sprintf("a user with this %s already exists", field))
		}
	}
	return verr.Err()
}

func validateUsername(username string, verr *ValidationError) {
	switch {
	case username == "":
		verr.Add("username", "this field is required")
	case strings.EqualFold(username, "me"):
		verr.Add("username", "username cannot be \"me\"")
	case utf8.RuneCountInString(username) > maxUsernameLength:
		verr.Add("username", fmt.Sprintf("must be at most %d characters", maxUsernameLength))
	case !usernamePattern.MatchString(username):
		verr.Add("username", "may contain only letters, digits and @/./+/-/_")
	}
}

// Get returns a user as seen by viewer. A nil viewer is anonymous.
func (s *UserService) Get(ctx context.Context, viewer *uint, id uint) (*types.UserView, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, viewer, []models.User{*user})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// List returns one page of users ordered by username.
func (s *UserService) List(ctx context.Context, viewer *uint, limit, offset int) ([]types.UserView, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	q := db.Order("username")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	views, err := s.views(ctx, viewer, users)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// SetPassword replaces the password after checking the current one.
func (s *UserService) SetPassword(ctx context.Context, userID uint, req *types.SetPasswordRequest) error {
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return fieldError("current_password", "invalid password")
	}
	if len(req.NewPassword) < minPasswordLength {
		return fieldError("new_password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", string(hash)).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// SetAvatar stores a data-URL image as the user's avatar and returns its URL.
func (s *UserService) SetAvatar(ctx context.Context, userID uint, dataURL string) (string, error) {
	if strings.TrimSpace(dataURL) == "" {
		return "", fieldError("avatar", "this field is required")
	}
	img, err := DecodeDataURL(dataURL)
	if err != nil {
		return "", fieldError("avatar", err.Error())
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return "", err
	}

	previous := user.Avatar

	url, err := storeImage(ctx, s.images, "avatars", img)
	if err != nil {
		return "", err
	}
	if err := s.setAvatarColumn(ctx, userID, url); err != nil {
		discardImage(ctx, s.images, url)
		return "", fmt.Errorf("failed to update avatar: %w", err)
	}
	if previous != nil && *previous != url {
		discardImage(ctx, s.images, *previous)
	}
	return url, nil
}

// DeleteAvatar removes the user's avatar, or reports ErrNoAvatar when there is none.
func (s *UserService) DeleteAvatar(ctx context.Context, userID uint) error {
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if user.Avatar == nil {
		return detail(ErrNoAvatar, ErrNoAvatar.Error())
	}
	previous := *user.Avatar
	if err := s.setAvatarColumn(ctx, userID, nil); err != nil {
		return fmt.Errorf("failed to delete avatar: %w", err)
	}
	discardImage(ctx, s.images, previous)
	return nil
}

// setAvatarColumn writes through a fresh model so callers keep the row they loaded.
func (s *UserService) setAvatarColumn(ctx context.Context, userID uint, value interface{}) error {
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("avatar", value).Error
}

func (s *UserService) load(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, detail(ErrNotFound, "user not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (s *UserService) views(ctx context.Context, viewer *uint, users []models.User) ([]types.UserView, error) {
	var subscribed map[uint]bool
	if viewer != nil && len(users) > 0 {
		ids := make([]uint, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		var err error
		if subscribed, err = subscribedTo(ctx, s.db, *viewer, ids); err != nil {
			return nil, err
		}
	}

	views := make([]types.UserView, 0, len(users))
	for i := range users {
		views = append(views, types.NewUserView(&users[i], subscribed[users[i].ID]))
	}
	return views, nil
}
