package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// requirements lists the settings each environment cannot run without.
var requirements = map[Environment][]string{
	Development: {"DB_USER", "DB_PASSWORD", "JWT_SECRET"},
	Test:        {"JWT_SECRET"},
	CI:          {"DB_USER", "DB_PASSWORD", "JWT_SECRET"},
	Production:  {"DB_USER", "DB_PASSWORD", "JWT_SECRET", "PUBLIC_BASE_URL"},
}

// ValidateConfig checks if the configuration meets the requirements for its environment.
// Every violation is reported, not just the first one.
func ValidateConfig(cfg *Config) error {
	values := map[string]string{
		"DB_USER":         cfg.DBUser,
		"DB_PASSWORD":     cfg.DBPassword,
		"JWT_SECRET":      cfg.JWTSecret,
		"PUBLIC_BASE_URL": cfg.PublicBaseURL,
	}

	var errs []string
	for _, name := range requirements[cfg.Env] {
		if strings.TrimSpace(values[name]) == "" {
			errs = append(errs, ValidationError{Field: name, Message: "is required"}.Error())
		}
	}

	if cfg.Env == Production && len(cfg.JWTSecret) > 0 && len(cfg.JWTSecret) < 32 {
		errs = append(errs, ValidationError{Field: "JWT_SECRET", Message: "must be at least 32 characters in production"}.Error())
	}
	if cfg.PageSize < 1 {
		errs = append(errs, ValidationError{Field: "PAGE_SIZE", Message: "must be positive"}.Error())
	}
	if cfg.TokenTTL <= 0 {
		errs = append(errs, ValidationError{Field: "TOKEN_TTL", Message: "must be positive"}.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "\n"))
	}
	return nil
}
