// Package validation provides input validation utilities
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Password and profile limits.
const (
	MinPasswordLength = 6
	// MaxPasswordBytes is the longest input bcrypt hashes without truncation.
	MaxPasswordBytes  = 72
	MaxUsernameLength = 30
	MaxFullNameLength = 100
	MaxBioLength      = 500
	MaxPostLength     = 500
	MaxCommentLength  = 1000
)

var emailRegex = regexp.MustCompile(`\S+@\S+\.\S+`)

// ErrRequiredFields is returned when registration input is incomplete.
var ErrRequiredFields = errors.New("All fields are required")

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return errors.New("Invalid email format")
	}
	if len(email) > 254 {
		return errors.New("Email must not exceed 254 characters")
	}
	return nil
}

// ValidatePassword enforces the length window bcrypt can hash faithfully.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return errors.New("Password must be at least 6 characters long")
	}
	if len(password) > MaxPasswordBytes {
		return errors.New("Password must not exceed 72 bytes")
	}
	return nil
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if username == "" {
		return errors.New("Username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return errors.New("Username must not exceed 30 characters")
	}
	if strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		return errors.New("Username cannot contain whitespace")
	}
	return nil
}

// ValidateProfileText bounds the optional free-text profile fields.
func ValidateProfileText(fullName, bio string) error {
	if utf8.RuneCountInString(fullName) > MaxFullNameLength {
		return errors.New("Full name must not exceed 100 characters")
	}
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return errors.New("Bio must not exceed 500 characters")
	}
	return nil
}

// ValidatePostText allows an empty text only when an image is attached.
func ValidatePostText(text string, hasImage bool) error {
	if strings.TrimSpace(text) == "" && !hasImage {
		return errors.New("Post text or image is required")
	}
	if utf8.RuneCountInString(text) > MaxPostLength {
		return errors.New("Post text must not exceed 500 characters")
	}
	return nil
}

// ValidateCommentText rejects blank and oversized comments.
func ValidateCommentText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("Comment text is required")
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return errors.New("Comment must not exceed 1000 characters")
	}
	return nil
}
