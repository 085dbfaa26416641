package server

import (
	"strings"

	"threads/internal/featureflags"
	"threads/internal/models"
	"threads/internal/service"
	"threads/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// GetAllUsers handles GET /users/allUser
// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {array} models.User
// @Router /users/allUser [get]
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	users, err := s.userService.ListUsers(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if users == nil {
		users = []models.User{}
	}
	return c.JSON(users)
}

// SearchUsers handles GET /users/search?username=
// @Summary Search users by username
// @Tags users
// @Produce json
// @Param username query string true "Username fragment"
// @Param limit query int false "Max results"
// @Success 200 {array} models.UserSummary
// @Failure 400 {object} models.ErrorResponse
// @Router /users/search [get]
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	if !s.featureFlags.EnabledForAnyone(featureflags.UserSearch) {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Route", nil))
	}

	results, err := s.userService.SearchUsers(c.UserContext(), c.Query("username"), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	if results == nil {
		results = []models.UserSummary{}
	}
	return c.JSON(results)
}

// GetUserByUsername handles GET /users/username/:username
// @Summary Get a user by username
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} object{user=models.User}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/username/{username} [get]
func (s *Server) GetUserByUsername(c *fiber.Ctx) error {
	user, err := s.userService.GetByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

// GetMyProfile handles GET /users/me
// @Summary Current user profile
// @Description Returns the caller with follow counts
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{user=models.Profile}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.userService.GetProfile(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": profile})
}

// UpdateProfile handles PUT /users/:id
// @Summary Update profile
// @Description Accepts JSON or multipart form data with an optional "avatar" file
// @Tags users
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} object{message=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /users/{id} [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	callerID := currentUserID(c)
	if callerID != targetID {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("You can only update your own profile"))
	}

	var in service.UpdateProfileInput
	var uploaded *string
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		in = service.UpdateProfileInput{
			Username: formValue(c, "username"),
			FullName: formValue(c, "fullName"),
			Bio:      formValue(c, "bio"),
		}
		uploaded, err = s.saveUpload(c, "avatar")
		if err != nil {
			return respondError(c, err)
		}
		in.Avatar = uploaded
	} else {
		if err := c.BodyParser(&in); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		// Stored paths are only ever assigned from a file uploaded in this request.
		if in.Avatar != nil && storage.IsStoredPath(*in.Avatar) {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Upload the avatar as a file instead of referencing a stored path"))
		}
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), callerID, targetID, in)
	if err != nil {
		if uploaded != nil {
			_ = s.uploads.Delete(*uploaded)
		}
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

// formValue returns a non-empty multipart field, or nil.
func formValue(c *fiber.Ctx, key string) *string {
	v := c.FormValue(key)
	if v == "" {
		return nil
	}
	return &v
}
