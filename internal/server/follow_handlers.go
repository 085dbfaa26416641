package server

import (
	"bytes"
	"encoding/json"
	"strconv"

	"threads/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Follow routes come in two flavours: POST /users/follow/:id toggles the edge,
// while /follow/follow, /follow/unfollow and DELETE /users/followers/:id are
// strict and fail when the edge is already in the requested state.

const (
	msgFollowed   = "Followed successfully"
	msgUnfollowed = "Unfollowed successfully"
)

// userRef accepts a user id sent as a JSON number or a numeric string.
type userRef uint

func (r *userRef) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*r = 0
		return nil
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return err
	}
	*r = userRef(n)
	return nil
}

type followRequest struct {
	FollowingID userRef `json:"followingId"`
}

func parseFollowRequest(c *fiber.Ctx) (uint, error) {
	var req followRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil || req.FollowingID == 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("A valid followingId is required"))
		return 0, errResponseWritten
	}
	return uint(req.FollowingID), nil
}

// ToggleFollow handles POST /users/follow/:id
// @Summary Follow or unfollow a user
// @Description Follows the user when not followed yet, unfollows otherwise
// @Tags follow
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/follow/{id} [post]
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	state, err := s.followService.ToggleFollow(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return respondError(c, err)
	}

	msg := msgFollowed
	if state == models.FollowStateUnfollowed {
		msg = msgUnfollowed
	}
	return c.JSON(fiber.Map{"message": msg})
}

// Follow handles POST /follow/follow
// @Summary Follow a user
// @Tags follow
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{followingId=int} true "User to follow"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /follow/follow [post]
func (s *Server) Follow(c *fiber.Ctx) error {
	targetID, err := parseFollowRequest(c)
	if err != nil {
		return nil
	}

	if err := s.followService.Follow(c.UserContext(), currentUserID(c), targetID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": msgFollowed})
}

// Unfollow handles POST /follow/unfollow
// @Summary Unfollow a user
// @Tags follow
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{followingId=int} true "User to unfollow"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /follow/unfollow [post]
func (s *Server) Unfollow(c *fiber.Ctx) error {
	targetID, err := parseFollowRequest(c)
	if err != nil {
		return nil
	}
	return s.unfollow(c, targetID)
}

// RemoveFollowing handles DELETE /users/followers/:id
// @Summary Unfollow a user
// @Tags follow
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /users/followers/{id} [delete]
func (s *Server) RemoveFollowing(c *fiber.Ctx) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	return s.unfollow(c, targetID)
}

func (s *Server) unfollow(c *fiber.Ctx, targetID uint) error {
	if err := s.followService.Unfollow(c.UserContext(), currentUserID(c), targetID); err != nil {
		return respondError(c, err, override(models.CodeNotFound, fiber.StatusBadRequest))
	}
	return c.JSON(fiber.Map{"message": msgUnfollowed})
}

// GetFollowing handles GET /users/following
// @Summary Users the caller follows
// @Tags follow
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.UserSummary
// @Router /users/following [get]
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	users, err := s.followService.ListFollowing(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// GetFollowers handles GET /users/followers/:userId
// @Summary Followers of a user
// @Tags follow
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {array} models.UserSummary
// @Failure 400 {object} models.ErrorResponse
// @Router /users/followers/{userId} [get]
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	userID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}

	users, err := s.followService.ListFollowers(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}
