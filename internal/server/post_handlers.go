package server

import (
	"strings"

	"threads/internal/models"
	"threads/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /posts/threads
// @Summary Create a post
// @Description Multipart form with "text" and an optional "image" file, or JSON {text}
// @Tags posts
// @Accept mpfd,json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/threads [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var in service.CreatePostInput
	var uploaded *string
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		in.Text = c.FormValue("text")
		image, err := s.saveUpload(c, "image")
		if err != nil {
			return respondError(c, err)
		}
		uploaded = image
		in.Image = image
	} else {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		in.Text = req.Text
	}

	post, err := s.postService.CreatePost(c.UserContext(), currentUserID(c), in)
	if err != nil {
		if uploaded != nil {
			_ = s.uploads.Delete(*uploaded)
		}
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPosts handles GET /posts/threads
// @Summary List posts
// @Tags posts
// @Produce json
// @Param limit query int false "Page size (max 100, all posts when omitted)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Router /posts/threads [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 0)
	posts, err := s.postService.ListPosts(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /posts/threads/:postId
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param postId path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/threads/{postId} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// GetFollowingFeed handles GET /posts/following
// @Summary Feed of followed users
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (max 100, all posts when omitted)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Router /posts/following [get]
func (s *Server) GetFollowingFeed(c *fiber.Ctx) error {
	page := parsePagination(c, 0)
	posts, err := s.postService.GetPostsFromFollowing(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// DeletePost handles DELETE /posts/:postId
// @Summary Delete a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{postId} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), currentUserID(c), postID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// LikePost handles POST /posts/:postId/like
// @Summary Like a post
// @Tags likes
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Success 201 {object} models.Like
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{postId}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}

	like, err := s.postService.LikePost(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(like)
}

// UnlikePost handles DELETE /posts/:postId/unlike
// @Summary Remove a like
// @Tags likes
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{postId}/unlike [delete]
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}

	if err := s.postService.UnlikePost(c.UserContext(), currentUserID(c), postID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post unliked"})
}
