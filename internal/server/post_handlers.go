package server

import (
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Content    string  `json:"content"`
	CoverImage *string `json:"coverImage"`
}

type updatePostRequest struct {
	Content    *string               `json:"content"`
	CoverImage models.OptionalString `json:"coverImage"`
}

type autosaveRequest struct {
	Content    string                `json:"content"`
	CoverImage models.OptionalString `json:"coverImage"`
}

// ListPostsResponse wraps the caller's posts.
type ListPostsResponse struct {
	Posts []*models.Post `json:"posts"`
}

// AutosaveResponse acknowledges a draft save.
type AutosaveResponse struct {
	Success bool `json:"success"`
}

// GetAutosaveResponse carries the draft, omitted when there is none.
type GetAutosaveResponse struct {
	Post *models.Post `json:"post,omitempty"`
}

// CreatePost handles POST /posts
// @Summary Create post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{content=string,coverImage=string} true "Post"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	identity, ok := identityFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	var req createPostRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.Create(c.UserContext(), identity, service.CreatePostInput{
		Content:    req.Content,
		CoverImage: req.CoverImage,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// ListPosts handles GET /posts
// @Summary List posts
// @Description The caller's posts, most recently updated first
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ListPostsResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /posts [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	identity, ok := identityFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	posts, err := s.postService.List(c.UserContext(), identity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ListPostsResponse{Posts: posts})
}

// UpdatePost handles PUT /posts/:id
// @Summary Update post
// @Description Partial update. coverImage null clears the image.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body object{content=string,coverImage=string} true "Fields to change"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	identity, ok := identityFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	var req updatePostRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.Update(c.UserContext(), identity, service.UpdatePostInput{
		PostID:     c.Params("id"),
		Content:    req.Content,
		CoverImage: req.CoverImage,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /posts/:id
// @Summary Delete post
// @Description Idempotent; unknown ids succeed
// @Tags posts
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200
// @Failure 401 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	identity, ok := identityFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	if err := s.postService.Remove(c.UserContext(), identity, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	// Empty body; SendStatus would write the status text.
	return c.Status(fiber.StatusOK).Send(nil)
}

// Autosave handles POST /posts/autosave
// @Summary Save draft
// @Description Replaces the caller's draft. Blank content is ignored.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{content=string,coverImage=string} true "Draft"
// @Success 200 {object} AutosaveResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /posts/autosave [post]
func (s *Server) Autosave(c *fiber.Ctx) error {
	identity, ok := identityFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	var req autosaveRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	err := s.postService.Autosave(c.UserContext(), identity, service.AutosaveInput{
		Content:    req.Content,
		CoverImage: req.CoverImage,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(AutosaveResponse{Success: true})
}

// GetAutosave handles GET /posts/autosave
// @Summary Load draft
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} GetAutosaveResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /posts/autosave [get]
func (s *Server) GetAutosave(c *fiber.Ctx) error {
	identity, ok := identityFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	post, err := s.postService.GetAutosave(c.UserContext(), identity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(GetAutosaveResponse{Post: post})
}
