package controllers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/apperror"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/audit"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/shortener"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/usercontext"
)

type newsRequest struct {
	Title     *string `json:"title" validate:"omitempty,min=3,max=255"`
	Content   *string `json:"content"`
	Slug      *string `json:"slug" validate:"omitempty,min=3,max=255"`
	Published *bool   `json:"published"`
}

type newsResponse struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Content   string    `json:"content"`
	Published bool      `json:"published"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newsView(n *models.News) newsResponse {
	out := newsResponse{
		ID:        n.ID,
		Title:     n.Title,
		Slug:      n.Slug,
		Content:   n.Content,
		Published: n.Published,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	if n.Author != nil {
		out.Author = n.Author.Username
	}
	return out
}

func newsViews(list []models.News) []newsResponse {
	out := make([]newsResponse, 0, len(list))
	for i := range list {
		out = append(out, newsView(&list[i]))
	}
	return out
}

// HandleNewsList lists published news
func (h *Controller) HandleNewsList(c *fiber.Ctx) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return err
	}
	list, err := h.Repos.News.GetPublished((page-1)*limit, limit)
	if err != nil {
		return apperror.Internal("Could not list news", err)
	}
	return c.JSON(fiber.Map{"data": newsViews(list), "page": page, "limit": limit})
}

// HandleNewsShow returns one published article by slug
func (h *Controller) HandleNewsShow(c *fiber.Ctx) error {
	slug := c.Params("slug")
	n, err := h.Repos.News.GetBySlug(slug)
	if err != nil {
		return notFoundOr(err, "News %s not found", slug)
	}
	if !n.Published {
		return apperror.NotFound("News %s not found", slug)
	}
	return c.JSON(fiber.Map{"data": newsView(n)})
}

// HandleAdminNewsList lists every article, drafts included
func (h *Controller) HandleAdminNewsList(c *fiber.Ctx) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return err
	}
	list, err := h.Repos.News.GetAll((page-1)*limit, limit)
	if err != nil {
		return apperror.Internal("Could not list news", err)
	}
	total, err := h.Repos.News.Count()
	if err != nil {
		return apperror.Internal("Could not list news", err)
	}
	return c.JSON(fiber.Map{"data": newsViews(list), "pagination": pagination(page, limit, total)})
}

// HandleAdminNewsCreate writes a new article. The slug is derived from the title when omitted.
func (h *Controller) HandleAdminNewsCreate(c *fiber.Ctx) error {
	var req newsRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.Title == nil || req.Content == nil || strings.TrimSpace(*req.Content) == "" {
		return apperror.Validation("title and content are required")
	}

	slug := shortener.Slugify(*req.Title)
	if req.Slug != nil {
		slug = shortener.Slugify(*req.Slug)
	}
	if len(slug) < 3 {
		return apperror.Validation("slug must be at least 3 characters")
	}
	taken, err := h.Repos.News.SlugExists(slug)
	if err != nil {
		return apperror.Internal("Could not create the article", err)
	}
	if taken {
		return apperror.Conflict("Slug %s is already in use", slug)
	}

	actor := usercontext.GetUserContext(c)
	n := &models.News{
		Title:    strings.TrimSpace(*req.Title),
		Content:  *req.Content,
		Slug:     slug,
		AuthorID: actor.AdminIDPtr(),
	}
	if req.Published != nil {
		n.Published = *req.Published
	}
	if err := validate.Struct(n); err != nil {
		return apperror.FromValidator(err)
	}
	if err := h.Repos.News.Create(n); err != nil {
		return apperror.Internal("Could not create the article", err)
	}

	h.Audit.Record(c.UserContext(), audit.Entry{
		Actor:        actor,
		Action:       models.ActionNewsCreate,
		Description:  fmt.Sprintf("News %q created", n.Title),
		ResourceType: models.ResourceNews,
		ResourceID:   fmt.Sprint(n.ID),
		Details:      map[string]interface{}{"slug": n.Slug, "published": n.Published},
	})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": newsView(n)})
}

// HandleAdminNewsUpdate edits an article
func (h *Controller) HandleAdminNewsUpdate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req newsRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	n, err := h.Repos.News.GetByID(id)
	if err != nil {
		return notFoundOr(err, "News %d not found", id)
	}

	details := map[string]interface{}{}
	if req.Title != nil {
		n.Title = strings.TrimSpace(*req.Title)
		details["title"] = n.Title
	}
	if req.Content != nil {
		n.Content = *req.Content
		details["content"] = "changed"
	}
	if req.Slug != nil {
		slug := shortener.Slugify(*req.Slug)
		taken, err := h.Repos.News.SlugExistsExceptID(slug, n.ID)
		if err != nil {
			return apperror.Internal("Could not update the article", err)
		}
		if taken {
			return apperror.Conflict("Slug %s is already in use", slug)
		}
		n.Slug = slug
		details["slug"] = slug
	}
	if req.Published != nil {
		n.Published = *req.Published
		details["published"] = n.Published
	}
	if len(details) == 0 {
		return apperror.Validation("Nothing to update")
	}
	if err := validate.Struct(n); err != nil {
		return apperror.FromValidator(err)
	}
	n.Author = nil
	if err := h.Repos.News.Update(n); err != nil {
		return apperror.Internal("Could not update the article", err)
	}

	h.Audit.Record(c.UserContext(), audit.Entry{
		Actor:        usercontext.GetUserContext(c),
		Action:       models.ActionNewsUpdate,
		Description:  fmt.Sprintf("News %q updated", n.Title),
		ResourceType: models.ResourceNews,
		ResourceID:   fmt.Sprint(n.ID),
		Details:      details,
	})
	return c.JSON(fiber.Map{"data": newsView(n)})
}

// HandleAdminNewsDelete removes an article
func (h *Controller) HandleAdminNewsDelete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	n, err := h.Repos.News.GetByID(id)
	if err != nil {
		return notFoundOr(err, "News %d not found", id)
	}
	if err := h.Repos.News.Delete(id); err != nil {
		return notFoundOr(err, "News %d not found", id)
	}
	h.Audit.Record(c.UserContext(), audit.Entry{
		Actor:        usercontext.GetUserContext(c),
		Action:       models.ActionNewsDelete,
		Description:  fmt.Sprintf("News %q deleted", n.Title),
		ResourceType: models.ResourceNews,
		ResourceID:   fmt.Sprint(n.ID),
		Severity:     models.ActivitySeverityWarning,
	})
	return c.SendStatus(fiber.StatusNoContent)
}
