package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"newsdesk/internal/auth"
	"newsdesk/internal/repository"
	"newsdesk/internal/service"
	"newsdesk/internal/upload"
)

type newsResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ImageURL    *string `json:"image_url"`
	Username    string  `json:"username"`
	CreatedAt   string  `json:"created_at"`
}

type newsPageResponse struct {
	Items   []newsResponse `json:"items"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	Total   int            `json:"total"`
	Pages   int            `json:"pages"`
}

func (h *Handler) listNews(c *gin.Context) {
	page := intQuery(c, "page", 1)
	perPage := intQuery(c, "per_page", 0)

	result, err := h.news.List(c.Request.Context(), page, perPage)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageToResponse(result))
}

func (h *Handler) listMyNews(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "not authenticated"})
		return
	}

	page := intQuery(c, "page", 1)
	perPage := intQuery(c, "per_page", 0)

	result, err := h.news.ListMine(c.Request.Context(), p, page, perPage)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageToResponse(result))
}

func (h *Handler) getNews(c *gin.Context) {
	id, ok := newsID(c)
	if !ok {
		return
	}

	item, err := h.news.Get(c.Request.Context(), id)
	if err != nil {
		h.writeNewsError(c, err)
		return
	}
	c.JSON(http.StatusOK, itemToResponse(*item))
}

func (h *Handler) createNewsAdmin(c *gin.Context) {
	h.createNews(c, true)
}

func (h *Handler) createNewsSelf(c *gin.Context) {
	h.createNews(c, false)
}

func (h *Handler) createNews(c *gin.Context, adminOnly bool) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "not authenticated"})
		return
	}

	input, closeFile, ok := h.newsInput(c)
	if !ok {
		return
	}
	defer closeFile()

	item, err := h.news.Create(c.Request.Context(), p, input, adminOnly)
	if err != nil {
		h.writeNewsError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":        item.News.ID,
		"message":   "news created successfully",
		"image_url": nullableURL(item.ImageURL),
	})
}

func (h *Handler) updateNews(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "not authenticated"})
		return
	}

	id, ok := newsID(c)
	if !ok {
		return
	}

	input, closeFile, ok := h.newsInput(c)
	if !ok {
		return
	}
	defer closeFile()

	item, err := h.news.Update(c.Request.Context(), p, id, input)
	if err != nil {
		h.writeNewsError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "news updated successfully",
		"id":        item.News.ID,
		"image_url": nullableURL(item.ImageURL),
	})
}

func (h *Handler) deleteNews(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "not authenticated"})
		return
	}

	id, ok := newsID(c)
	if !ok {
		return
	}

	if err := h.news.Delete(c.Request.Context(), p, id); err != nil {
		h.writeNewsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "news deleted successfully"})
}

// newsInput reads the multipart form fields and optional image file. The
// returned cleanup closes the file handle and is safe to call always.
func (h *Handler) newsInput(c *gin.Context) (service.NewsInput, func(), bool) {
	input := service.NewsInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
	}
	closeFile := func() {}

	header, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return input, closeFile, true
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid multipart form"})
		return input, closeFile, false
	}

	file, err := header.Open()
	if err != nil {
		h.internalError(c, err)
		return input, closeFile, false
	}

	input.Image = &service.ImageUpload{
		Reader:   file,
		Filename: header.Filename,
	}
	return input, func() { _ = file.Close() }, true
}

func (h *Handler) writeNewsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"message": "missing required fields"})
	case errors.Is(err, upload.ErrInvalidType):
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid image type"})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"message": "permission denied"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "news not found"})
	default:
		h.internalError(c, err)
	}
}

func newsID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid news id"})
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string, fallback int) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return fallback
	}
	return value
}

func itemToResponse(item service.NewsItem) newsResponse {
	return newsResponse{
		ID:          item.News.ID,
		Title:       item.News.Title,
		Description: item.News.Description,
		ImageURL:    nullableURL(item.ImageURL),
		Username:    item.Username,
		CreatedAt:   item.News.CreatedAt.Format(time.RFC3339),
	}
}

func pageToResponse(page *service.NewsPage) newsPageResponse {
	items := make([]newsResponse, len(page.Items))
	for i := range page.Items {
		items[i] = itemToResponse(page.Items[i])
	}
	return newsPageResponse{
		Items:   items,
		Page:    page.Page,
		PerPage: page.PerPage,
		Total:   page.Total,
		Pages:   page.Pages,
	}
}

func nullableURL(url string) *string {
	if url == "" {
		return nil
	}
	return &url
}
