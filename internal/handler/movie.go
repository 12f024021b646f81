package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

// MovieHandler exposes catalog browsing for everyone and catalog
// management for admins.
type MovieHandler struct {
	Movies *repository.MovieRepo
}

// NewMovieHandler constructs a MovieHandler.
func NewMovieHandler(movies *repository.MovieRepo) *MovieHandler {
	if movies == nil {
		panic("nil repository passed to NewMovieHandler")
	}
	return &MovieHandler{Movies: movies}
}

type movieReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DurationMin uint32 `json:"duration_min"`
	Genre       string `json:"genre"`
}

type movieResp struct {
	ID          uint64 `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DurationMin uint32 `json:"duration_min"`
	Genre       string `json:"genre"`
	IsActive    bool   `json:"is_active"`
}

func toMovieResp(m *model.Movie) movieResp {
	return movieResp{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		DurationMin: m.DurationMin,
		Genre:       m.Genre,
		IsActive:    m.IsActive,
	}
}

func (r movieReq) validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return model.Validationf("title is required")
	}
	if r.DurationMin == 0 {
		return model.Validationf("duration must be positive")
	}
	return nil
}

// List handles GET /v1/movies.  Guests see the active catalog;
// admins can pass ?all=true to include hidden entries.
func (h *MovieHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	if c.QueryParam("all") == "true" && isAdmin(c) {
		movies, err := h.Movies.ListAll(ctx)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, movies)
	}
	movies, err := h.Movies.ListActive(ctx)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]movieResp, 0, len(movies))
	for i := range movies {
		out = append(out, toMovieResp(&movies[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/movies/:id.
func (h *MovieHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	m, err := h.Movies.ByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toMovieResp(m))
}

// Create handles POST /v1/admin/movies.
func (h *MovieHandler) Create(c echo.Context) error {
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.validate(); err != nil {
		return writeError(c, err)
	}
	m := &model.Movie{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		DurationMin: req.DurationMin,
		Genre:       req.Genre,
		IsActive:    true,
	}
	if err := h.Movies.Create(c.Request().Context(), m); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toMovieResp(m))
}

// Update handles PUT /v1/admin/movies/:id.
func (h *MovieHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.validate(); err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()
	m, err := h.Movies.ByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	m.Title = strings.TrimSpace(req.Title)
	m.Description = req.Description
	m.DurationMin = req.DurationMin
	m.Genre = req.Genre
	if err := h.Movies.Update(ctx, m); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toMovieResp(m))
}

// SetActive handles PATCH /v1/admin/movies/:id/active with body
// {"active": bool}.
func (h *MovieHandler) SetActive(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body struct {
		Active *bool `json:"active"`
	}
	if err := c.Bind(&body); err != nil || body.Active == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "active is required"})
	}
	if err := h.Movies.SetActive(c.Request().Context(), id, *body.Active); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
