package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manyalawy/nawy/apartment-service/internal/domain"
	"github.com/manyalawy/nawy/apartment-service/internal/service"
	"github.com/manyalawy/nawy/pkg/log"
	"github.com/manyalawy/nawy/pkg/middleware"
	"github.com/manyalawy/nawy/pkg/response"
)

// Handler handles HTTP requests for apartment service.
type Handler struct {
	searchService  service.ApartmentSearchService
	catalogService service.CatalogService
	adminService   service.SearchAdminService
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	searchService service.ApartmentSearchService,
	catalogService service.CatalogService,
	adminService service.SearchAdminService,
	authMiddleware *middleware.AuthMiddleware,
) *Handler {
	return &Handler{
		searchService:  searchService,
		catalogService: catalogService,
		adminService:   adminService,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		apartments := api.Group("/apartments")
		{
			// Public routes
			apartments.GET("", h.ListApartments)
			apartments.GET("/:id", h.GetApartment)

			// Admin routes
			apartments.POST("", h.admin(h.CreateApartment)...)
			apartments.PUT("/:id", h.admin(h.UpdateApartment)...)
			apartments.DELETE("/:id", h.admin(h.DeleteApartment)...)
			apartments.POST("/:id/images", h.admin(h.AddImage)...)
		}

		projects := api.Group("/projects")
		{
			projects.GET("", h.ListProjects)
			projects.POST("", h.admin(h.CreateProject)...)
			projects.PUT("/:id", h.admin(h.UpdateProject)...)
		}

		searchAdmin := api.Group("/admin/search")
		{
			searchAdmin.POST("/reindex", h.admin(h.Reindex)...)
			searchAdmin.GET("/stats", h.admin(h.SearchStats)...)
			searchAdmin.GET("/health", h.admin(h.SearchHealth)...)
		}
	}
}

func (h *Handler) admin(handler gin.HandlerFunc) []gin.HandlerFunc {
	return append(h.authMiddleware.RequireAdmin(), handler)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListApartments lists apartments matching the query filters.
func (h *Handler) ListApartments(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var filter domain.ApartmentFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		l.Warn().Err(err).Msg("failed to bind apartment filter")
		response.BadRequest(c, err.Error())
		return
	}

	page, err := h.searchService.Search(ctx, filter)
	if err != nil {
		l.Error().Err(err).Msg("failed to list apartments")
		response.InternalError(c, "failed to list apartments")
		return
	}

	response.Paginated(c, page.Data, page.Meta, page.SearchEngine)
}

// GetApartment retrieves an apartment by ID.
func (h *Handler) GetApartment(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	id := c.Param("id")

	apt, err := h.catalogService.GetApartment(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrApartmentNotFound) {
			response.NotFound(c, "apartment not found")
			return
		}
		l.Error().Err(err).Str(log.FieldApartmentID, id).Msg("failed to get apartment")
		response.InternalError(c, "failed to get apartment")
		return
	}

	response.Success(c, apt)
}

// CreateApartment creates a new apartment.
func (h *Handler) CreateApartment(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.CreateApartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create apartment request")
		response.BadRequest(c, err.Error())
		return
	}

	apt, err := h.catalogService.CreateApartment(ctx, middleware.GetUserID(c), &req)
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			response.NotFound(c, "project not found")
			return
		}
		l.Error().Err(err).Msg("failed to create apartment")
		response.InternalError(c, "failed to create apartment")
		return
	}

	response.Created(c, apt)
}

// UpdateApartment updates an apartment.
func (h *Handler) UpdateApartment(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	id := c.Param("id")

	var req domain.UpdateApartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind update apartment request")
		response.BadRequest(c, err.Error())
		return
	}

	apt, err := h.catalogService.UpdateApartment(ctx, middleware.GetUserID(c), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrApartmentNotFound):
			response.NotFound(c, "apartment not found")
		case errors.Is(err, service.ErrProjectNotFound):
			response.NotFound(c, "project not found")
		default:
			l.Error().Err(err).Str(log.FieldApartmentID, id).Msg("failed to update apartment")
			response.InternalError(c, "failed to update apartment")
		}
		return
	}

	response.Success(c, apt)
}

// DeleteApartment deletes an apartment.
func (h *Handler) DeleteApartment(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	id := c.Param("id")

	if err := h.catalogService.DeleteApartment(ctx, middleware.GetUserID(c), id); err != nil {
		if errors.Is(err, service.ErrApartmentNotFound) {
			response.NotFound(c, "apartment not found")
			return
		}
		l.Error().Err(err).Str(log.FieldApartmentID, id).Msg("failed to delete apartment")
		response.InternalError(c, "failed to delete apartment")
		return
	}

	response.Success(c, gin.H{"id": id})
}

// AddImage uploads an image for an apartment from the "image" form field.
func (h *Handler) AddImage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	id := c.Param("id")

	fh, err := c.FormFile("image")
	if err != nil {
		response.BadRequest(c, "missing image file")
		return
	}
	file, err := fh.Open()
	if err != nil {
		l.Error().Err(err).Msg("failed to open uploaded image")
		response.InternalError(c, "failed to read image")
		return
	}
	defer file.Close()

	apt, err := h.catalogService.AddImage(ctx, middleware.GetUserID(c), id, service.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        file,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidImage):
			response.BadRequest(c, err.Error())
		case errors.Is(err, service.ErrApartmentNotFound):
			response.NotFound(c, "apartment not found")
		default:
			l.Error().Err(err).Str(log.FieldApartmentID, id).Msg("failed to add apartment image")
			response.InternalError(c, "failed to add image")
		}
		return
	}

	response.Created(c, apt)
}

// ListProjects lists all projects.
func (h *Handler) ListProjects(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	projects, err := h.catalogService.ListProjects(ctx)
	if err != nil {
		l.Error().Err(err).Msg("failed to list projects")
		response.InternalError(c, "failed to list projects")
		return
	}

	response.Success(c, projects)
}

// CreateProject creates a new project.
func (h *Handler) CreateProject(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create project request")
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.catalogService.CreateProject(ctx, middleware.GetUserID(c), &req)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateProject) {
			response.Conflict(c, "project name already exists")
			return
		}
		l.Error().Err(err).Msg("failed to create project")
		response.InternalError(c, "failed to create project")
		return
	}

	response.Created(c, project)
}

// UpdateProject updates a project and re-indexes its apartments.
func (h *Handler) UpdateProject(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	id := c.Param("id")

	var req domain.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind update project request")
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.catalogService.UpdateProject(ctx, middleware.GetUserID(c), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProjectNotFound):
			response.NotFound(c, "project not found")
		case errors.Is(err, service.ErrDuplicateProject):
			response.Conflict(c, "project name already exists")
		default:
			l.Error().Err(err).Str(log.FieldProjectID, id).Msg("failed to update project")
			response.InternalError(c, "failed to update project")
		}
		return
	}

	response.Success(c, project)
}

// Reindex rebuilds the search index from the database.
func (h *Handler) Reindex(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	result, err := h.adminService.Reindex(ctx, middleware.GetUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSearchUnavailable):
			response.ServiceUnavailable(c, "search index unavailable")
		case errors.Is(err, service.ErrReindexRunning):
			response.Conflict(c, "reindex already running")
		default:
			l.Error().Err(err).Msg("failed to reindex")
			response.InternalError(c, "failed to reindex")
		}
		return
	}

	response.Success(c, result)
}

// SearchStats reports index availability and statistics.
func (h *Handler) SearchStats(c *gin.Context) {
	response.Success(c, h.adminService.Status(c.Request.Context()))
}

// SearchHealth reports the index availability flag.
func (h *Handler) SearchHealth(c *gin.Context) {
	response.Success(c, h.adminService.Health())
}
