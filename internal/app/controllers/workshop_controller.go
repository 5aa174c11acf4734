package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/workshophub/internal/app/models"
	"github.com/yigit/workshophub/internal/app/models/dto"
	"github.com/yigit/workshophub/internal/app/services"
	"github.com/yigit/workshophub/internal/middleware"
	"github.com/yigit/workshophub/internal/pkg/apperrors"
)

// WorkshopController handles workshop, vote and status endpoints
type WorkshopController struct {
	workshopService services.WorkshopService
	votingService   services.VotingService
	logger          zerolog.Logger
}

// NewWorkshopController creates a new WorkshopController
func NewWorkshopController(workshopService services.WorkshopService, votingService services.VotingService, logger zerolog.Logger) *WorkshopController {
	return &WorkshopController{
		workshopService: workshopService,
		votingService:   votingService,
		logger:          logger.With().Str("controller", "workshop").Logger(),
	}
}

// parseWorkshopID reads the :id path parameter, writing a 400 response when it is not a positive integer
func parseWorkshopID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.HandleAPIError(ctx, apperrors.ErrInvalidWorkshopID)
		return 0, false
	}
	return id, true
}

func currentUserID(ctx *gin.Context) (int64, bool) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrUnauthenticated)
	}
	return userID, ok
}

// CreateWorkshop handles workshop creation
// @Summary Create a workshop
// @Description Creates a workshop owned by the calling lecturer; the status always starts as pending
// @Tags workshops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateWorkshopRequest true "Workshop information"
// @Success 201 {object} dto.APIResponse{data=models.Workshop} "Workshop created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Only lecturers can create workshops"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /workshops [post]
func (c *WorkshopController) CreateWorkshop(ctx *gin.Context) {
	lecturerID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req dto.CreateWorkshopRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	workshop, err := c.workshopService.CreateWorkshop(ctx.Request.Context(), lecturerID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(workshop, "Workshop created successfully"))
}

// ListWorkshops returns every workshop with its tally
// @Summary List workshops
// @Description Lists all workshops in creation order, each with its current voting statistics
// @Tags workshops
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.WorkshopWithStats} "Workshops"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /workshops [get]
func (c *WorkshopController) ListWorkshops(ctx *gin.Context) {
	workshops, err := c.workshopService.ListWorkshops(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(workshops, ""))
}

// GetWorkshop returns a single workshop with its tally
// @Summary Get a workshop
// @Tags workshops
// @Produce json
// @Security BearerAuth
// @Param id path int true "Workshop ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=models.WorkshopWithStats} "Workshop"
// @Failure 400 {object} dto.ErrorResponse "Invalid workshop ID"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Workshop not found"
// @Router /workshops/{id} [get]
func (c *WorkshopController) GetWorkshop(ctx *gin.Context) {
	id, ok := parseWorkshopID(ctx)
	if !ok {
		return
	}

	workshop, err := c.workshopService.GetWorkshop(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(workshop, ""))
}

// CastVote records the calling student's vote
// @Summary Vote on a workshop
// @Description Records an approve or decline vote; each student can vote once per workshop
// @Tags votes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Workshop ID" Format(int64) minimum(1)
// @Param request body dto.CastVoteRequest true "Vote"
// @Success 201 {object} dto.APIResponse{data=models.StudentVote} "Vote recorded"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data or duplicate vote"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Only students can vote"
// @Failure 404 {object} dto.ErrorResponse "Workshop not found"
// @Failure 409 {object} dto.ErrorResponse "Voting is closed"
// @Router /workshops/{id}/vote [post]
func (c *WorkshopController) CastVote(ctx *gin.Context) {
	studentID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	workshopID, ok := parseWorkshopID(ctx)
	if !ok {
		return
	}

	var req dto.CastVoteRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	vote, err := c.votingService.CastVote(ctx.Request.Context(), studentID, workshopID, *req.Approved)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(vote, "Vote recorded successfully"))
}

// GetVotingStats returns a workshop's tally
// @Summary Voting statistics
// @Description Returns total, approved and declined vote counts; unknown workshops report zeros
// @Tags votes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Workshop ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=models.VotingStats} "Tally"
// @Failure 400 {object} dto.ErrorResponse "Invalid workshop ID"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /workshops/{id}/votes [get]
func (c *WorkshopController) GetVotingStats(ctx *gin.Context) {
	workshopID, ok := parseWorkshopID(ctx)
	if !ok {
		return
	}

	stats, err := c.votingService.GetVotingStats(ctx.Request.Context(), workshopID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(stats, ""))
}

// UpdateStatus sets a workshop's status
// @Summary Update workshop status
// @Description Sets the status of a workshop owned by the calling lecturer; any transition is allowed
// @Tags workshops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Workshop ID" Format(int64) minimum(1)
// @Param request body dto.UpdateStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=models.Workshop} "Workshop updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid status"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Not a lecturer or not the owner"
// @Failure 404 {object} dto.ErrorResponse "Workshop not found"
// @Router /workshops/{id}/status [patch]
func (c *WorkshopController) UpdateStatus(ctx *gin.Context) {
	lecturerID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	workshopID, ok := parseWorkshopID(ctx)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	workshop, err := c.workshopService.UpdateStatus(ctx.Request.Context(), lecturerID, workshopID, models.WorkshopStatus(req.Status))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(workshop, "Workshop status updated"))
}
