package websocket

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/yigit/workshophub/internal/app/models"
	"github.com/yigit/workshophub/internal/middleware"
	"github.com/yigit/workshophub/internal/pkg/apperrors"
)

// WorkshopLookup is the part of the workshop store the handler needs.
type WorkshopLookup interface {
	GetWorkshopByID(ctx context.Context, id int64) (*models.Workshop, error)
}

// Handler for WebSocket connections
type Handler struct {
	hub       *Hub
	workshops WorkshopLookup
	upgrader  *websocket.Upgrader
	logger    zerolog.Logger
}

// NewHandler creates a new WebSocket handler accepting browsers from allowedOrigins
func NewHandler(hub *Hub, workshops WorkshopLookup, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:       hub,
		workshops: workshops,
		upgrader:  newUpgrader(allowedOrigins),
		logger:    logger.With().Str("handler", "live").Logger(),
	}
}

// FollowAll godoc
// @Summary Live feed of every workshop
// @Description Upgrades to a WebSocket that receives workshop.created, vote.cast and workshop.status_changed events. Browsers may pass the JWT as ?token=
// @Tags live
// @Security BearerAuth
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /workshops/live [get]
func (h *Handler) FollowAll(c *gin.Context) {
	h.serve(c, AllWorkshops)
}

// FollowWorkshop godoc
// @Summary Live feed of one workshop
// @Description Upgrades to a WebSocket that receives vote.cast and workshop.status_changed events for the workshop
// @Tags live
// @Security BearerAuth
// @Param id path int true "Workshop ID" Format(int64) minimum(1)
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Failure 400 {object} dto.ErrorResponse "Invalid workshop ID"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Workshop not found"
// @Router /workshops/{id}/live [get]
func (h *Handler) FollowWorkshop(c *gin.Context) {
	workshopID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || workshopID <= 0 {
		middleware.HandleAPIError(c, apperrors.ErrInvalidWorkshopID)
		return
	}

	if _, err := h.workshops.GetWorkshopByID(c.Request.Context(), workshopID); err != nil {
		middleware.HandleAPIError(c, err)
		return
	}

	h.serve(c, workshopID)
}

func (h *Handler) serve(c *gin.Context, workshopID int64) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.HandleAPIError(c, apperrors.ErrUnauthenticated)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		h.logger.Warn().Err(err).Int64("workshopID", workshopID).Int64("userID", userID).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:        h.hub,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		userID:     userID,
		workshopID: workshopID,
		remoteAddr: conn.RemoteAddr().String(),
		logger:     h.logger,
	}
	if !h.hub.join(client) {
		closeWithReason(conn, "server shutting down")
		return
	}

	go client.writePump()
	go client.readPump()
}
