package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	commonauth "github.com/keeeal/quoth/server/common/auth"
	"github.com/keeeal/quoth/server/common/log"
	"github.com/keeeal/quoth/server/common/middleware"
	"github.com/keeeal/quoth/server/quoth/domain"
	"github.com/keeeal/quoth/server/quoth/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Handler struct {
	archive *service.ArchiveService
	index   *service.MemoryIndex
	bot     *service.BotService
	hub     *service.Hub
	auth    *commonauth.Service
	banlist []string
}

func NewHandler(archive *service.ArchiveService, index *service.MemoryIndex, bot *service.BotService, hub *service.Hub, auth *commonauth.Service, banlist []string) *Handler {
	return &Handler{archive: archive, index: index, bot: bot, hub: hub, auth: auth, banlist: banlist}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, NewHealthResponse("ok")) })
	r.GET("/ws", h.handleWS)
	r.POST("/api/v1/auth/login", h.login)

	api := r.Group("/api/v1")
	api.Use(middleware.AuthRequired(h.auth))
	{
		api.GET("/guilds/:id/random", h.randomMessage)
		api.POST("/guilds/:id/closest", h.closestMessage)
		api.GET("/guilds/:id/count", h.messageCount)
		events := api.Group("/events", middleware.RequireRoles("admin", "gateway"))
		events.POST("/messages", h.onMessage)
		events.POST("/reactions", h.onReaction)
		events.POST("/guild-join", h.onGuildJoin)
		events.POST("/ready", h.onReady)
	}
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	if err := h.auth.CheckPassword(req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(ErrInvalidCredentials))
		return
	}
	token, err := h.auth.GenerateToken("admin", "admin")
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, NewTokenResponse(token, "admin"))
}

func (h *Handler) handleWS(c *gin.Context) {
	token, ok := wsAccessToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse("bearer token is required"))
		return
	}
	if _, _, err := h.auth.ParseAuthContext(token); err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse("invalid token"))
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	client := service.NewWSClient(conn)
	h.hub.Register(client)
	go func() {
		defer h.hub.Unregister(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func wsAccessToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token != "" {
			return token, true
		}
	}
	token := strings.TrimSpace(c.Query("access_token"))
	if token == "" {
		return "", false
	}
	return token, true
}

func (h *Handler) randomMessage(c *gin.Context) {
	guildID, err := guildIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(ErrGuildIDInvalid))
		return
	}
	preds, hasFilters, err := filtersFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	if h.index != nil {
		preds = append(preds, service.NotBot(), service.NotAuthor(h.banlist...))
		msg, err := h.index.RandomMessage(guildID, service.All(preds...))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, msg)
		return
	}
	if hasFilters {
		c.JSON(http.StatusBadRequest, NewErrorResponse("filters are only available in memory mode"))
		return
	}
	msg, err := h.archive.RandomMessage(c.Request.Context(), guildID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) closestMessage(c *gin.Context) {
	guildID, err := guildIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(ErrGuildIDInvalid))
		return
	}
	if h.archive == nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("closest lookup requires archive mode"))
		return
	}
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	msg, err := h.archive.ClosestToText(c.Request.Context(), guildID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) messageCount(c *gin.Context) {
	guildID, err := guildIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(ErrGuildIDInvalid))
		return
	}
	if h.index != nil {
		c.JSON(http.StatusOK, NewCountResponse(h.index.Count(guildID)))
		return
	}
	count, err := h.archive.Count(c.Request.Context(), guildID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewCountResponse(count))
}

func (h *Handler) onMessage(c *gin.Context) {
	var msg domain.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	if err := h.bot.OnMessage(c.Request.Context(), msg); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewOKResponse())
}

func (h *Handler) onReaction(c *gin.Context) {
	var event domain.ReactionEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	if err := h.bot.OnReactionAdd(c.Request.Context(), event); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewOKResponse())
}

func (h *Handler) onGuildJoin(c *gin.Context) {
	var guild domain.Guild
	if err := c.ShouldBindJSON(&guild); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	go func() {
		if err := h.bot.OnGuildJoin(context.Background(), guild); err != nil {
			log.Errorf("guild join backfill: %v", err)
		}
	}()
	c.JSON(http.StatusAccepted, NewOKResponse())
}

func (h *Handler) onReady(c *gin.Context) {
	var guilds []domain.Guild
	if err := c.ShouldBindJSON(&guilds); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	go func() {
		if err := h.bot.OnReady(context.Background(), guilds); err != nil {
			log.Errorf("ready backfill: %v", err)
		}
	}()
	c.JSON(http.StatusAccepted, NewOKResponse())
}

func guildIDParam(c *gin.Context) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
}

// filtersFromQuery maps query parameters to message predicates. The second
// return reports whether any filter parameter was present at all.
func filtersFromQuery(c *gin.Context) ([]service.Predicate, bool, error) {
	var preds []service.Predicate
	hasFilters := false

	if text, ok := c.GetQuery("text"); ok {
		hasFilters = true
		preds = append(preds, service.HasText(text))
	}
	if raw, ok := c.GetQuery("author_not"); ok {
		hasFilters = true
		preds = append(preds, service.NotAuthor(strings.Split(raw, ",")...))
	}
	if _, ok := c.GetQuery("has_image"); ok {
		hasFilters = true
		preds = append(preds, service.HasImage())
	}
	if _, ok := c.GetQuery("has_video"); ok {
		hasFilters = true
		preds = append(preds, service.HasVideo())
	}
	if raw, ok := c.GetQuery("url"); ok {
		hasFilters = true
		preds = append(preds, service.HasURL(raw))
	}
	if raw, ok := c.GetQuery("tag"); ok {
		hasFilters = true
		userID := int64(0)
		if raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, true, errors.New("tag must be a user id")
			}
			userID = parsed
		}
		preds = append(preds, service.HasTag(userID))
	}
	if raw, ok := c.GetQuery("day"); ok {
		hasFilters = true
		day, err := parseWeekday(raw)
		if err != nil {
			return nil, true, err
		}
		preds = append(preds, service.OnDay(day))
	}
	if raw, ok := c.GetQuery("year"); ok {
		hasFilters = true
		year, err := strconv.Atoi(raw)
		if err != nil {
			return nil, true, errors.New("year must be a number")
		}
		preds = append(preds, service.OnYear(year))
	}
	return preds, hasFilters, nil
}

func parseWeekday(raw string) (time.Weekday, error) {
	for day := time.Sunday; day <= time.Saturday; day++ {
		if strings.EqualFold(raw, day.String()) {
			return day, nil
		}
	}
	return 0, errors.New("day must be a weekday name")
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrGuildNotArchived),
		errors.Is(err, domain.ErrNoEligibleMessages):
		c.JSON(http.StatusNotFound, NewErrorResponse(err.Error()))
	case errors.Is(err, domain.ErrChannelForbidden):
		c.JSON(http.StatusForbidden, NewErrorResponse(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(err.Error()))
	}
}
