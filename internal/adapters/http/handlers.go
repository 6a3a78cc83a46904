package http

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Lovsan/chatterbox/internal/auth"
	"github.com/Lovsan/chatterbox/internal/config"
	"github.com/Lovsan/chatterbox/internal/domain"
	"github.com/Lovsan/chatterbox/internal/storage"
)

const defaultHistoryLimit = 50

type handlers struct {
	deps Deps
	cfg  *config.Config
}

func (h *handlers) register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.deps.Auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Info().Str("module", "adapters.http").Str("username", user.Username).Msg("user registered")
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (h *handlers) login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, token, err := h.deps.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *handlers) searchUsers(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusOK, gin.H{"users": []domain.User{}})
		return
	}

	users, err := h.deps.Users.Search(c.Request.Context(), query, 20)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("user search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	// Do not offer the caller themselves as a chat partner.
	me, _ := auth.Identity(c)
	filtered := users[:0]
	for _, u := range users {
		if u.ID != me.ID {
			filtered = append(filtered, u)
		}
	}
	c.JSON(http.StatusOK, gin.H{"users": filtered})
}

func (h *handlers) directHistory(c *gin.Context) {
	me, _ := auth.Identity(c)

	peerID, err := strconv.ParseInt(c.Query("peer"), 10, 64)
	if err != nil || peerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "peer is required"})
		return
	}
	beforeID, _ := strconv.ParseInt(c.Query("before_id"), 10, 64)
	limit := historyLimit(c)

	msgs, err := h.deps.Messages.DirectHistory(c.Request.Context(), me.ID, domain.UserID(peerID), beforeID, limit)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("direct history failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *handlers) createGroup(c *gin.Context) {
	me, _ := auth.Identity(c)

	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group name is required"})
		return
	}

	code := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	group, err := h.deps.Groups.Create(c.Request.Context(), strings.TrimSpace(req.Name), me.ID, code)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("group create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.deps.Coord.Rooms.JoinGroup(me.ID, group.ID)
	log.Info().Str("module", "adapters.http").Int64("group_id", int64(group.ID)).Msg("group created")
	c.JSON(http.StatusCreated, gin.H{"group": group})
}

func (h *handlers) joinGroup(c *gin.Context) {
	me, _ := auth.Identity(c)

	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invite code is required"})
		return
	}

	group, err := h.deps.Groups.GetByCode(c.Request.Context(), strings.TrimSpace(req.Code))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown invite code"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err := h.deps.Groups.AddMember(c.Request.Context(), group.ID, me.ID); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("group join failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.deps.Coord.Rooms.JoinGroup(me.ID, group.ID)
	c.JSON(http.StatusOK, gin.H{"group": group})
}

func (h *handlers) listGroups(c *gin.Context) {
	me, _ := auth.Identity(c)

	ids, err := h.deps.Groups.MembershipsOf(c.Request.Context(), me.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	groups := make([]*domain.Group, 0, len(ids))
	for _, id := range ids {
		g, err := h.deps.Groups.GetByID(c.Request.Context(), id)
		if err != nil {
			continue
		}
		groups = append(groups, g)
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (h *handlers) leaveGroup(c *gin.Context) {
	me, _ := auth.Identity(c)

	gid, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || gid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	if err := h.deps.Groups.RemoveMember(c.Request.Context(), domain.GroupID(gid), me.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.deps.Coord.Rooms.LeaveGroup(me.ID, domain.GroupID(gid))
	c.Status(http.StatusNoContent)
}

func (h *handlers) groupHistory(c *gin.Context) {
	me, _ := auth.Identity(c)

	gid, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || gid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	member, err := h.deps.Groups.IsMember(c.Request.Context(), domain.GroupID(gid), me.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not a member of this group"})
		return
	}

	beforeID, _ := strconv.ParseInt(c.Query("before_id"), 10, 64)
	limit := historyLimit(c)

	msgs, err := h.deps.Messages.GroupHistory(c.Request.Context(), domain.GroupID(gid), beforeID, limit)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("group history failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// upload accepts a blob, stores it under a random name and hands back a
// one-shot claim token the client attaches to its next message.
func (h *handlers) upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	name := uuid.NewString() + filepath.Ext(file.Filename)
	dst := filepath.Join(h.cfg.UploadsDir, name)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("upload save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	mediaType := c.PostForm("media_type")
	if mediaType == "" {
		mediaType = file.Header.Get("Content-Type")
	}
	duration, _ := strconv.ParseFloat(c.PostForm("duration"), 64)

	att := &domain.Attachment{
		URL:       "/uploads/" + name,
		MediaType: mediaType,
		Duration:  duration,
	}
	token := uuid.NewString()
	if err := h.deps.Attachments.Put(c.Request.Context(), token, att, h.cfg.AttachmentTTL); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("attachment token store failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "attachment": att})
}

func historyLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 || limit > 200 {
		return defaultHistoryLimit
	}
	return limit
}
