package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/normatel/norahub/services"
)

type UserHandler struct {
	Service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{Service: service}
}

// Me returns the caller's own profile
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.Service.GetUser(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// MyDecision resolves the caller's permission decision, optionally against a
// project (?project_id=)
func (h *UserHandler) MyDecision(c *gin.Context) {
	decision, err := h.Service.Decision(c.Request.Context(), c.GetString("user_id"), c.Query("project_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.Service.ListUsers(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.Service.GetUserFor(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	var input services.UpdateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.Service.UpdateUser(c.Request.Context(), c.GetString("user_id"), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.Service.DeleteUser(c.Request.Context(), c.GetString("user_id"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

// ApproveUser activates a pending account
func (h *UserHandler) ApproveUser(c *gin.Context) {
	user, err := h.Service.ApproveUser(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ToggleProjectAssignment flips a project on the target's assignment list
func (h *UserHandler) ToggleProjectAssignment(c *gin.Context) {
	assigned, err := h.Service.ToggleProjectAssignment(c.Request.Context(),
		c.GetString("user_id"), c.Param("id"), c.Param("projectId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assigned": assigned})
}

// ToggleFavorite flips a project on the caller's own favorites
func (h *UserHandler) ToggleFavorite(c *gin.Context) {
	favorite, err := h.Service.ToggleFavorite(c.Request.Context(), c.GetString("user_id"), c.Param("projectId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorite": favorite})
}

// Favorites lists the caller's favorite project IDs
func (h *UserHandler) Favorites(c *gin.Context) {
	ids, err := h.Service.Favorites(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": ids})
}

// UpdateFCMToken stores the caller's push token
func (h *UserHandler) UpdateFCMToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Service.UpdateFCMToken(c.Request.Context(), c.GetString("user_id"), req.Token); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token updated"})
}
