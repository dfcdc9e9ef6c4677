package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/normatel/norahub/services"
)

type ProjectHandler struct {
	Service *services.ProjectService
}

func NewProjectHandler(service *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{Service: service}
}

func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects, err := h.Service.ListProjects(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.Service.GetProject(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var input services.ProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.Service.CreateProject(c.Request.Context(), c.GetString("user_id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	var input services.ProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.Service.UpdateProject(c.Request.Context(), c.GetString("user_id"), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.Service.DeleteProject(c.Request.Context(), c.GetString("user_id"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "project deleted"})
}

// ===========================
// MEMBERS
// ===========================

func (h *ProjectHandler) AddMember(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.Service.AddMember(c.Request.Context(), c.GetString("user_id"), c.Param("id"), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	project, err := h.Service.RemoveMember(c.Request.Context(), c.GetString("user_id"), c.Param("id"), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// ===========================
// CARDS
// ===========================

func (h *ProjectHandler) AddCard(c *gin.Context) {
	var input services.CardInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	card, err := h.Service.AddCard(c.Request.Context(), c.GetString("user_id"), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

func (h *ProjectHandler) UpdateCard(c *gin.Context) {
	var input services.CardInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	card, err := h.Service.UpdateCard(c.Request.Context(), c.GetString("user_id"), c.Param("id"), c.Param("cardId"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *ProjectHandler) DeleteCard(c *gin.Context) {
	if err := h.Service.DeleteCard(c.Request.Context(), c.GetString("user_id"), c.Param("id"), c.Param("cardId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "card deleted"})
}
