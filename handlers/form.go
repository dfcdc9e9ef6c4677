package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/normatel/norahub/services"
)

type FormHandler struct {
	Service *services.FormService
}

func NewFormHandler(service *services.FormService) *FormHandler {
	return &FormHandler{Service: service}
}

// SubmitResponse accepts a submission for a forms card
func (h *FormHandler) SubmitResponse(c *gin.Context) {
	var req struct {
		Values map[string]string `json:"values" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.Service.SubmitResponse(c.Request.Context(),
		c.GetString("user_id"), c.Param("id"), c.Param("cardId"), req.Values)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response)
}

// ListResponses returns a card's submissions
func (h *FormHandler) ListResponses(c *gin.Context) {
	responses, err := h.Service.ListResponses(c.Request.Context(),
		c.GetString("user_id"), c.Param("id"), c.Param("cardId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses)
}

// ExportCSV downloads a card's submissions as a CSV file
func (h *FormHandler) ExportCSV(c *gin.Context) {
	cardID := c.Param("cardId")

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="responses-%s.csv"`, cardID))

	err := h.Service.ExportCSV(c.Request.Context(),
		c.GetString("user_id"), c.Param("id"), cardID, c.Writer)
	if err != nil {
		respondError(c, err)
		return
	}
}
