package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/normatel/norahub/services"
)

type CargoHandler struct {
	Service *services.CargoService
}

func NewCargoHandler(service *services.CargoService) *CargoHandler {
	return &CargoHandler{Service: service}
}

func (h *CargoHandler) ListCargos(c *gin.Context) {
	cargos, err := h.Service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cargos)
}

func (h *CargoHandler) GetCargo(c *gin.Context) {
	cargo, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cargo)
}

func (h *CargoHandler) CreateCargo(c *gin.Context) {
	var input services.CargoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cargo, err := h.Service.Create(c.Request.Context(), c.GetString("user_id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cargo)
}

func (h *CargoHandler) UpdateCargo(c *gin.Context) {
	var input services.CargoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cargo, err := h.Service.Update(c.Request.Context(), c.GetString("user_id"), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cargo)
}

func (h *CargoHandler) DeleteCargo(c *gin.Context) {
	if err := h.Service.Delete(c.Request.Context(), c.GetString("user_id"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cargo deleted"})
}
