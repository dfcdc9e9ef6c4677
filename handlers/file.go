package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/normatel/norahub/services"
)

type FileHandler struct {
	Files   *services.FileService
	Folders *services.FolderService
}

func NewFileHandler(files *services.FileService, folders *services.FolderService) *FileHandler {
	return &FileHandler{Files: files, Folders: folders}
}

// ListFiles lists a card's stored files
func (h *FileHandler) ListFiles(c *gin.Context) {
	files, err := h.Files.ListFiles(c.Request.Context(),
		c.GetString("user_id"), c.Param("id"), c.Param("cardId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, files)
}

// UploadFile stores a multipart file under a card
func (h *FileHandler) UploadFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer file.Close()

	info, err := h.Files.UploadFile(c.Request.Context(),
		c.GetString("user_id"), c.Param("id"), c.Param("cardId"),
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// DeleteFile removes a single stored file
func (h *FileHandler) DeleteFile(c *gin.Context) {
	err := h.Files.DeleteFile(c.Request.Context(),
		c.GetString("user_id"), c.Param("id"), c.Param("cardId"), c.Query("path"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "file deleted"})
}

// DownloadURL returns a signed download link for a stored file
func (h *FileHandler) DownloadURL(c *gin.Context) {
	url, err := h.Files.DownloadURL(c.Request.Context(),
		c.GetString("user_id"), c.Param("id"), c.Param("cardId"), c.Query("path"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// GetStorageOp returns the status of a folder operation
func (h *FileHandler) GetStorageOp(c *gin.Context) {
	op, err := h.Folders.GetOp(c.Request.Context(), c.Param("opId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, op)
}
