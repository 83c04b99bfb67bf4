package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/quickfix-api/utils"
)

const uploadCacheControl = "private, max-age=3600"

// GetUploadedImage handles GET /api/v1/uploads/:filename. Only used when
// booking photos are kept on local disk.
func GetUploadedImage(c *gin.Context) {
	path, err := utils.ResolveStoredImage(utils.UploadDir, c.Param("filename"))
	if err != nil {
		var fileErr *utils.FileUploadError
		if !errors.As(err, &fileErr) {
			respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read image")
			return
		}
		status := http.StatusBadRequest
		if fileErr.Code == "FILE_NOT_FOUND" {
			status = http.StatusNotFound
		}
		respondError(c, status, fileErr.Code, fileErr.Message)
		return
	}

	c.Header("Content-Type", "image/png")
	c.Header("Cache-Control", uploadCacheControl)
	c.File(path)
}
