package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbrose/deertracker/internal/storage"
	"github.com/kbrose/deertracker/pkg/dto"
)

type CameraHandler struct {
	db *storage.PostgresStore
}

func NewCameraHandler(db *storage.PostgresStore) *CameraHandler {
	return &CameraHandler{db: db}
}

// Register creates a camera. A name collision is a conflict, not a
// server error: cameras are immutable once registered.
func (h *CameraHandler) Register(c *gin.Context) {
	var req dto.RegisterCameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	camera, err := h.db.InsertCamera(c.Request.Context(), req.Name, req.Lat, req.Lon)
	if err != nil {
		if storage.IsDuplicate(err) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.CameraResponse{
		Name: camera.Name,
		Lat:  camera.Lat,
		Lon:  camera.Lon,
	})
}

func (h *CameraHandler) List(c *gin.Context) {
	cameras, err := h.db.ListCameras(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.CameraResponse, 0, len(cameras))
	for _, cam := range cameras {
		resp = append(resp, dto.CameraResponse{Name: cam.Name, Lat: cam.Lat, Lon: cam.Lon})
	}

	c.JSON(http.StatusOK, gin.H{"cameras": resp, "total": len(resp)})
}
