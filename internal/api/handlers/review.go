package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbrose/deertracker/internal/storage"
	"github.com/kbrose/deertracker/pkg/dto"
)

type ReviewHandler struct {
	db    *storage.PostgresStore
	crops *storage.MinIOStore
}

func NewReviewHandler(db *storage.PostgresStore, crops *storage.MinIOStore) *ReviewHandler {
	return &ReviewHandler{db: db, crops: crops}
}

// Pending lists every detection awaiting review.
func (h *ReviewHandler) Pending(c *gin.Context) {
	objects, err := h.db.PendingObjects(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.ObjectResponse, 0, len(objects))
	for _, obj := range objects {
		r := dto.ObjectResponse{
			ID:         obj.ID,
			Label:      obj.Label,
			Confidence: obj.Confidence,
			Lat:        obj.Lat,
			Lon:        obj.Lon,
			PhotoID:    obj.PhotoID,
			CameraID:   obj.CameraID,
			CropURL:    "/v1/review/" + obj.ID + "/crop",
		}
		if obj.Time != nil {
			r.Time = obj.Time.Format(time.RFC3339)
		}
		resp = append(resp, r)
	}

	c.JSON(http.StatusOK, dto.ReviewListResponse{Objects: resp, Total: len(resp)})
}

// Commit vets every currently pending detection in one bulk update.
// The transition is irreversible through this API.
func (h *ReviewHandler) Commit(c *gin.Context) {
	updated, err := h.db.CommitReview(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.CommitReviewResponse{Updated: updated})
}

// Crop proxies a detection's stored crop image from the object store.
func (h *ReviewHandler) Crop(c *gin.Context) {
	obj, err := h.db.GetObject(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if obj == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
		return
	}

	data, err := h.crops.Get(c.Request.Context(), obj.Path)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "crop not found"})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}
