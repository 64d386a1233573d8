package dto

type ObjectResponse struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Time       string  `json:"time,omitempty"`
	PhotoID    string  `json:"photo_id"`
	CameraID   string  `json:"camera_id"`
	CropURL    string  `json:"crop_url,omitempty"`
}

type ReviewListResponse struct {
	Objects []ObjectResponse `json:"objects"`
	Total   int              `json:"total"`
}

type CommitReviewResponse struct {
	Updated int64 `json:"updated"`
}
