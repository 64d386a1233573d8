package dto

type RegisterCameraRequest struct {
	Name string  `json:"name" binding:"required"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

type CameraResponse struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}
