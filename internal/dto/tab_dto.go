package dto

type OpenTabRequest struct {
	Id          string `json:"id" validate:"required"`
	DisplayName string `json:"display_name"`
}

type ObserveRouteRequest struct {
	Path string `json:"path" validate:"required"`
}
