package models

import "time"

// Image is an uploaded picture. Every image belongs to exactly one folder.
type Image struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	FolderID  string    `json:"folder"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// ImagesResponse wraps GET /folders/images/{id}.
type ImagesResponse struct {
	Images []Image `json:"images"`
}

// UploadImageResponse wraps POST /folders/upload-image/{id}.
// The backend signals success with both a 2xx status and Success == true.
type UploadImageResponse struct {
	Success bool   `json:"success"`
	Image   *Image `json:"image"`
	Message string `json:"message,omitempty"`
}
