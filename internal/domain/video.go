package domain

import "time"

// VideoCategory classifies uploaded videos
type VideoCategory string

const (
	VideoCategoryGeneral        VideoCategory = "general"
	VideoCategoryMedical        VideoCategory = "medical"
	VideoCategoryEducation      VideoCategory = "education"
	VideoCategoryEmergency      VideoCategory = "emergency"
	VideoCategoryInfrastructure VideoCategory = "infrastructure"
)

// VideoCategories lists every known category in display order
var VideoCategories = []VideoCategory{
	VideoCategoryGeneral,
	VideoCategoryMedical,
	VideoCategoryEducation,
	VideoCategoryEmergency,
	VideoCategoryInfrastructure,
}

// IsValid reports whether c is a known category
func (c VideoCategory) IsValid() bool {
	for _, known := range VideoCategories {
		if c == known {
			return true
		}
	}
	return false
}

// VideoStatus is the processing state reported by the backend
type VideoStatus string

const (
	VideoStatusUploading  VideoStatus = "uploading"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusReady      VideoStatus = "ready"
	VideoStatusFailed     VideoStatus = "failed"
)

// Default pagination for video listings
const (
	DefaultVideoPage  = 1
	DefaultVideoLimit = 10
)

// Video is a managed video record
type Video struct {
	ID          string        `json:"_id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Category    VideoCategory `json:"category,omitempty"`
	Status      VideoStatus   `json:"status,omitempty"`
	Filename    string        `json:"filename,omitempty"`
	Size        int64         `json:"size,omitempty"`
	Duration    float64       `json:"duration,omitempty"`
	UploadedBy  string        `json:"uploadedBy,omitempty"`
	CreatedAt   *time.Time    `json:"createdAt,omitempty"`
}

// VideoUpdate holds editable video metadata
type VideoUpdate struct {
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Category    VideoCategory `json:"category,omitempty"`
}

// Pagination describes a page of a listing
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalVideos int `json:"totalVideos"`
	Limit       int `json:"limit"`
}

// VideoPage is one page of a video listing
type VideoPage struct {
	Videos     []Video    `json:"videos"`
	Pagination Pagination `json:"pagination"`
}

// Normalize fills missing pagination fields with defaults
func (p *VideoPage) Normalize() {
	if p.Videos == nil {
		p.Videos = []Video{}
	}
	if p.Pagination.CurrentPage <= 0 {
		p.Pagination.CurrentPage = DefaultVideoPage
	}
	if p.Pagination.TotalPages <= 0 {
		p.Pagination.TotalPages = 1
	}
	if p.Pagination.Limit <= 0 {
		p.Pagination.Limit = DefaultVideoLimit
	}
	if p.Pagination.TotalVideos < 0 {
		p.Pagination.TotalVideos = 0
	}
}
