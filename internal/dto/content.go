package dto

// AnnouncementRequest creates or edits an announcement.
type AnnouncementRequest struct {
	Title    string `json:"title" validate:"required,max=300"`
	Content  string `json:"content" validate:"required"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// UtilityRequest creates or edits a utility link.
type UtilityRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	URL         string  `json:"url" validate:"required,url"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}
