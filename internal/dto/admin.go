package dto

// CreateAdminUserRequest creates a back-office account.
type CreateAdminUserRequest struct {
	Username    string   `json:"username" validate:"required,min=3,max=50,alphanum"`
	Password    string   `json:"password" validate:"required,min=8,max=72"`
	FullName    string   `json:"full_name" validate:"required,max=200"`
	Email       *string  `json:"email,omitempty" validate:"omitempty,email"`
	Permissions []string `json:"permissions"`
}

// UpdateAdminUserRequest edits an account. Nil fields are left unchanged.
type UpdateAdminUserRequest struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=200"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	IsActive *bool   `json:"is_active,omitempty"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
}

// ReplacePermissionsRequest sets the full permission list of an account.
type ReplacePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// AdminUserResponse is an account with its granted permission names.
type AdminUserResponse struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	FullName    string   `json:"full_name"`
	Email       *string  `json:"email,omitempty"`
	IsActive    bool     `json:"is_active"`
	LastLogin   *string  `json:"last_login,omitempty"`
	Protected   bool     `json:"protected"`
	Permissions []string `json:"permissions"`
}
