package models

import "time"

// AdminUser represents a back-office operator stored in admin_users.
type AdminUser struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	FullName     string     `db:"full_name" json:"full_name"`
	Email        *string    `db:"email" json:"email,omitempty"`
	PasswordHash string     `db:"password_hash" json:"-"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedBy    *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// AdminPermission is a named capability that can be granted to admins.
type AdminPermission struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AdminUserPermission links a user to a granted permission.
type AdminUserPermission struct {
	ID           string    `db:"id" json:"id"`
	AdminUserID  string    `db:"admin_user_id" json:"admin_user_id"`
	PermissionID string    `db:"permission_id" json:"permission_id"`
	GrantedAt    time.Time `db:"granted_at" json:"granted_at"`
	GrantedBy    *string   `db:"granted_by" json:"granted_by,omitempty"`
}

// Permission names understood by the admin gate.
const (
	PermManageRegistrations = "manage_registrations"
	PermUsersRead           = "users_read"
	PermManageCategories    = "manage_categories"
	PermCategoriesRead      = "categories_read"
	PermPanchayathsRead     = "panchayaths_read"
	PermPanchayathsWrite    = "panchayaths_write"
	PermAnnouncementsRead   = "announcements_read"
	PermAnnouncementsWrite  = "announcements_write"
	PermManageUtilities     = "manage_utilities"
	PermUtilitiesRead       = "utilities_read"
	PermAccountsRead        = "accounts_read"
	PermAccountsWrite       = "accounts_write"
	PermManageReports       = "manage_reports"
	PermReportsRead         = "reports_read"
	PermManageUsers         = "manage_users"
	PermAdminUsersRead      = "admin_users_read"
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
