package models

import (
	"time"

	_ "github.com/lib/pq"
)

// User roles. Admins run the quotation lifecycle, stores raise stock requests,
// retailers submit priced responses.
const (
	RoleAdmin    = "admin"
	RoleStore    = "store"
	RoleRetailer = "retailer"
)

// User represents the users table. Shared by the lib/pq auth plumbing and the
// gorm side (retailer lookups in the quotation core), so it carries both tags.
type User struct {
	ID        int       `gorm:"primaryKey;column:id" json:"id" example:"1"`
	Email     string    `gorm:"column:email;uniqueIndex;not null" json:"email" example:"user@example.com"`
	Password  string    `gorm:"column:password" json:"password" example:""`
	FirstName string    `gorm:"column:first_name" json:"first_name" example:"John"`
	LastName  string    `gorm:"column:last_name" json:"last_name" example:"Doe"`
	Role      string    `gorm:"column:role;not null" json:"role" example:"retailer"`
	StoreID   *int      `gorm:"column:store_id" json:"store_id,omitempty" example:"1"`
	PhoneNo   string    `gorm:"column:phone_no" json:"phone_no" example:"9876543210"`
	Suspended bool      `gorm:"column:suspended;not null;default:false" json:"suspended" example:"false"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true" json:"is_active" example:"true"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// Session represents the session table used by the auth plumbing.
type Session struct {
	SessionID string    `json:"session_id"`
	UserID    int       `json:"user_id"`
	HostName  string    `json:"host_name"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store represents the stores table.
type Store struct {
	StoreID   int       `json:"store_id" example:"1"`
	Name      string    `json:"name" example:"Downtown Branch"`
	Address   string    `json:"address" example:"123 Main St"`
	City      string    `json:"city" example:"Mumbai"`
	IsActive  bool      `json:"is_active" example:"true"`
	CreatedAt time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// Item represents the items catalog table.
type Item struct {
	ItemID        int       `json:"item_id" example:"1"`
	Name          string    `json:"name" example:"Basmati Rice 5kg"`
	CategoryID    int       `json:"category_id" example:"1"`
	Unit          string    `json:"unit" example:"PCS"`
	CurrentStock  float64   `json:"current_stock" example:"120"`
	ReservedStock float64   `json:"reserved_stock" example:"20"`
	IsActive      bool      `json:"is_active" example:"true"`
	CreatedAt     time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt     time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// AvailableStock is derived on read, never persisted.
func (i *Item) AvailableStock() float64 {
	return i.CurrentStock - i.ReservedStock
}

// Notification represents the notifications table.
type Notification struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Status    string    `json:"status" example:"unread"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActivityLog represents the activity_logs table written after each handled request.
type ActivityLog struct {
	ID           int       `json:"id"`
	EventContext string    `json:"event_context"`
	EventName    string    `json:"event_name"`
	Description  string    `json:"description"`
	UserName     string    `json:"user_name"`
	HostName     string    `json:"host_name"`
	IPAddress    string    `json:"ip_address"`
	CreatedAt    time.Time `json:"created_at"`
}

// LoginRequest is the login body.
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"admin@procurehub.io"`
	Password string `json:"password" binding:"required" example:""`
}

// LoginResponse is returned on successful authentication.
type LoginResponse struct {
	Message      string `json:"message"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	SessionID    string `json:"session_id"`
	User         User   `json:"user"`
}
