package models

import "time"

// Todo is a single task record owned by exactly one user. The json tags
// produce the TodoOut wire shape directly; sort_order is internal and only
// observable through list ordering.
type Todo struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"type:varchar(100);not null"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed" gorm:"not null;default:false"`
	SortOrder   int       `json:"-" gorm:"column:sort_order;not null;default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	OwnerID     uint      `json:"owner_id" gorm:"not null;index"`
}
