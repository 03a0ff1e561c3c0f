package models

import "time"

// User is a registered account. The password hash is never serialized; the
// json tags deliberately produce the public UserOut wire shape.
type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Email          string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	HashedPassword string    `json:"-" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`

	// Deleting a user removes all of their todos.
	Todos []Todo `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
}
