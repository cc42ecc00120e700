package models

import "time"

// Role is the caller role attached to an authenticated request.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// User is a customer account as seen by the booking core.
type User struct {
	ID        string     `bson:"id" json:"id"`
	Name      string     `bson:"name" json:"name"`
	Contact   Identifier `bson:"contact" json:"contact"`
	FCMToken  string     `bson:"fcmToken,omitempty" json:"-"`
	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   Role
}
