package models

import "time"

// ServiceListing is a bookable offering published by a provider.
type ServiceListing struct {
	ID         string    `bson:"id" json:"id"`
	ProviderID string    `bson:"providerId" json:"providerId"`
	Name       string    `bson:"name" json:"name"`
	Category   string    `bson:"category" json:"category"`
	Price      float64   `bson:"price" json:"price"`
	Currency   string    `bson:"currency" json:"currency"`
	Images     []string  `bson:"images" json:"images"`
	Active     bool      `bson:"active" json:"active"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}
