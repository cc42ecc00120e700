package models

import "time"

type ReviewVisibility string

const (
	ReviewActive   ReviewVisibility = "active"
	ReviewHidden   ReviewVisibility = "hidden"
	ReviewReported ReviewVisibility = "reported"
)

const MaxReviewCommentLength = 1000

type Review struct {
	ID           string           `bson:"id" json:"id"`
	BookingID    string           `bson:"bookingId" json:"bookingId"`
	CustomerID   string           `bson:"customerId" json:"customerId"`
	ProviderID   string           `bson:"providerId" json:"providerId"`
	ServiceID    string           `bson:"serviceId" json:"serviceId"`
	ServiceName  string           `bson:"serviceName,omitempty" json:"serviceName,omitempty"`
	ProviderName string           `bson:"providerName,omitempty" json:"providerName,omitempty"`
	Rating       int              `bson:"rating" json:"rating"`
	Comment      string           `bson:"comment,omitempty" json:"comment,omitempty"`
	Status       ReviewVisibility `bson:"status" json:"status"`
	CreatedAt    time.Time        `bson:"createdAt" json:"createdAt"`
}
