package models

import "time"

type CommissionType string

const (
	CommissionPercentage CommissionType = "percentage"
	CommissionFixed      CommissionType = "fixed"
)

// CommissionSettingsKey is the settings document holding the platform commission.
const CommissionSettingsKey = "commission"

// CommissionPolicy is the platform cut applied when a booking is priced.
type CommissionPolicy struct {
	Type  CommissionType `bson:"commissionType" json:"commissionType"`
	Value float64        `bson:"commissionValue" json:"commissionValue"`
}

// Settings is a keyed platform setting document.
type Settings struct {
	Key              string `bson:"key" json:"key"`
	CommissionPolicy `bson:",inline"`
	UpdatedAt        time.Time `bson:"updatedAt" json:"updatedAt"`
}
