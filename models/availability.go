package models

import "time"

// ScheduleSlot is one bookable time range of a service day, e.g. 18:00-22:00.
type ScheduleSlot struct {
	Start    string `bson:"start" json:"start"`
	End      string `bson:"end" json:"end"`
	Capacity int    `bson:"capacity" json:"capacity"`
}

// Label is the slot string bookings carry.
func (s ScheduleSlot) Label() string {
	return s.Start + "-" + s.End
}

// AvailabilityConfig is a provider's weekly schedule for one service.
// WorkingDays use time.Weekday numbering, 0 = Sunday.
type AvailabilityConfig struct {
	ProviderID  string         `bson:"providerId" json:"providerId"`
	ServiceID   string         `bson:"serviceId" json:"serviceId"`
	WorkingDays []int          `bson:"workingDays" json:"workingDays"`
	Slots       []ScheduleSlot `bson:"slots" json:"slots"`
	CreatedAt   time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time      `bson:"updatedAt" json:"updatedAt"`
}

func (c *AvailabilityConfig) WorksOn(day time.Weekday) bool {
	for _, d := range c.WorkingDays {
		if d == int(day) {
			return true
		}
	}
	return false
}

// HasSlot reports whether label names one of the configured slots.
func (c *AvailabilityConfig) HasSlot(label string) bool {
	for _, s := range c.Slots {
		if s.Label() == label {
			return true
		}
	}
	return false
}

type DayAvailability string

const (
	DayAvailable   DayAvailability = "AVAILABLE"
	DayFull        DayAvailability = "FULL"
	DayUnavailable DayAvailability = "UNAVAILABLE"
)

// MonthlyAvailability is the calendar view of one service for one month,
// keyed by YYYY-MM-DD.
type MonthlyAvailability struct {
	ServiceID string                     `json:"serviceId"`
	Month     string                     `json:"month"`
	Days      map[string]DayAvailability `json:"days"`
}
