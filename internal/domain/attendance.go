package domain

import (
	"fmt"
	"strings"
	"time"

	"siteclock/internal/reconcile"
)

// AttendanceRecord is one persisted clock action
type AttendanceRecord struct {
	ID              int64               `json:"id"`
	EmployeeID      int64               `json:"employeeId"`
	WorkSiteID      *int64              `json:"workSiteId"`
	Timestamp       time.Time           `json:"timestamp"`
	Type            reconcile.EventType `json:"type"`
	DeviceInfo      string              `json:"deviceInfo"`
	Latitude        float64             `json:"latitude"`
	Longitude       float64             `json:"longitude"`
	IsForced        bool                `json:"isForced"`
	ForcedByAdminID *int64              `json:"forcedByAdminId,omitempty"`
	Notes           string              `json:"notes,omitempty"`

	// joined columns, empty when the query does not join
	EmployeeName string `json:"employeeName,omitempty"`
	WorkSiteName string `json:"workSiteName,omitempty"`
}

// ToEvent converts the record for reconciliation
func (r AttendanceRecord) ToEvent() reconcile.Event {
	return reconcile.Event{
		ID:           r.ID,
		EmployeeID:   r.EmployeeID,
		WorkSiteID:   r.WorkSiteID,
		Timestamp:    r.Timestamp,
		Type:         r.Type,
		EmployeeName: r.EmployeeName,
		WorkSiteName: r.WorkSiteName,
		DeviceInfo:   r.DeviceInfo,
		IsForced:     r.IsForced,
		Notes:        r.Notes,
	}
}

// ToEvents converts a slice of records
func ToEvents(records []AttendanceRecord) []reconcile.Event {
	events := make([]reconcile.Event, 0, len(records))
	for _, r := range records {
		events = append(events, r.ToEvent())
	}
	return events
}

// AttendanceFilter scopes attendance queries. Zero values mean "any".
type AttendanceFilter struct {
	EmployeeID int64
	WorkSiteID int64
	Start      time.Time
	End        time.Time
	Descending bool
	Limit      int
}

// ForcedDeviceInfo is the device label of an admin-inserted record
func ForcedDeviceInfo(adminName, notes string) string {
	info := fmt.Sprintf("Forced by admin: %s", adminName)
	if n := strings.TrimSpace(notes); n != "" {
		info += " | Note: " + n
	}
	return info
}

// MapsURL links a coordinate to Google Maps, "" for forced (0,0) records
func MapsURL(lat, lng float64) string {
	if lat == 0 || lng == 0 {
		return ""
	}
	return fmt.Sprintf("https://www.google.com/maps?q=%v,%v", lat, lng)
}
