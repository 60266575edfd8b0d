package reconcile

import "time"

// InvalidReason tells why a paired session was quarantined
type InvalidReason string

const (
	ReasonNone      InvalidReason = ""
	ReasonTemporal  InvalidReason = "temporal"  // out <= in
	ReasonExcessive InvalidReason = "excessive" // longer than MaxSessionHours
)

// MaxSessionHours is the longest duration accepted as a valid session
const MaxSessionHours = 24.0

// MixedPrefix starts the hour key of sessions opened and closed at different sites
const MixedPrefix = "[MIXED] "

// Session is one IN paired with the following OUT of the same employee
type Session struct {
	EmployeeID   int64  `json:"employeeId"`
	EmployeeName string `json:"employeeName"`

	WorkSiteIn    string `json:"workSiteIn"`
	WorkSiteOut   string `json:"workSiteOut"`
	WorkSiteInID  *int64 `json:"workSiteInId,omitempty"`
	WorkSiteOutID *int64 `json:"workSiteOutId,omitempty"`

	TimeIn  time.Time `json:"timeIn"`
	TimeOut time.Time `json:"timeOut"`

	// Hours is 0 for temporal sessions and the raw duration otherwise,
	// including excessive ones (display only).
	Hours         float64       `json:"hours"`
	IsValid       bool          `json:"isValid"`
	InvalidReason InvalidReason `json:"invalidReason,omitempty"`
	DateKey       string        `json:"dateKey"`

	InEventID     int64  `json:"inEventId"`
	OutEventID    int64  `json:"outEventId"`
	DeviceInfoIn  string `json:"deviceInfoIn,omitempty"`
	DeviceInfoOut string `json:"deviceInfoOut,omitempty"`
	ForcedIn      bool   `json:"forcedIn"`
	ForcedOut     bool   `json:"forcedOut"`
	NotesIn       string `json:"notesIn,omitempty"`
	NotesOut      string `json:"notesOut,omitempty"`
}

// IsMixed reports whether the session started and ended at different sites
func (s Session) IsMixed() bool {
	return s.WorkSiteIn != s.WorkSiteOut
}

// SiteKey is the HoursByKey key the session contributes to when valid
func (s Session) SiteKey() string {
	if s.IsMixed() {
		return MixedPrefix + s.WorkSiteIn + " → " + s.WorkSiteOut
	}
	return s.WorkSiteIn
}

func newSession(in, out Event) Session {
	return Session{
		EmployeeID:    in.EmployeeID,
		EmployeeName:  in.EmployeeName,
		WorkSiteIn:    in.SiteLabel(),
		WorkSiteOut:   out.SiteLabel(),
		WorkSiteInID:  in.WorkSiteID,
		WorkSiteOutID: out.WorkSiteID,
		TimeIn:        in.Timestamp,
		TimeOut:       out.Timestamp,
		DateKey:       in.Timestamp.Format(DateKeyLayout),
		InEventID:     in.ID,
		OutEventID:    out.ID,
		DeviceInfoIn:  in.DeviceInfo,
		DeviceInfoOut: out.DeviceInfo,
		ForcedIn:      in.IsForced,
		ForcedOut:     out.IsForced,
		NotesIn:       in.Notes,
		NotesOut:      out.Notes,
	}
}
