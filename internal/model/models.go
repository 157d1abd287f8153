package model

// EventsPayload is the upstream events.json document: groups of events plus
// the venues they reference.
type EventsPayload struct {
	Groups Ordered[Group] `json:"groups"`
	Venues []Venue        `json:"venues"`
}

// Group is a meetup group and its events. The group id is the key in EventsPayload.Groups.
type Group struct {
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Description string  `json:"description"`
	Events      []Event `json:"events"`
}

// Event is an upstream event record.
type Event struct {
	ID                    ID              `json:"id"`
	Title                 string          `json:"title"`
	Description           string          `json:"description"`
	Time                  int64           `json:"time"`     // epoch ms
	Duration              int64           `json:"duration"` // ms, zero when absent
	Venue                 ID              `json:"venue"`
	Topics                []string        `json:"topics"`
	IsCancelled           bool            `json:"isCancelled"`
	Image                 *EventImage     `json:"image"`
	MaxTickets            int             `json:"maxTickets"`
	NumberOfAllowedGuests int             `json:"numberOfAllowedGuests"`
	HowToFindUs           string          `json:"howToFindUs"`
	Links                 Ordered[string] `json:"links"`
	FeeSettings           any             `json:"feeSettings"` // unused upstream
}

// EventImage is the cover image reference of an event.
type EventImage struct {
	Location string `json:"location"`
	Date     ID     `json:"date"`
}

// Venue is an upstream venue record.
type Venue struct {
	ID          ID       `json:"id"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	City        string   `json:"city"`
	Country     string   `json:"country"`
	State       string   `json:"state"`
	PostalCode  string   `json:"postalCode"`
	CrossStreet string   `json:"crossStreet"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Gmaps       string   `json:"gmaps"`
}

// HasCoordinates reports whether both lat and lng are present.
func (v Venue) HasCoordinates() bool {
	return v.Lat != nil && v.Lng != nil
}

// PhotosPayload is the upstream photos.json document.
type PhotosPayload struct {
	Groups Ordered[PhotoBatch] `json:"groups"`
}

// PhotoBatch is a set of photos uploaded together. The batch id is the key in PhotosPayload.Groups.
type PhotoBatch struct {
	Content   string  `json:"content"`
	Event     ID      `json:"event"`
	Photos    []Photo `json:"photos"`
	Timestamp ID      `json:"timestamp"`
}

// Photo is an upstream photo record.
type Photo struct {
	Location      string `json:"location"`
	Caption       string `json:"caption"`
	Date          ID     `json:"date"`
	Removed       bool   `json:"removed"`
	Instructional bool   `json:"instructional"`
	Res           any    `json:"res"`     // unused positional metadata
	Corners       any    `json:"corners"` // unused positional metadata
}
