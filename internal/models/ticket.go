package models

// TicketPayload is the content of a scannable ticket. Only RegistrationID is trusted on scan;
// UserID and EventID are advisory copies.
type TicketPayload struct {
	UserID         string `json:"userId"`
	EventID        string `json:"eventId"`
	RegistrationID string `json:"registrationId"`
}
