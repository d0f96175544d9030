// Package codec turns registrations into ticket payloads and back.
//
// A payload is a JSON object carrying exactly userId, eventId and registrationId.
// Decoding is purely syntactic: it never consults a store.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ms-volunteer/internal/models"
)

// ErrMalformed is returned for payloads that are not a JSON object with all three fields.
var ErrMalformed = errors.New("malformed ticket payload")

// ErrIncomplete is returned when asked to encode a registration missing an identifier.
var ErrIncomplete = errors.New("registration is missing identifiers")

// wirePayload uses pointers so absent fields can be told apart from present ones.
type wirePayload struct {
	UserID         *string `json:"userId"`
	EventID        *string `json:"eventId"`
	RegistrationID *string `json:"registrationId"`
}

// Encode produces the ticket payload for a registration.
func Encode(reg *models.Registration) (string, error) {
	if reg == nil {
		return "", ErrIncomplete
	}
	return EncodePayload(models.TicketPayload{
		UserID:         reg.UserID,
		EventID:        reg.EventID,
		RegistrationID: reg.RegistrationID,
	})
}

func EncodePayload(p models.TicketPayload) (string, error) {
	if p.UserID == "" || p.EventID == "" || p.RegistrationID == "" {
		return "", ErrIncomplete
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal ticket payload: %w", err)
	}
	return string(data), nil
}

// Decode parses a scanned payload. Unknown fields are ignored; missing or empty
// required fields fail with ErrMalformed.
func Decode(payload string) (models.TicketPayload, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return models.TicketPayload{}, fmt.Errorf("%w: empty payload", ErrMalformed)
	}

	var w wirePayload
	if err := json.Unmarshal([]byte(trimmed), &w); err != nil {
		return models.TicketPayload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	missing := make([]string, 0, 3)
	if w.UserID == nil || *w.UserID == "" {
		missing = append(missing, "userId")
	}
	if w.EventID == nil || *w.EventID == "" {
		missing = append(missing, "eventId")
	}
	if w.RegistrationID == nil || *w.RegistrationID == "" {
		missing = append(missing, "registrationId")
	}
	if len(missing) > 0 {
		return models.TicketPayload{}, fmt.Errorf("%w: missing %s", ErrMalformed, strings.Join(missing, ", "))
	}

	return models.TicketPayload{
		UserID:         *w.UserID,
		EventID:        *w.EventID,
		RegistrationID: *w.RegistrationID,
	}, nil
}
