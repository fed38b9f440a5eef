package domain

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// VerificationPayload is the content of a ticket's QR code.
type VerificationPayload struct {
	TicketID   string `json:"ticketId"`
	TicketCode string `json:"ticketCode"`
	UserID     string `json:"userId"`
	EventID    string `json:"eventId"`
}

// EncodeVerificationCode returns the textual payload printed on a ticket.
func EncodeVerificationCode(ticketID, ticketCode, userID, eventID string) string {
	b, _ := json.Marshal(VerificationPayload{
		TicketID:   ticketID,
		TicketCode: ticketCode,
		UserID:     userID,
		EventID:    eventID,
	})
	return string(b)
}

// DecodeVerificationCode parses a scanned payload. Any malformed input, including
// a payload without ticketId or ticketCode, yields an ErrInvalidCredential error.
func DecodeVerificationCode(payload string) (*VerificationPayload, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, CredentialError("Invalid QR code", "empty payload")
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	var p VerificationPayload
	if err := dec.Decode(&p); err != nil {
		return nil, CredentialError("Invalid QR code", err.Error())
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, CredentialError("Invalid QR code", "trailing data after payload")
	}
	p.TicketID = strings.TrimSpace(p.TicketID)
	p.TicketCode = strings.TrimSpace(p.TicketCode)
	if p.TicketID == "" || p.TicketCode == "" {
		return nil, CredentialError("Invalid QR code", "ticketId and ticketCode are required")
	}
	return &p, nil
}
