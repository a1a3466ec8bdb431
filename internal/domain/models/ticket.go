package models

// QRPayload is the signed content of a ticket credential. Field order is the
// serialization order.
type QRPayload struct {
	ID        int64  `json:"id"`
	Ref       string `json:"ref"`
	Seats     int    `json:"seats"`
	From      string `json:"from"`
	To        string `json:"to"`
	Date      string `json:"date"`
	Timestamp int64  `json:"timestamp"`
}

// QRVerification is the result of checking a ticket credential.
type QRVerification struct {
	Valid   bool       `json:"valid"`
	Payload *QRPayload `json:"payload,omitempty"`
	Error   string     `json:"error,omitempty"`
}
