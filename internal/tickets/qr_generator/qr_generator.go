package qr

import (
	"fmt"

	"ms-volunteer/internal/models"
	"ms-volunteer/internal/tickets/codec"

	"github.com/skip2/go-qrcode"
)

const DefaultSize = 256

// QRGenerator renders ticket payloads as PNG QR codes for the ticket display.
type QRGenerator struct {
	size  int
	level qrcode.RecoveryLevel
}

func NewQRGenerator(size int) *QRGenerator {
	if size <= 0 {
		size = DefaultSize
	}
	return &QRGenerator{size: size, level: qrcode.Medium}
}

// GenerateTicketQR encodes the registration's ticket payload and renders it.
func (q *QRGenerator) GenerateTicketQR(reg *models.Registration) ([]byte, error) {
	payload, err := codec.Encode(reg)
	if err != nil {
		return nil, err
	}
	return q.GeneratePayloadQR(payload)
}

func (q *QRGenerator) GeneratePayloadQR(payload string) ([]byte, error) {
	png, err := qrcode.Encode(payload, q.level, q.size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR: %w", err)
	}
	return png, nil
}

func (q *QRGenerator) Size() int {
	return q.size
}
