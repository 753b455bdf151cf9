// Package pix generates the opaque identifiers and payment artifacts
// of the charge flow: prefixed entity IDs, short transaction codes and
// the PIX copy-paste payload with its QR image URL. The payload format
// is payment-network specific and treated as opaque by the rest of the
// system.
package pix

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const transactionCodeLength = 18

// NewID returns a prefixed opaque identifier, e.g. "charge-<uuid>".
func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// NewTransactionCode returns a short alphanumeric code unique enough
// to key a charge on the payment side.
func NewTransactionCode() string {
	code := "tx" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if len(code) > transactionCodeLength {
		code = code[:transactionCodeLength]
	}

	return code
}

// NewPayload builds the EMV-style PIX copy-paste string for a buyer.
func NewPayload(name string, now time.Time) string {
	safeName := name
	if safeName == "" {
		safeName = "Cliente"
	}
	if len(safeName) > 24 {
		safeName = safeName[:24]
	}
	safeName = fmt.Sprintf("%-24s", safeName)

	return fmt.Sprintf(
		"00020126580014br.gov.bcb.pix0136rifa.exemplo/%d5204000053039865802BR5925%s6008BRASILIA62070503***6304ABCD",
		now.UnixMilli(),
		safeName,
	)
}

// QRImageURL returns the rendering URL for a payload.
func QRImageURL(payload string) string {
	return "https://api.qrserver.com/v1/create-qr-code/?size=480x480&data=" + url.QueryEscape(payload)
}
