package tracking

import (
	"bytes"
	"fmt"
	"io"

	apperrors "bucheron/internal/errors"

	"github.com/gabriel-vasile/mimetype"
)

const MaxReceiptBytes int64 = 10 << 20

var receiptTypes = []string{"image/jpeg", "image/png", "application/pdf"}

const receiptRejected = "Le justificatif doit être une image JPEG, PNG ou un PDF de 10 Mo maximum."

// ReadReceipt reads an uploaded transfer receipt and checks its content type
// from the bytes themselves. limit <= 0 means MaxReceiptBytes.
func ReadReceipt(r io.Reader, limit int64) ([]byte, string, error) {
	if limit <= 0 {
		limit = MaxReceiptBytes
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading receipt: %w", err)
	}
	if n == 0 {
		return nil, "", apperrors.NewValidationError("Aucun fichier reçu", apperrors.ValidationDetail{
			Field:   "receipt",
			Message: "Ce champ est obligatoire",
		})
	}
	if n > limit {
		return nil, "", apperrors.NewTooLargeError(receiptRejected, limit)
	}

	data := buf.Bytes()
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), receiptTypes...) {
		return nil, "", apperrors.NewUnsupportedMediaError(receiptRejected)
	}
	return data, mt.String(), nil
}

// Extension is the canonical file extension for an accepted receipt type.
func Extension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "application/pdf":
		return ".pdf"
	}
	return ""
}
