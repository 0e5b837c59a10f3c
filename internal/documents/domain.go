package documents

import (
	"fmt"
	"time"

	"github.com/gulfplacement/placement/internal/shared"
)

// Type classifies an uploaded document.
type Type string

const (
	TypePassport        Type = "passport"
	TypeNINCard         Type = "nin_card"
	TypeCV              Type = "cv"
	TypeCertificate     Type = "certificate"
	TypePhoto           Type = "photo"
	TypeMedical         Type = "medical"
	TypePoliceClearance Type = "police_clearance"
	TypeOther           Type = "other"
)

// Valid reports whether t is a known document type.
func (t Type) Valid() bool {
	switch t {
	case TypePassport, TypeNINCard, TypeCV, TypeCertificate, TypePhoto, TypeMedical, TypePoliceClearance, TypeOther:
		return true
	}
	return false
}

// AllowedMIMETypes lists the content types accepted on upload.
var AllowedMIMETypes = []string{
	"image/jpeg",
	"image/png",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// DefaultMaxUploadBytes is the upload size limit when none is configured.
const DefaultMaxUploadBytes int64 = 5 << 20

var (
	// ErrFileTooLarge is returned for uploads above the configured limit.
	ErrFileTooLarge = fmt.Errorf("%w: file too large", shared.ErrValidation)
	// ErrUnsupportedType is returned when the sniffed content type is not allowed.
	ErrUnsupportedType = fmt.Errorf("%w: file type not allowed", shared.ErrValidation)
)

// Document is an uploaded file's metadata.
type Document struct {
	ID           string       `json:"id"`
	ClientID     string       `json:"client_id"`
	DocumentType Type         `json:"document_type"`
	FileName     string       `json:"file_name"`
	StorageKey   string       `json:"-"`
	FileSize     int64        `json:"file_size"`
	MimeType     string       `json:"mime_type"`
	IsVerified   bool         `json:"is_verified"`
	VerifiedBy   *string      `json:"verified_by"`
	VerifiedAt   *time.Time   `json:"verified_at"`
	ExpiryDate   *shared.Date `json:"expiry_date"`
	UploadedAt   time.Time    `json:"uploaded_at"`
}

// UploadInput is a parsed upload.
type UploadInput struct {
	DocumentType Type
	FileName     string
	Data         []byte
	ExpiryDate   *shared.Date
}

// VerifyInput sets the verification flag.
type VerifyInput struct {
	Verified *bool `json:"is_verified" validate:"required"`
}
