package profiles

import (
	"fmt"
	"strings"
	"time"

	"github.com/gulfplacement/placement/internal/shared"
)

// Status is the case stage of a client.
type Status string

const (
	StatusNew         Status = "new"
	StatusUnderReview Status = "under_review"
	StatusVerified    Status = "verified"
	StatusInProgress  Status = "in_progress"
	StatusPlaced      Status = "placed"
	StatusTraveled    Status = "traveled"
	StatusInactive    Status = "inactive"
)

var transitions = map[Status][]Status{
	StatusNew:         {StatusUnderReview, StatusInactive},
	StatusUnderReview: {StatusVerified, StatusNew, StatusInactive},
	StatusVerified:    {StatusInProgress, StatusInactive},
	StatusInProgress:  {StatusPlaced, StatusVerified, StatusInactive},
	StatusPlaced:      {StatusTraveled, StatusInProgress},
	StatusTraveled:    nil,
	StatusInactive:    {StatusNew, StatusUnderReview},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// ErrInvalidTransition is returned for status changes outside the table.
var ErrInvalidTransition = fmt.Errorf("%w: status transition not allowed", shared.ErrConflict)

// CheckTransition reports whether a case may move from one status to another.
func CheckTransition(from, to Status) error {
	if !to.Valid() {
		return shared.NewValidationError("status", "unknown status")
	}
	if from == to {
		return fmt.Errorf("%w: already %s", ErrInvalidTransition, to)
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// verifiableFrom lists statuses an admin may verify directly.
var verifiableFrom = map[Status]bool{
	StatusNew:         true,
	StatusUnderReview: true,
	StatusInactive:    true,
}

// Profile is a client's intake record.
type Profile struct {
	ID                           string       `json:"id"`
	UserID                       string       `json:"user_id"`
	Email                        string       `json:"email"`
	FirstName                    string       `json:"first_name"`
	MiddleName                   string       `json:"middle_name"`
	LastName                     string       `json:"last_name"`
	DateOfBirth                  *shared.Date `json:"date_of_birth"`
	Gender                       string       `json:"gender"`
	Nationality                  string       `json:"nationality"`
	NIN                          string       `json:"nin"`
	PassportNumber               string       `json:"passport_number"`
	PassportExpiry               *shared.Date `json:"passport_expiry"`
	PhonePrimary                 string       `json:"phone_primary"`
	PhoneSecondary               string       `json:"phone_secondary"`
	AddressCurrent               string       `json:"address_current"`
	AddressPermanent             string       `json:"address_permanent"`
	EmergencyContactName         string       `json:"emergency_contact_name"`
	EmergencyContactPhone        string       `json:"emergency_contact_phone"`
	EmergencyContactRelationship string       `json:"emergency_contact_relationship"`
	ProfilePhotoURL              string       `json:"profile_photo_url"`
	Status                       Status       `json:"status"`
	VerificationNotes            string       `json:"verification_notes"`
	VerifiedBy                   *string      `json:"verified_by"`
	VerifiedAt                   *time.Time   `json:"verified_at"`
	LastModifiedBy               *string      `json:"last_modified_by"`
	CreatedAt                    time.Time    `json:"created_at"`
	UpdatedAt                    time.Time    `json:"updated_at"`
}

// UpdateInput carries editable profile fields. Nil fields are left unchanged;
// an empty date clears the stored date.
type UpdateInput struct {
	FirstName                    *string      `json:"first_name" validate:"omitempty,max=100"`
	MiddleName                   *string      `json:"middle_name" validate:"omitempty,max=100"`
	LastName                     *string      `json:"last_name" validate:"omitempty,max=100"`
	DateOfBirth                  *shared.Date `json:"date_of_birth"`
	Gender                       *string      `json:"gender" validate:"omitempty,oneof=male female other"`
	Nationality                  *string      `json:"nationality" validate:"omitempty,max=100"`
	NIN                          *string      `json:"nin" validate:"omitempty,max=50"`
	PassportNumber               *string      `json:"passport_number" validate:"omitempty,max=50"`
	PassportExpiry               *shared.Date `json:"passport_expiry"`
	PhonePrimary                 *string      `json:"phone_primary" validate:"omitempty,max=30"`
	PhoneSecondary               *string      `json:"phone_secondary" validate:"omitempty,max=30"`
	AddressCurrent               *string      `json:"address_current" validate:"omitempty,max=500"`
	AddressPermanent             *string      `json:"address_permanent" validate:"omitempty,max=500"`
	EmergencyContactName         *string      `json:"emergency_contact_name" validate:"omitempty,max=200"`
	EmergencyContactPhone        *string      `json:"emergency_contact_phone" validate:"omitempty,max=30"`
	EmergencyContactRelationship *string      `json:"emergency_contact_relationship" validate:"omitempty,max=100"`
	ProfilePhotoURL              *string      `json:"profile_photo_url" validate:"omitempty,url,max=1000"`
}

// Apply copies the provided fields onto p.
func (in UpdateInput) Apply(p *Profile) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&p.FirstName, in.FirstName)
	set(&p.MiddleName, in.MiddleName)
	set(&p.LastName, in.LastName)
	set(&p.Gender, in.Gender)
	set(&p.Nationality, in.Nationality)
	set(&p.NIN, in.NIN)
	set(&p.PassportNumber, in.PassportNumber)
	set(&p.PhonePrimary, in.PhonePrimary)
	set(&p.PhoneSecondary, in.PhoneSecondary)
	set(&p.AddressCurrent, in.AddressCurrent)
	set(&p.AddressPermanent, in.AddressPermanent)
	set(&p.EmergencyContactName, in.EmergencyContactName)
	set(&p.EmergencyContactPhone, in.EmergencyContactPhone)
	set(&p.EmergencyContactRelationship, in.EmergencyContactRelationship)
	set(&p.ProfilePhotoURL, in.ProfilePhotoURL)
	if in.DateOfBirth != nil {
		p.DateOfBirth = optionalDate(*in.DateOfBirth)
	}
	if in.PassportExpiry != nil {
		p.PassportExpiry = optionalDate(*in.PassportExpiry)
	}
}

func optionalDate(d shared.Date) *shared.Date {
	if d.IsZero() {
		return nil
	}
	return &d
}

// VerifyInput is the admin verification payload.
type VerifyInput struct {
	Notes string `json:"verification_notes" validate:"max=2000"`
}

// StatusInput is the admin status change payload.
type StatusInput struct {
	Status Status `json:"status" validate:"required"`
	Notes  string `json:"notes" validate:"max=2000"`
}

// ListFilter narrows the admin client listing.
type ListFilter struct {
	Status Status
	Page   shared.Page
}

// OnboardingStatus summarises how much of the intake form is filled.
type OnboardingStatus struct {
	IsComplete           bool     `json:"is_complete"`
	CompletionPercentage int      `json:"completion_percentage"`
	MissingFields        []string `json:"missing_fields"`
	Status               Status   `json:"status"`
}

// identityField stands for "nin or passport_number" in MissingFields.
const identityField = "nin_or_passport_number"

// Onboarding computes the completion of p. One of nin or passport_number
// satisfies the identity requirement.
func Onboarding(p Profile) OnboardingStatus {
	required := []struct {
		name  string
		value string
	}{
		{"first_name", p.FirstName},
		{"last_name", p.LastName},
		{"date_of_birth", dateString(p.DateOfBirth)},
		{"gender", p.Gender},
		{"nationality", p.Nationality},
		{"phone_primary", p.PhonePrimary},
		{"address_current", p.AddressCurrent},
		{"emergency_contact_name", p.EmergencyContactName},
		{"emergency_contact_phone", p.EmergencyContactPhone},
		{"emergency_contact_relationship", p.EmergencyContactRelationship},
		{identityField, strings.TrimSpace(p.NIN) + strings.TrimSpace(p.PassportNumber)},
	}
	missing := []string{}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	filled := len(required) - len(missing)
	return OnboardingStatus{
		IsComplete:           len(missing) == 0,
		CompletionPercentage: filled * 100 / len(required),
		MissingFields:        missing,
		Status:               p.Status,
	}
}

func dateString(d *shared.Date) string {
	if d == nil || d.IsZero() {
		return ""
	}
	return d.Format(shared.DateLayout)
}
