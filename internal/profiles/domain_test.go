package profiles

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gulfplacement/placement/internal/shared"
	_ "github.com/gulfplacement/placement/testing"
)

func TestCheckTransition(t *testing.T) {
	allowed := [][2]Status{
		{StatusNew, StatusUnderReview},
		{StatusNew, StatusInactive},
		{StatusUnderReview, StatusVerified},
		{StatusUnderReview, StatusNew},
		{StatusVerified, StatusInProgress},
		{StatusInProgress, StatusPlaced},
		{StatusInProgress, StatusVerified},
		{StatusPlaced, StatusTraveled},
		{StatusPlaced, StatusInProgress},
		{StatusInactive, StatusNew},
		{StatusInactive, StatusUnderReview},
	}
	for _, pair := range allowed {
		assert.NoError(t, CheckTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}

	denied := [][2]Status{
		{StatusNew, StatusVerified},
		{StatusNew, StatusNew},
		{StatusVerified, StatusPlaced},
		{StatusTraveled, StatusInactive},
		{StatusTraveled, StatusPlaced},
		{StatusPlaced, StatusInactive},
	}
	for _, pair := range denied {
		err := CheckTransition(pair[0], pair[1])
		assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", pair[0], pair[1])
		assert.ErrorIs(t, err, shared.ErrConflict)
	}

	require.ErrorIs(t, CheckTransition(StatusNew, "archived"), shared.ErrValidation)
}

func TestOnboarding(t *testing.T) {
	empty := Onboarding(Profile{Status: StatusNew})
	assert.False(t, empty.IsComplete)
	assert.Equal(t, 0, empty.CompletionPercentage)
	assert.Len(t, empty.MissingFields, 11)
	assert.Contains(t, empty.MissingFields, identityField)

	dob := shared.NewDate(time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC))
	p := Profile{
		FirstName:                    "Amina",
		LastName:                     "Bello",
		DateOfBirth:                  &dob,
		Gender:                       "female",
		Nationality:                  "Nigerian",
		PhonePrimary:                 "+2348000000000",
		AddressCurrent:               "Lagos",
		EmergencyContactName:         "Musa Bello",
		EmergencyContactPhone:        "+2348000000001",
		EmergencyContactRelationship: "brother",
	}
	partial := Onboarding(p)
	assert.False(t, partial.IsComplete)
	assert.Equal(t, 90, partial.CompletionPercentage)
	assert.Equal(t, []string{identityField}, partial.MissingFields)

	p.PassportNumber = "A1234567"
	full := Onboarding(p)
	assert.True(t, full.IsComplete)
	assert.Equal(t, 100, full.CompletionPercentage)
	assert.Empty(t, full.MissingFields)

	p.PassportNumber = ""
	p.NIN = "12345678901"
	assert.True(t, Onboarding(p).IsComplete)

	p.FirstName = "  "
	floored := Onboarding(p)
	assert.Equal(t, 90, floored.CompletionPercentage)
	assert.Equal(t, []string{"first_name"}, floored.MissingFields)
}

func TestUpdateInputApply(t *testing.T) {
	dob := shared.NewDate(time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC))
	p := Profile{FirstName: "Amina", LastName: "Bello", DateOfBirth: &dob}

	name := " Zainab "
	UpdateInput{FirstName: &name, DateOfBirth: &shared.Date{}}.Apply(&p)
	assert.Equal(t, "Zainab", p.FirstName)
	assert.Equal(t, "Bello", p.LastName)
	assert.Nil(t, p.DateOfBirth)
}
