package postings

import (
	"fmt"
	"strings"
	"time"

	"github.com/gulfplacement/placement/internal/shared"
)

// JobType classifies a posting.
type JobType string

const (
	JobTypeFullTime  JobType = "full_time"
	JobTypePartTime  JobType = "part_time"
	JobTypeContract  JobType = "contract"
	JobTypeTemporary JobType = "temporary"
)

// ApplicationStatus tracks an application through the hiring pipeline.
type ApplicationStatus string

const (
	ApplicationApplied   ApplicationStatus = "applied"
	ApplicationScreening ApplicationStatus = "screening"
	ApplicationInterview ApplicationStatus = "interview"
	ApplicationOffered   ApplicationStatus = "offered"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)

var (
	// ErrAlreadyApplied is returned for a second application to the same posting.
	ErrAlreadyApplied = fmt.Errorf("%w: you have already applied for this job", shared.ErrConflict)
	// ErrNoProfile is returned when the applicant has no client profile.
	ErrNoProfile = fmt.Errorf("%w: user does not have a client profile", shared.ErrValidation)
	// ErrPostingClosed is returned when applying to an inactive posting.
	ErrPostingClosed = fmt.Errorf("%w: job not found or inactive", shared.ErrNotFound)
)

// Posting is a job opportunity.
type Posting struct {
	ID                  string       `json:"id"`
	Title               string       `json:"title"`
	CompanyName         string       `json:"company_name"`
	Country             string       `json:"country"`
	City                string       `json:"city"`
	JobType             JobType      `json:"job_type"`
	SalaryRangeMin      *float64     `json:"salary_range_min"`
	SalaryRangeMax      *float64     `json:"salary_range_max"`
	Currency            string       `json:"currency"`
	Requirements        string       `json:"requirements"`
	Benefits            string       `json:"benefits"`
	ApplicationDeadline *shared.Date `json:"application_deadline"`
	IsActive            bool         `json:"is_active"`
	CreatedBy           *string      `json:"created_by"`
	CreatedAt           time.Time    `json:"created_at"`
}

// PostingInput creates or updates a posting. On update only the provided
// fields change.
type PostingInput struct {
	Title               *string      `json:"title" validate:"omitempty,min=1,max=200"`
	CompanyName         *string      `json:"company_name" validate:"omitempty,min=1,max=200"`
	Country             *string      `json:"country" validate:"omitempty,min=1,max=100"`
	City                *string      `json:"city" validate:"omitempty,max=100"`
	JobType             *JobType     `json:"job_type" validate:"omitempty,oneof=full_time part_time contract temporary"`
	SalaryRangeMin      *float64     `json:"salary_range_min" validate:"omitempty,gte=0"`
	SalaryRangeMax      *float64     `json:"salary_range_max" validate:"omitempty,gte=0"`
	Currency            *string      `json:"currency" validate:"omitempty,len=3,alpha"`
	Requirements        *string      `json:"requirements"`
	Benefits            *string      `json:"benefits"`
	ApplicationDeadline *shared.Date `json:"application_deadline"`
	IsActive            *bool        `json:"is_active"`
}

// Apply copies the provided fields onto p.
func (in PostingInput) Apply(p *Posting) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&p.Title, in.Title)
	set(&p.CompanyName, in.CompanyName)
	set(&p.Country, in.Country)
	set(&p.City, in.City)
	set(&p.Requirements, in.Requirements)
	set(&p.Benefits, in.Benefits)
	if in.Currency != nil {
		p.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
	}
	if in.JobType != nil {
		p.JobType = *in.JobType
	}
	if in.SalaryRangeMin != nil {
		p.SalaryRangeMin = in.SalaryRangeMin
	}
	if in.SalaryRangeMax != nil {
		p.SalaryRangeMax = in.SalaryRangeMax
	}
	if in.ApplicationDeadline != nil {
		if in.ApplicationDeadline.IsZero() {
			p.ApplicationDeadline = nil
		} else {
			d := *in.ApplicationDeadline
			p.ApplicationDeadline = &d
		}
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}

// check validates the merged posting.
func (p Posting) check() error {
	fields := map[string]string{}
	if p.Title == "" {
		fields["title"] = "is required"
	}
	if p.CompanyName == "" {
		fields["company_name"] = "is required"
	}
	if p.Country == "" {
		fields["country"] = "is required"
	}
	if p.SalaryRangeMin != nil && p.SalaryRangeMax != nil && *p.SalaryRangeMin > *p.SalaryRangeMax {
		fields["salary_range_max"] = "must not be below salary_range_min"
	}
	if len(fields) > 0 {
		return &shared.ValidationError{Fields: fields}
	}
	return nil
}

// PostingFilter narrows the public listing.
type PostingFilter struct {
	Active bool
	Page   shared.Page
}

// Application is a client's application to a posting.
type Application struct {
	ID                string            `json:"id"`
	ClientID          string            `json:"client_id"`
	JobID             string            `json:"job_id"`
	JobTitle          string            `json:"job_title"`
	ApplicationStatus ApplicationStatus `json:"application_status"`
	AppliedDate       shared.Date       `json:"applied_date"`
	InterviewDate     *time.Time        `json:"interview_date"`
	Notes             string            `json:"notes"`
	ProcessedBy       *string           `json:"processed_by"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	ClientEmail       string            `json:"-"`
}

// StatusInput moves an application through the pipeline.
type StatusInput struct {
	Status        ApplicationStatus `json:"application_status" validate:"required,oneof=applied screening interview offered accepted rejected withdrawn"`
	InterviewDate *time.Time        `json:"interview_date"`
	Notes         *string           `json:"notes" validate:"omitempty,max=2000"`
}

// ApplyResponse acknowledges a submitted application.
type ApplyResponse struct {
	Message       string `json:"message"`
	ApplicationID string `json:"application_id"`
}
