package postings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gulfplacement/placement/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const postingSelect = `SELECT id, title, company_name, country, city, job_type, salary_range_min::float8,
	salary_range_max::float8, currency, requirements, benefits, application_deadline, is_active, created_by, created_at
FROM job_opportunities`

const applicationSelect = `SELECT a.id, a.client_id, a.job_id, j.title, a.application_status, a.applied_date,
	a.interview_date, a.notes, a.processed_by, a.created_at, a.updated_at, u.email
FROM job_applications a
JOIN job_opportunities j ON j.id = a.job_id
JOIN client_profiles p ON p.id = a.client_id
JOIN users u ON u.id = p.user_id`

// CreatePosting inserts a posting.
func (r *Repository) CreatePosting(ctx context.Context, p Posting) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO job_opportunities
	(id, title, company_name, country, city, job_type, salary_range_min, salary_range_max, currency,
	 requirements, benefits, application_deadline, is_active, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.ID, p.Title, p.CompanyName, p.Country, p.City, string(p.JobType), p.SalaryRangeMin, p.SalaryRangeMax,
		p.Currency, p.Requirements, p.Benefits, p.ApplicationDeadline.TimePtr(), p.IsActive, p.CreatedBy, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("postings: insert: %w", err)
	}
	return nil
}

// GetPosting fetches a posting by id.
func (r *Repository) GetPosting(ctx context.Context, id string) (Posting, error) {
	return scanPosting(r.pool.QueryRow(ctx, postingSelect+` WHERE id = $1`, id))
}

// ListPostings returns postings matching the active flag, newest first.
func (r *Repository) ListPostings(ctx context.Context, filter PostingFilter) ([]Posting, error) {
	rows, err := r.pool.Query(ctx, postingSelect+` WHERE is_active = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		filter.Active, filter.Page.Limit, filter.Page.Skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Posting{}
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePosting writes every mutable column of p.
func (r *Repository) UpdatePosting(ctx context.Context, p Posting) error {
	tag, err := r.pool.Exec(ctx, `UPDATE job_opportunities SET
	title = $2, company_name = $3, country = $4, city = $5, job_type = $6, salary_range_min = $7,
	salary_range_max = $8, currency = $9, requirements = $10, benefits = $11, application_deadline = $12,
	is_active = $13
WHERE id = $1`,
		p.ID, p.Title, p.CompanyName, p.Country, p.City, string(p.JobType), p.SalaryRangeMin, p.SalaryRangeMax,
		p.Currency, p.Requirements, p.Benefits, p.ApplicationDeadline.TimePtr(), p.IsActive)
	if err != nil {
		return fmt.Errorf("postings: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeletePosting removes a posting. Its applications cascade.
func (r *Repository) DeletePosting(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM job_opportunities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postings: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateApplication inserts an application.
func (r *Repository) CreateApplication(ctx context.Context, a Application) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO job_applications
	(id, client_id, job_id, application_status, applied_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		a.ID, a.ClientID, a.JobID, string(a.ApplicationStatus), a.AppliedDate.Time, a.CreatedAt)
	if err != nil {
		if shared.IsUniqueViolation(err, "job_applications_client_job_key") {
			return ErrAlreadyApplied
		}
		return fmt.Errorf("postings: insert application: %w", err)
	}
	return nil
}

// GetApplication fetches an application by id.
func (r *Repository) GetApplication(ctx context.Context, id string) (Application, error) {
	return scanApplication(r.pool.QueryRow(ctx, applicationSelect+` WHERE a.id = $1`, id))
}

// ListApplications returns applications newest first. An empty clientID
// lists every client's applications.
func (r *Repository) ListApplications(ctx context.Context, clientID string, page shared.Page) ([]Application, error) {
	query := applicationSelect
	args := []any{}
	if clientID != "" {
		args = append(args, clientID)
		query += ` WHERE a.client_id = $1`
	}
	args = append(args, page.Limit, page.Skip)
	query += fmt.Sprintf(` ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateApplication writes the pipeline fields of a.
func (r *Repository) UpdateApplication(ctx context.Context, a Application) error {
	tag, err := r.pool.Exec(ctx, `UPDATE job_applications SET
	application_status = $2, interview_date = $3, notes = $4, processed_by = $5, updated_at = $6
WHERE id = $1`,
		a.ID, string(a.ApplicationStatus), a.InterviewDate, a.Notes, a.ProcessedBy, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postings: update application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanPosting(row pgx.Row) (Posting, error) {
	var (
		p        Posting
		jobType  string
		deadline *time.Time
	)
	err := row.Scan(&p.ID, &p.Title, &p.CompanyName, &p.Country, &p.City, &jobType, &p.SalaryRangeMin,
		&p.SalaryRangeMax, &p.Currency, &p.Requirements, &p.Benefits, &deadline, &p.IsActive, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Posting{}, shared.ErrNotFound
		}
		return Posting{}, err
	}
	p.JobType = JobType(jobType)
	p.ApplicationDeadline = shared.DatePtr(deadline)
	return p, nil
}

func scanApplication(row pgx.Row) (Application, error) {
	var (
		a       Application
		status  string
		applied time.Time
	)
	err := row.Scan(&a.ID, &a.ClientID, &a.JobID, &a.JobTitle, &status, &applied, &a.InterviewDate, &a.Notes,
		&a.ProcessedBy, &a.CreatedAt, &a.UpdatedAt, &a.ClientEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Application{}, shared.ErrNotFound
		}
		return Application{}, err
	}
	a.ApplicationStatus = ApplicationStatus(status)
	a.AppliedDate = shared.NewDate(applied)
	return a, nil
}
