package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs dashboard counts against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}

// CountClients counts client profiles.
func (r *Repository) CountClients(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM client_profiles`)
}

// CountPlacedClients counts clients that were placed or have travelled.
func (r *Repository) CountPlacedClients(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM client_profiles WHERE status IN ('placed', 'traveled')`)
}

// CountActiveJobs counts open postings.
func (r *Repository) CountActiveJobs(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM job_opportunities WHERE is_active`)
}

// CountApplicationsOn counts applications submitted on day.
func (r *Repository) CountApplicationsOn(ctx context.Context, day time.Time) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM job_applications WHERE applied_date = $1::date`, day)
}
