package store

import (
	"context"
	"time"

	"careercatalyst/internal/models"
)

// OwnerStore is the persistence surface of resume owners.
//
// UpdateResumeKey is a compare-and-set: it only writes next when the stored
// key still equals expected ("" meaning unbound) and reports whether it did.
type OwnerStore interface {
	CreateIndividual(ctx context.Context, individual *models.Individual) error
	GetIndividual(ctx context.Context, id string) (*models.Individual, error)
	UpdateResumeKey(ctx context.Context, id, expected, next string) (bool, error)
	DeleteIndividual(ctx context.Context, id string) error
	ListResumeKeys(ctx context.Context) (map[string]string, error)
}

// AccountStore covers the non-resume account records.
type AccountStore interface {
	IndividualExists(id string) (bool, error)
	GetIndividualByEmail(ctx context.Context, email string) (*models.Individual, error)
	ListStudents(ctx context.Context, filter StudentFilter) ([]models.Individual, error)

	CreateInstitution(ctx context.Context, institution *models.Institution) error
	GetInstitution(ctx context.Context, id string) (*models.Institution, error)
	GetInstitutionByEmail(ctx context.Context, email string) (*models.Institution, error)
	ListInstitutions(ctx context.Context) ([]models.Institution, error)
	InstitutionExists(id string) (bool, error)

	CreateOrganization(ctx context.Context, organization *models.Organization) error
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	GetOrganizationByEmail(ctx context.Context, email string) (*models.Organization, error)
	OrganizationExists(id string) (bool, error)
}

// JobStore persists job postings.
type JobStore interface {
	JobExists(id string) (bool, error)
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]models.Job, error)
	DeleteJob(ctx context.Context, id string) (bool, error)
}

// SessionStore persists login sessions for every account kind.
type SessionStore interface {
	CreateSession(ctx context.Context, principal models.Principal, tokenHash string, expiresAt, createdAt time.Time) error
	GetPrincipalBySessionTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.Principal, error)
	RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error
}

var (
	_ OwnerStore   = (*Store)(nil)
	_ AccountStore = (*Store)(nil)
	_ JobStore     = (*Store)(nil)
	_ SessionStore = (*Store)(nil)
)
