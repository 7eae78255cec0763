package repository

import (
	"context"
	"errors"

	"github.com/civicworks/countychat/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DepartmentRepository reads the department reference table.
type DepartmentRepository struct {
	pool *pgxpool.Pool
}

func NewDepartmentRepository(pool *pgxpool.Pool) *DepartmentRepository {
	return &DepartmentRepository{pool: pool}
}

// List returns all departments in their configured position order. The order
// is observable: it decides keyword-scoring tie-breaks, so it must be stable.
func (r *DepartmentRepository) List(ctx context.Context) ([]*domain.Department, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, name_es, slug, keywords, phone, email, url, position
		 FROM departments ORDER BY position, slug`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var departments []*domain.Department
	for rows.Next() {
		var dept domain.Department
		if err := rows.Scan(
			&dept.ID, &dept.Name, &dept.NameES, &dept.Slug,
			&dept.Keywords, &dept.Phone, &dept.Email, &dept.URL, &dept.Position,
		); err != nil {
			return nil, err
		}
		departments = append(departments, &dept)
	}
	return departments, rows.Err()
}

// GetBySlug returns a single department by its slug.
func (r *DepartmentRepository) GetBySlug(ctx context.Context, slug string) (*domain.Department, error) {
	var dept domain.Department
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, name_es, slug, keywords, phone, email, url, position
		 FROM departments WHERE slug = $1`,
		slug,
	).Scan(
		&dept.ID, &dept.Name, &dept.NameES, &dept.Slug,
		&dept.Keywords, &dept.Phone, &dept.Email, &dept.URL, &dept.Position,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDepartmentNotFound
		}
		return nil, err
	}
	return &dept, nil
}
