package service

import (
	"context"
	"fmt"
	"log"

	"github.com/civicworks/countychat/internal/domain"
)

// DepartmentLister defines the repository interface for loading departments
type DepartmentLister interface {
	List(ctx context.Context) ([]*domain.Department, error)
}

// DepartmentCache is a read-only snapshot of the department table, built once
// at startup and shared by the router and handlers. Reloading means building
// a new snapshot and swapping the reference; the cache itself never mutates.
type DepartmentCache struct {
	ordered []*domain.Department
	byID    map[string]*domain.Department
	bySlug  map[string]*domain.Department
}

// NewDepartmentCache builds a snapshot from an ordered department list. The
// given order is preserved and decides keyword-scoring tie-breaks.
func NewDepartmentCache(departments []*domain.Department) *DepartmentCache {
	cache := &DepartmentCache{
		ordered: make([]*domain.Department, 0, len(departments)),
		byID:    make(map[string]*domain.Department, len(departments)),
		bySlug:  make(map[string]*domain.Department, len(departments)),
	}
	for _, dept := range departments {
		if dept == nil {
			continue
		}
		cache.ordered = append(cache.ordered, dept)
		cache.byID[dept.ID] = dept
		cache.bySlug[dept.Slug] = dept
	}
	return cache
}

// LoadDepartmentCache fetches all departments and builds the startup snapshot.
func LoadDepartmentCache(ctx context.Context, repo DepartmentLister) (*DepartmentCache, error) {
	departments, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load departments: %w", err)
	}
	if len(departments) == 0 {
		return nil, fmt.Errorf("no departments configured")
	}

	log.Printf("loaded %d departments into routing cache", len(departments))
	return NewDepartmentCache(departments), nil
}

// All returns the departments in their stable configured order.
func (c *DepartmentCache) All() []*domain.Department {
	return c.ordered
}

// Len returns the number of cached departments.
func (c *DepartmentCache) Len() int {
	return len(c.ordered)
}

// ByID looks up a department by its ID.
func (c *DepartmentCache) ByID(id string) (*domain.Department, bool) {
	dept, ok := c.byID[id]
	return dept, ok
}

// BySlug looks up a department by its slug.
func (c *DepartmentCache) BySlug(slug string) (*domain.Department, bool) {
	dept, ok := c.bySlug[slug]
	return dept, ok
}

// General returns the catch-all department, falling back to the first cached
// department when no general slug exists. Returns nil only for an empty cache.
func (c *DepartmentCache) General() *domain.Department {
	if dept, ok := c.bySlug[domain.GeneralSlug]; ok {
		return dept
	}
	if len(c.ordered) > 0 {
		return c.ordered[0]
	}
	return nil
}
