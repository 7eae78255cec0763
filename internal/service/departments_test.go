package service

import (
	"context"
	"errors"
	"testing"

	"github.com/civicworks/countychat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLister struct {
	departments []*domain.Department
	err         error
}

func (s *stubLister) List(ctx context.Context) ([]*domain.Department, error) {
	return s.departments, s.err
}

func TestLoadDepartmentCache(t *testing.T) {
	cache, err := LoadDepartmentCache(context.Background(), &stubLister{departments: testDepartments()})
	require.NoError(t, err)
	assert.Equal(t, 5, cache.Len())
}

func TestLoadDepartmentCacheEmpty(t *testing.T) {
	_, err := LoadDepartmentCache(context.Background(), &stubLister{})
	assert.ErrorContains(t, err, "no departments configured")
}

func TestLoadDepartmentCacheRepoError(t *testing.T) {
	_, err := LoadDepartmentCache(context.Background(), &stubLister{err: errors.New("connection refused")})
	assert.ErrorContains(t, err, "connection refused")
}

func TestDepartmentCacheLookups(t *testing.T) {
	cache := NewDepartmentCache(testDepartments())

	dept, ok := cache.ByID("d-rma")
	require.True(t, ok)
	assert.Equal(t, "rma", dept.Slug)

	dept, ok = cache.BySlug("sheriff")
	require.True(t, ok)
	assert.Equal(t, "d-sheriff", dept.ID)

	_, ok = cache.ByID("d-nope")
	assert.False(t, ok)
	_, ok = cache.BySlug("nope")
	assert.False(t, ok)
}

func TestDepartmentCacheOrderPreserved(t *testing.T) {
	cache := NewDepartmentCache(testDepartments())

	slugs := make([]string, 0, cache.Len())
	for _, dept := range cache.All() {
		slugs = append(slugs, dept.Slug)
	}
	assert.Equal(t, []string{"general", "rma", "clerk", "sheriff", "animal"}, slugs)
}

func TestDepartmentCacheGeneral(t *testing.T) {
	cache := NewDepartmentCache(testDepartments())
	general := cache.General()
	require.NotNil(t, general)
	assert.Equal(t, "general", general.Slug)

	// Without a general slug, the first department stands in.
	cache = NewDepartmentCache(testDepartments()[1:])
	general = cache.General()
	require.NotNil(t, general)
	assert.Equal(t, "rma", general.Slug)

	assert.Nil(t, NewDepartmentCache(nil).General())
}
