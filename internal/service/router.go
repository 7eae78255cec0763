package service

import (
	"strings"

	"github.com/civicworks/countychat/internal/domain"
)

// Router assigns each user message to a department by keyword matching.
// Routing is deterministic: the same message against the same department
// snapshot always yields the same department.
type Router struct {
	cache *DepartmentCache
}

func NewRouter(cache *DepartmentCache) *Router {
	return &Router{cache: cache}
}

// ClassifyByKeyword scores every non-general department by counting its
// keywords that appear as case-insensitive substrings of the message. The
// winner needs a strictly positive score; ties go to the earlier department
// in the configured order. Returns nil when nothing matches.
func (r *Router) ClassifyByKeyword(message string) *domain.Department {
	lowered := strings.ToLower(message)

	var best *domain.Department
	bestScore := 0
	for _, dept := range r.cache.All() {
		if dept.IsGeneral() {
			continue
		}

		score := 0
		for _, keyword := range dept.Keywords {
			if keyword == "" {
				continue
			}
			if strings.Contains(lowered, strings.ToLower(keyword)) {
				score++
			}
		}
		if score > bestScore {
			best = dept
			bestScore = score
		}
	}

	return best
}

// Detect resolves the department for a turn: keyword classification first,
// then the conversation's current department, then the general fallback.
// Returns nil only when the cache is empty.
func (r *Router) Detect(message, currentDepartmentID string) *domain.Department {
	if dept := r.ClassifyByKeyword(message); dept != nil {
		return dept
	}

	if currentDepartmentID != "" {
		if dept, ok := r.cache.ByID(currentDepartmentID); ok {
			return dept
		}
	}

	return r.cache.General()
}
