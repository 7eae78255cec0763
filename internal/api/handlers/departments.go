package handlers

import (
	"net/http"

	"github.com/civicworks/countychat/internal/api"
	"github.com/civicworks/countychat/internal/service"
)

type DepartmentsHandler struct {
	cache *service.DepartmentCache
}

func NewDepartmentsHandler(cache *service.DepartmentCache) *DepartmentsHandler {
	return &DepartmentsHandler{cache: cache}
}

type DepartmentResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	NameES string `json:"name_es"`
	Slug   string `json:"slug"`
	Phone  string `json:"phone,omitempty"`
	Email  string `json:"email,omitempty"`
	URL    string `json:"url,omitempty"`
}

// List handles GET /api/departments.
func (h *DepartmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	departments := h.cache.All()
	resp := make([]*DepartmentResponse, 0, len(departments))
	for _, dept := range departments {
		resp = append(resp, &DepartmentResponse{
			ID:     dept.ID,
			Name:   dept.Name,
			NameES: dept.NameES,
			Slug:   dept.Slug,
			Phone:  dept.Phone,
			Email:  dept.Email,
			URL:    dept.URL,
		})
	}
	api.Success(w, http.StatusOK, resp)
}
