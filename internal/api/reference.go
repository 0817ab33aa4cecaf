package api

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/model"
	"github.com/erazemk/zastavljalnica/internal/store"
)

// ReferenceHandler serves customers, categories and branches.
type ReferenceHandler struct {
	DB    *sql.DB
	Clock dates.Clock
}

type createCustomerRequest struct {
	Code      string `json:"code"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	IDCardNo  string `json:"id_card_no"`
	BranchID  int64  `json:"branch_id"`
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

// ListCustomers handles GET /api/customers.
func (h *ReferenceHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := store.ListCustomers(r.Context(), h.DB,
		branchScope(GetClaims(r.Context())), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if customers == nil {
		customers = []model.Customer{}
	}
	jsonResponse(w, http.StatusOK, customers)
}

// CreateCustomer handles POST /api/customers. A code is generated when none
// is given.
func (h *ReferenceHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	if req.FirstName == "" {
		jsonError(w, http.StatusBadRequest, "first_name required")
		return
	}
	if req.BranchID == 0 {
		req.BranchID = claims.BranchID
	}
	if !canSeeBranch(claims, req.BranchID) {
		jsonError(w, http.StatusForbidden, "cannot register customers for another branch")
		return
	}
	branch, err := store.GetBranch(r.Context(), h.DB, req.BranchID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if branch == nil {
		jsonError(w, http.StatusBadRequest, "unknown branch")
		return
	}

	c := &model.Customer{
		Code:      strings.TrimSpace(req.Code),
		FirstName: req.FirstName,
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     strings.TrimSpace(req.Phone),
		IDCardNo:  strings.TrimSpace(req.IDCardNo),
		BranchID:  req.BranchID,
	}

	var created *model.Customer
	if c.Code != "" {
		created, err = store.CreateCustomer(r.Context(), h.DB, c)
		if store.IsUniqueViolation(err) {
			jsonError(w, http.StatusConflict, "customer code already exists")
			return
		}
	} else {
		var id int64
		id, err = store.WithUniqueCode("C", dates.Today(h.Clock), func(code string) (int64, error) {
			c.Code = code
			cust, err := store.CreateCustomer(r.Context(), h.DB, c)
			if err != nil {
				return 0, err
			}
			return cust.ID, nil
		})
		if err == nil {
			created, err = store.GetCustomer(r.Context(), h.DB, id)
		}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, created)
}

// ListCategories handles GET /api/categories.
func (h *ReferenceHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	jsonResponse(w, http.StatusOK, categories)
}

// CreateCategory handles POST /api/categories.
func (h *ReferenceHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	category, err := store.CreateCategory(r.Context(), h.DB, name)
	if store.IsUniqueViolation(err) {
		jsonError(w, http.StatusConflict, "category already exists")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, category)
}

// ListBranches handles GET /api/branches.
func (h *ReferenceHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := store.ListBranches(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if branches == nil {
		branches = []model.Branch{}
	}
	jsonResponse(w, http.StatusOK, branches)
}
