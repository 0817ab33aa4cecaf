package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/erazemk/zastavljalnica/internal/imaging"
	"github.com/erazemk/zastavljalnica/internal/ledger"
	"github.com/erazemk/zastavljalnica/internal/model"
	"github.com/erazemk/zastavljalnica/internal/store"
)

// InventoryHandler handles inventory and sale endpoints.
type InventoryHandler struct {
	DB     *sql.DB
	Ledger *ledger.Ledger
}

type inventoryDetail struct {
	model.InventoryItem
	Sale *model.Sale `json:"sale,omitempty"`
}

// List handles GET /api/inventory.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")
	switch status {
	case "", model.InventoryAvailable, model.InventoryReserved, model.InventorySold:
	default:
		jsonError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	items, err := store.ListInventory(r.Context(), h.DB, store.InventoryFilter{
		BranchID: branchScope(GetClaims(r.Context())),
		Status:   status,
		Search:   q.Get("search"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.InventoryItem{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/inventory.
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req ledger.InventoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BranchID == 0 {
		req.BranchID = claims.BranchID
	}
	if !canSeeBranch(claims, req.BranchID) {
		jsonError(w, http.StatusForbidden, "cannot stock another branch")
		return
	}

	item, err := h.Ledger.AddInventory(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/inventory/{id}.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}

	detail := inventoryDetail{InventoryItem: *item}
	if item.Status == model.InventorySold {
		sale, err := store.GetSaleByInventory(r.Context(), h.DB, item.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		detail.Sale = sale
	}
	jsonResponse(w, http.StatusOK, detail)
}

// Sell handles POST /api/inventory/{id}/sell.
func (h *InventoryHandler) Sell(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}

	var req ledger.SaleRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.InventoryID = item.ID
	req.StaffID = GetClaims(r.Context()).StaffID

	sale, err := h.Ledger.SellInventory(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, sale)
}

// Reserve handles POST /api/inventory/{id}/reserve.
func (h *InventoryHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}
	updated, err := h.Ledger.ReserveInventory(r.Context(), item.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Release handles POST /api/inventory/{id}/release.
func (h *InventoryHandler) Release(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}
	updated, err := h.Ledger.ReleaseInventory(r.Context(), item.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// UploadImage handles PUT /api/inventory/{id}/image. The photo is sent as the
// "image" field of a multipart form.
func (h *InventoryHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Normalize(file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.SetInventoryImage(r.Context(), h.DB, item.ID, photo.Data, photo.MIME); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("inventory photo stored", "item", item.Code, "bytes", len(photo.Data),
		"width", photo.Width, "height", photo.Height)
	jsonResponse(w, http.StatusOK, map[string]any{
		"message": "image uploaded",
		"width":   photo.Width,
		"height":  photo.Height,
	})
}

// GetImage handles GET /api/inventory/{id}/image.
func (h *InventoryHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}

	data, mime, err := store.GetInventoryImage(r.Context(), h.DB, item.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}

// load fetches the {id} item, writing the error response itself when the id
// is bad, unknown or in another branch.
func (h *InventoryHandler) load(w http.ResponseWriter, r *http.Request) (*model.InventoryItem, bool) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid inventory id")
		return nil, false
	}

	item, err := store.GetInventoryItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if item == nil || !canSeeBranch(GetClaims(r.Context()), item.BranchID) {
		writeError(w, r, fmt.Errorf("inventory item %d: %w", id, ledger.ErrNotFound))
		return nil, false
	}
	return item, true
}
