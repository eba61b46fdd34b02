package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/glowdesk/glowdesk/libs/httpx"
	"github.com/glowdesk/glowdesk/services/directory-service/internal/storage"
)

func (h *Handler) Items(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Name     string `json:"name"`
			Unit     string `json:"unit"`
			Quantity int    `json:"quantity"`
			MinLevel int    `json:"min_level"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || req.Quantity < 0 || req.MinLevel < 0 {
			httpx.WriteError(w, http.StatusBadRequest, "name is required; quantities must not be negative")
			return
		}
		if req.Unit == "" {
			req.Unit = "unit"
		}
		id, err := h.repo.CreateItem(r.Context(), storage.InventoryItem{
			Name: req.Name, Unit: req.Unit, Quantity: req.Quantity, MinLevel: req.MinLevel,
		})
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
	case http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		items, err := h.repo.ListItems(r.Context(), limit)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		type itemView struct {
			storage.InventoryItem
			LowStock bool `json:"low_stock"`
		}
		out := make([]itemView, 0, len(items))
		for _, it := range items {
			out = append(out, itemView{InventoryItem: it, LowStock: it.LowStock()})
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) Movements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			ItemID string `json:"item_id"`
			Delta  int    `json:"delta"`
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if req.ItemID == "" || req.Delta == 0 {
			httpx.WriteError(w, http.StatusBadRequest, "item_id and a non-zero delta are required")
			return
		}
		item, err := h.repo.RecordMovement(r.Context(), storage.StockMovement{
			ItemID:  req.ItemID,
			Delta:   req.Delta,
			Reason:  req.Reason,
			ActorID: strings.TrimSpace(r.Header.Get("X-Actor-Id")),
		})
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			httpx.WriteError(w, http.StatusNotFound, "item not found")
			return
		case errors.Is(err, storage.ErrInsufficientStock):
			httpx.WriteError(w, http.StatusConflict, "insufficient stock")
			return
		case err != nil:
			h.serverError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"item_id":   item.ID,
			"quantity":  item.Quantity,
			"low_stock": item.LowStock(),
		})
	case http.MethodGet:
		q := r.URL.Query()
		itemID := q.Get("item_id")
		if itemID == "" {
			httpx.WriteError(w, http.StatusBadRequest, "item_id is required")
			return
		}
		limit, _ := strconv.Atoi(q.Get("limit"))
		moves, err := h.repo.ListMovements(r.Context(), itemID, limit)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, moves)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
