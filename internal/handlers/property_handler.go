package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"rentledger-backend/internal/models"
	"rentledger-backend/internal/services"
	"rentledger-backend/pkg/utils"
)

type PropertyHandler struct {
	Directory *services.DirectoryService
}

func NewPropertyHandler(directory *services.DirectoryService) *PropertyHandler {
	return &PropertyHandler{Directory: directory}
}

// CreateBuilding handles POST /api/properties/buildings
func (h *PropertyHandler) CreateBuilding(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBuildingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	building, err := h.Directory.CreateBuilding(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, building)
}

// ListBuildings handles GET /api/properties/buildings
func (h *PropertyHandler) ListBuildings(w http.ResponseWriter, r *http.Request) {
	buildings, err := h.Directory.ListBuildings(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, buildings)
}

// GetBuilding handles GET /api/properties/buildings/{id}
func (h *PropertyHandler) GetBuilding(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	building, err := h.Directory.GetBuildingByID(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, building)
}

// CreateFlat handles POST /api/properties/flats
func (h *PropertyHandler) CreateFlat(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFlatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	flat, err := h.Directory.CreateFlat(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, flat)
}

// ListFlats handles GET /api/properties/flats
func (h *PropertyHandler) ListFlats(w http.ResponseWriter, r *http.Request) {
	flats, err := h.Directory.ListFlats(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, flats)
}

// GetFlat handles GET /api/properties/flats/{id}
func (h *PropertyHandler) GetFlat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	flat, err := h.Directory.GetFlatByID(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, flat)
}

// CreateLand handles POST /api/properties/lands
func (h *PropertyHandler) CreateLand(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	land, err := h.Directory.CreateLand(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, land)
}

// ListLands handles GET /api/properties/lands
func (h *PropertyHandler) ListLands(w http.ResponseWriter, r *http.Request) {
	lands, err := h.Directory.ListLands(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, lands)
}

// GetLand handles GET /api/properties/lands/{id}
func (h *PropertyHandler) GetLand(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	land, err := h.Directory.GetLandByID(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, land)
}
