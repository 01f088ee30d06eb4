package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Finn35/runnmate-server/internal/api/middleware"
	"github.com/Finn35/runnmate-server/internal/models"
	"github.com/Finn35/runnmate-server/internal/repositories"
	"github.com/Finn35/runnmate-server/internal/utils"
)

var validConditions = map[string]bool{"new": true, "good": true, "used": true}

// ListingHandler is the marketplace browse/sell surface.
type ListingHandler struct {
	store  *repositories.ListingStore
	images *repositories.ImageStore
	logger *zap.Logger
}

func NewListingHandler(store *repositories.ListingStore, images *repositories.ImageStore, logger *zap.Logger) *ListingHandler {
	return &ListingHandler{store: store, images: images, logger: logger}
}

// GET /api/v1/listings
// List godoc
// @Summary Browse listings
// @Description Returns listings newest first, optionally filtered by brand, size and max price.
// @Tags Listings
// @Produce json
// @Param brand query string false "Brand filter"
// @Param size query string false "EU size filter"
// @Param maxPrice query int false "Maximum price in EUR"
// @Success 200 {object} utils.Payload
// @Router /api/v1/listings [get]
func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ListingFilter{
		Brand: r.URL.Query().Get("brand"),
		Size:  r.URL.Query().Get("size"),
	}
	if maxPrice := r.URL.Query().Get("maxPrice"); maxPrice != "" {
		parsed, err := strconv.Atoi(maxPrice)
		if err != nil || parsed < 0 {
			utils.JSONError(w, http.StatusBadRequest, "invalid_max_price")
			return
		}
		filter.MaxPriceEUR = parsed
	}

	listings, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("listing query failed", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "database_error")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data:    map[string]any{"listings": listings},
	})
}

// GET /api/v1/listings/{id}
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid_listing_id")
		return
	}

	listing, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrListingNotFound) {
			utils.JSONError(w, http.StatusNotFound, "listing_not_found")
			return
		}
		h.logger.Error("listing fetch failed", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "database_error")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data:    map[string]any{"listing": listing},
	})
}

// POST /api/v1/listings
// Create godoc
// @Summary Create a listing
// @Tags Listings
// @Accept json
// @Produce json
// @Success 201 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/listings [post]
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Title          string   `json:"title"`
		Brand          string   `json:"brand"`
		Size           string   `json:"size"`
		Condition      string   `json:"condition"`
		PriceEUR       int      `json:"priceEur"`
		Description    string   `json:"description"`
		Location       string   `json:"location"`
		CleaningStatus string   `json:"cleaningStatus"`
		ImageURLs      []string `json:"imageUrls"`
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid_input")
		return
	}

	switch {
	case input.Title == "", input.Brand == "", input.Size == "":
		utils.JSONError(w, http.StatusBadRequest, "missing_fields")
		return
	case !validConditions[input.Condition]:
		utils.JSONError(w, http.StatusBadRequest, "invalid_condition")
		return
	case input.PriceEUR <= 0:
		utils.JSONError(w, http.StatusBadRequest, "invalid_price")
		return
	}

	listing := &models.Listing{
		Title:          input.Title,
		Brand:          input.Brand,
		Size:           input.Size,
		Condition:      input.Condition,
		PriceEUR:       input.PriceEUR,
		Description:    input.Description,
		Location:       input.Location,
		CleaningStatus: input.CleaningStatus,
		SellerEmail:    middleware.UserEmail(r.Context()),
	}
	for _, url := range input.ImageURLs {
		listing.Images = append(listing.Images, models.ListingImage{URL: url})
	}

	if err := h.store.Create(r.Context(), listing); err != nil {
		h.logger.Error("listing create failed", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "database_error")
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Listing created",
		Data:    map[string]any{"listing": listing},
	})
}

// POST /api/v1/listings/images/presign
//
// Hands the browser a presigned PUT URL so photos go straight to the bucket.
func (h *ListingHandler) PresignImage(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Filename == "" {
		utils.JSONError(w, http.StatusBadRequest, "missing_filename")
		return
	}

	key, err := utils.ObjectKey("listings", input.Filename)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "key_generation_failed")
		return
	}

	uploadURL, err := h.images.PresignPut(r.Context(), key, 15*time.Minute)
	if err != nil {
		h.logger.Error("presign failed", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "presign_failed")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data: map[string]any{
			"uploadUrl": uploadURL,
			"key":       key,
			"publicUrl": h.images.PublicURL(key),
		},
	})
}

// POST /api/v1/listings/images/confirm
//
// Verifies the object actually landed before its URL gets attached to a
// listing.
func (h *ListingHandler) ConfirmImage(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Key == "" {
		utils.JSONError(w, http.StatusBadRequest, "missing_key")
		return
	}

	exists, err := h.images.ObjectExists(r.Context(), input.Key)
	if err != nil {
		h.logger.Error("image existence check failed", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "storage_error")
		return
	}
	if !exists {
		utils.JSONError(w, http.StatusNotFound, "image_not_uploaded")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data:    map[string]any{"url": h.images.PublicURL(input.Key)},
	})
}
