package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Finn35/runnmate-server/internal/email"
	"github.com/Finn35/runnmate-server/internal/models"
	"github.com/Finn35/runnmate-server/internal/repositories"
	"github.com/Finn35/runnmate-server/internal/utils"
)

// OfferHandler records buyer offers and notifies the seller over email.
type OfferHandler struct {
	listings  *repositories.ListingStore
	offers    *repositories.OfferStore
	mailer    email.Mailer
	logger    *zap.Logger
	emailFrom string
}

func NewOfferHandler(listings *repositories.ListingStore, offers *repositories.OfferStore, mailer email.Mailer, logger *zap.Logger, emailFrom string) *OfferHandler {
	return &OfferHandler{
		listings:  listings,
		offers:    offers,
		mailer:    mailer,
		logger:    logger,
		emailFrom: emailFrom,
	}
}

// POST /api/v1/send-offer
func (h *OfferHandler) SendOffer(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ListingID  string `json:"listingId"`
		BuyerEmail string `json:"buyerEmail"`
		BuyerName  string `json:"buyerName"`
		PriceEUR   int    `json:"priceEur"`
		Message    string `json:"message"`
		Language   string `json:"language"`
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid_input")
		return
	}

	listingID, err := uuid.Parse(input.ListingID)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid_listing_id")
		return
	}
	if input.BuyerEmail == "" {
		utils.JSONError(w, http.StatusBadRequest, "missing_email")
		return
	}
	if input.PriceEUR <= 0 {
		utils.JSONError(w, http.StatusBadRequest, "invalid_price")
		return
	}

	listing, err := h.listings.GetByID(r.Context(), listingID)
	if err != nil {
		if errors.Is(err, repositories.ErrListingNotFound) {
			utils.JSONError(w, http.StatusNotFound, "listing_not_found")
			return
		}
		h.logger.Error("listing fetch failed", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "database_error")
		return
	}

	offer := &models.Offer{
		ListingID:  listing.ID,
		BuyerEmail: input.BuyerEmail,
		BuyerName:  input.BuyerName,
		PriceEUR:   input.PriceEUR,
		Message:    input.Message,
	}
	if err := h.offers.Create(r.Context(), offer); err != nil {
		h.logger.Error("offer create failed", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "database_error")
		return
	}

	subject, html := email.OfferEmail(input.Language, listing.Title, input.BuyerName, input.PriceEUR, input.Message)
	err = h.mailer.Send(r.Context(), email.Message{
		From:    h.emailFrom,
		To:      []string{listing.SellerEmail},
		Subject: subject,
		HTML:    html,
		ReplyTo: input.BuyerEmail,
	})
	if err != nil {
		h.logger.Error("offer email failed", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "email_failed")
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Offer sent to seller",
		Data:    map[string]any{"offerId": offer.ID},
	})
}
