package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/Finn35/runnmate-server/internal/email"
	"github.com/Finn35/runnmate-server/internal/models"
	"github.com/Finn35/runnmate-server/internal/repositories"
	"github.com/Finn35/runnmate-server/internal/utils"
)

// LotteryHandler upserts launch-lottery signups. Re-signing up with the same
// email updates the existing record instead of adding a second one.
type LotteryHandler struct {
	store     *repositories.LotteryStore
	mailer    email.Mailer
	logger    *zap.Logger
	emailFrom string
}

func NewLotteryHandler(store *repositories.LotteryStore, mailer email.Mailer, logger *zap.Logger, emailFrom string) *LotteryHandler {
	return &LotteryHandler{
		store:     store,
		mailer:    mailer,
		logger:    logger,
		emailFrom: emailFrom,
	}
}

// POST /api/v1/lottery-signup
func (h *LotteryHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Consent  bool   `json:"consent"`
		Interest string `json:"interest"`
		Language string `json:"language"`
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid_input")
		return
	}
	if input.Email == "" {
		utils.JSONError(w, http.StatusBadRequest, "missing_email")
		return
	}

	signup := &models.LotterySignup{
		Email:    input.Email,
		Consent:  input.Consent,
		Interest: input.Interest,
		IsActive: true,
	}
	if err := h.store.Upsert(r.Context(), signup); err != nil {
		h.logger.Error("lottery upsert failed", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "database_error")
		return
	}

	// The signup is already durable; a failed confirmation mail is only logged.
	subject, html := email.LotteryEmail(input.Language)
	err := h.mailer.Send(r.Context(), email.Message{
		From:    h.emailFrom,
		To:      []string{input.Email},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		h.logger.Warn("lottery confirmation email failed", zap.Error(err))
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Signed up for the launch lottery",
	})
}
