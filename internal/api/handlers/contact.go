package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/Finn35/runnmate-server/internal/email"
	"github.com/Finn35/runnmate-server/internal/utils"
)

// ContactHandler relays contact-form submissions to the admin inbox.
type ContactHandler struct {
	mailer     email.Mailer
	logger     *zap.Logger
	emailFrom  string
	adminEmail string
}

func NewContactHandler(mailer email.Mailer, logger *zap.Logger, emailFrom, adminEmail string) *ContactHandler {
	return &ContactHandler{
		mailer:     mailer,
		logger:     logger,
		emailFrom:  emailFrom,
		adminEmail: adminEmail,
	}
}

// POST /api/v1/contact
func (h *ContactHandler) Contact(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Message string `json:"message"`
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid_input")
		return
	}
	if input.Name == "" || input.Email == "" || input.Message == "" {
		utils.JSONError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	subject, html := email.ContactEmail(input.Name, input.Email, input.Message)
	err := h.mailer.Send(r.Context(), email.Message{
		From:    h.emailFrom,
		To:      []string{h.adminEmail},
		Subject: subject,
		HTML:    html,
		ReplyTo: input.Email,
	})
	if err != nil {
		h.logger.Error("contact relay failed", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "email_failed")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Message sent",
	})
}
