package server

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/safar/neokart/internal/models"
	"github.com/safar/neokart/internal/store"
	"go.uber.org/zap"
)

const maxContactMessageLength = 5000

func validateContactMessage(m models.ContactMessage) string {
	switch {
	case strings.TrimSpace(m.Name) == "":
		return "Name is required"
	case !strings.Contains(m.Email, "@"):
		return "A valid email is required"
	case strings.TrimSpace(m.Subject) == "":
		return "Subject is required"
	case strings.TrimSpace(m.Message) == "":
		return "Message is required"
	case utf8.RuneCountInString(m.Message) > maxContactMessageLength:
		return "Message must be at most 5000 characters"
	}
	return ""
}

func (s *Server) handleSendContactMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.ContactMessage
		if !s.decodeJSON(w, r, &req) {
			return
		}
		if msg := validateContactMessage(req); msg != "" {
			s.respondError(w, http.StatusBadRequest, msg)
			return
		}

		saved, err := store.SaveContactMessage(r.Context(), s.db, req)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.logger.Info("contact message received", zap.Int64("message_id", saved.ID))
		s.respondJSON(w, http.StatusCreated, saved)
	}
}

func (s *Server) handleContactMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := store.ContactMessages(r.Context(), s.db)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, msgs)
	}
}
