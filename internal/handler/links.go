package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quorix-labs/botlink/internal/linking"
	"github.com/quorix-labs/botlink/internal/logger"
)

// HeaderUserID carries the acting user's identity, set by the fronting
// gateway after it authenticates the request.
const HeaderUserID = "X-User-ID"

// LinkHandlers contains handlers for the link command surface
type LinkHandlers struct {
	svc linking.Service
}

// NewLinkHandlers creates new link handlers
func NewLinkHandlers(svc linking.Service) *LinkHandlers {
	return &LinkHandlers{svc: svc}
}

// RequestCodeRequest is the request body for starting a login
type RequestCodeRequest struct {
	BotID string `json:"bot_id" validate:"required"`
	Phone string `json:"phone" validate:"required,e164"`
}

// SubmitCodeRequest is the request body for completing a login.
// Password is only needed for accounts with two-factor auth enabled.
type SubmitCodeRequest struct {
	BotID    string `json:"bot_id" validate:"required"`
	Phone    string `json:"phone" validate:"required,e164"`
	Code     string `json:"code" validate:"required,min=3,max=10"`
	Password string `json:"password"`
}

// ReassignRequest is the request body for moving a link to another bot
type ReassignRequest struct {
	NewBotID string `json:"new_bot_id" validate:"required"`
}

// StatusResponse reports the outcome of a lifecycle command
type StatusResponse struct {
	Status string `json:"status"`
}

// userID extracts the acting user from the request. An empty value is
// rejected by the access gate downstream.
func userID(r *http.Request) string {
	return r.Header.Get(HeaderUserID)
}

// HandleRequestCode handles POST /links/request-code
func (h *LinkHandlers) HandleRequestCode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RequestCodeRequest
		if err := DecodeAndValidateRequest(r, w, &req, "Request code"); err != nil {
			return
		}

		result, err := h.svc.RequestCode(r.Context(), userID(r), req.BotID, req.Phone)
		if err != nil {
			respondServiceError(w, r, LogMsgRequestCodeFailed, err)
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

// HandleSubmitCode handles POST /links/submit-code
func (h *LinkHandlers) HandleSubmitCode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitCodeRequest
		if err := DecodeAndValidateRequest(r, w, &req, "Submit code"); err != nil {
			return
		}

		result, err := h.svc.SubmitCode(r.Context(), userID(r), req.BotID, req.Phone, req.Code, req.Password)
		if err != nil {
			respondServiceError(w, r, LogMsgSubmitCodeFailed, err)
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

// HandleReassign handles POST /links/{linkID}/reassign
func (h *LinkHandlers) HandleReassign() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		linkID := chi.URLParam(r, "linkID")

		var req ReassignRequest
		if err := DecodeAndValidateRequest(r, w, &req, "Reassign link"); err != nil {
			return
		}

		if err := h.svc.Reassign(r.Context(), userID(r), linkID, req.NewBotID); err != nil {
			respondServiceError(w, r, LogMsgReassignFailed, err)
			return
		}

		respondJSON(w, http.StatusOK, StatusResponse{Status: StatusReassigned})
	}
}

// HandleUnlink handles DELETE /links/{linkID}
func (h *LinkHandlers) HandleUnlink() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		linkID := chi.URLParam(r, "linkID")

		if err := h.svc.Unlink(r.Context(), userID(r), linkID); err != nil {
			respondServiceError(w, r, LogMsgUnlinkFailed, err)
			return
		}

		respondJSON(w, http.StatusOK, StatusResponse{Status: StatusRevoked})
	}
}

// HandleListLinks handles GET /bots/{botID}/links
func (h *LinkHandlers) HandleListLinks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		botID := chi.URLParam(r, "botID")
		log := logger.FromContext(r.Context())

		links, err := h.svc.ListLinks(r.Context(), userID(r), botID)
		if err != nil {
			log.Warn(LogMsgListLinksFailed, "error", err)
			statusCode, userMsg := mapServiceErrorToUserMessage(err)
			respondError(w, statusCode, userMsg)
			return
		}

		if links == nil {
			links = []linking.LinkInfo{}
		}
		respondJSON(w, http.StatusOK, links)
	}
}
