// Package httpapi exposes the REST surface consumed by the admin inbox
// and the chat views: conversation history, aggregated conversations,
// read receipts, presence.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/edulink/supportchat/pkg/auth"
	"github.com/edulink/supportchat/pkg/directory"
	"github.com/edulink/supportchat/pkg/receipt"
	"github.com/edulink/supportchat/pkg/store"
)

// Presence reports whether a participant has at least one live
// connection. Implemented by the websocket transport's presence mirror.
type Presence interface {
	Online(ctx context.Context, participantID string) (bool, error)
}

type API struct {
	store     store.Store
	directory *directory.Directory
	receipts  *receipt.Service
	presence  Presence
	auth      *auth.Authenticator
	validate  *validator.Validate
	log       *slog.Logger
}

func New(st store.Store, dir *directory.Directory, receipts *receipt.Service, presence Presence, authn *auth.Authenticator, log *slog.Logger) *API {
	return &API{
		store:     st,
		directory: dir,
		receipts:  receipts,
		presence:  presence,
		auth:      authn,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		log:       log,
	}
}

// Router mounts every REST route. All routes require a valid token.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	protect := func(h http.HandlerFunc) http.Handler { return a.auth.Middleware(h) }
	r.Handle("/conversation", protect(a.handleConversation)).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/all-conversations", protect(a.handleAllConversations)).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/read/{otherUserId}", protect(a.handleRead)).Methods(http.MethodPatch, http.MethodOptions)
	r.Handle("/presence/{participantId}", protect(a.handlePresence)).Methods(http.MethodGet, http.MethodOptions)
	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if r.Method == http.MethodOptions {
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Request bodies keep the platform's camelCase keys; this surface is
// the contract consumed by the admin views.
type conversationRequest struct {
	UserID      string `json:"userId" validate:"required"`
	OtherUserID string `json:"otherUserId" validate:"required"`
}

func (a *API) handleConversation(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if !a.decode(w, r, &req) {
		return
	}

	messages, err := a.store.Conversation(r.Context(), req.UserID, req.OtherUserID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, messages)
}

type allConversationsRequest struct {
	AdminID string `json:"adminId" validate:"required"`
}

func (a *API) handleAllConversations(w http.ResponseWriter, r *http.Request) {
	var req allConversationsRequest
	if !a.decode(w, r, &req) {
		return
	}

	summaries, err := a.directory.Summaries(r.Context(), req.AdminID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, summaries)
}

func (a *API) handleRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// The authenticated identity is the recipient; only a participant's
	// own unread messages can be marked read.
	counterpart := mux.Vars(r)["otherUserId"]
	if err := a.receipts.MarkRead(r.Context(), claims.UserID, counterpart); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type presenceResponse struct {
	ParticipantID string `json:"participant_id"`
	Online        bool   `json:"online"`
}

func (a *API) handlePresence(w http.ResponseWriter, r *http.Request) {
	participantID := mux.Vars(r)["participantId"]
	online, err := a.presence.Online(r.Context(), participantID)
	if err != nil {
		a.log.Error("presence lookup failed", "participant", participantID, "error", err)
		http.Error(w, "Failed to fetch presence", http.StatusInternalServerError)
		return
	}
	writeJSON(w, presenceResponse{ParticipantID: participantID, Online: online})
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	if err := a.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrUnavailable):
		a.log.Error("store unavailable", "error", err)
		http.Error(w, "Message store unavailable", http.StatusServiceUnavailable)
	default:
		a.log.Error("request failed", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
