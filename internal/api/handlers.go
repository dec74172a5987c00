package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"gwi.com/finance-chat/internal/core"
	"gwi.com/finance-chat/internal/core/catalog"
	"gwi.com/finance-chat/internal/observability"
	"gwi.com/finance-chat/internal/store"
)

type APIHandler struct {
	chatService *core.ChatService
	jwtSecret   string
}

func NewAPIHandler(cs *core.ChatService, jwtSecret string) *APIHandler {
	return &APIHandler{chatService: cs, jwtSecret: jwtSecret}
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) KnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.chatService.Knowledge().Load(r.Context()))
}

func (h *APIHandler) SuggestionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.SuggestedQuestions)
}

type MatchRequest struct {
	Text string `json:"text"`
}

type MatchResponse struct {
	Response string `json:"response"`
}

func (h *APIHandler) MatchHandler(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, MatchResponse{Response: h.chatService.Match(r.Context(), req.Text)})
}

// ChatResponse describes a conversation after an action. Messages holds the
// full transcript for reads and only the new messages for sends.
type ChatResponse struct {
	ChatID   string          `json:"chat_id"`
	Phase    core.Phase      `json:"phase"`
	Messages []store.Message `json:"messages"`
}

func (h *APIHandler) CreateChatHandler(w http.ResponseWriter, r *http.Request) {
	session := h.chatService.NewSession(r.Context(), identityFrom(r.Context()))
	st := session.State()
	writeJSON(w, http.StatusCreated, ChatResponse{ChatID: st.ChatID, Phase: st.Phase, Messages: st.Messages})
}

func (h *APIHandler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	entries := h.chatService.History().Entries(r.Context(), id)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		entries = core.Search(entries, q)
	}
	writeJSON(w, http.StatusOK, entries)
}

// chatIDParam returns the validated chatID path parameter, writing a 400 when
// it is unusable.
func chatIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	chatID := chi.URLParam(r, "chatID")
	if !core.ValidChatID(chatID) {
		writeError(w, http.StatusBadRequest, "invalid chat id")
		return "", false
	}
	return chatID, true
}

func (h *APIHandler) GetChatHandler(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}
	session := h.chatService.NewSession(r.Context(), identityFrom(r.Context()))
	st := session.Open(r.Context(), chatID)
	writeJSON(w, http.StatusOK, ChatResponse{ChatID: st.ChatID, Phase: st.Phase, Messages: st.Messages})
}

type PostMessageRequest struct {
	Content string `json:"content"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}

	var req PostMessageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "message content cannot be empty")
		return
	}

	ctx := r.Context()
	session := h.chatService.NewSession(ctx, identityFrom(ctx))
	session.Open(ctx, chatID)
	sent := session.Send(ctx, req.Content)

	st := session.State()
	writeJSON(w, http.StatusOK, ChatResponse{ChatID: st.ChatID, Phase: st.Phase, Messages: sent})
}

type SuggestionRequest struct {
	Question string `json:"question"`
}

// SelectSuggestionHandler starts a new chat with a suggested question.
func (h *APIHandler) SelectSuggestionHandler(w http.ResponseWriter, r *http.Request) {
	var req SuggestionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question cannot be empty")
		return
	}

	ctx := r.Context()
	session := h.chatService.NewSession(ctx, identityFrom(ctx))
	sent, ok, err := session.SelectSuggestion(ctx, req.Question)
	if err != nil {
		observability.LoggerFromContext(ctx).Info("suggestion abandoned", "error", err)
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "suggestion superseded")
		return
	}

	st := session.State()
	writeJSON(w, http.StatusCreated, ChatResponse{ChatID: st.ChatID, Phase: st.Phase, Messages: sent})
}

func (h *APIHandler) DeleteChatHandler(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}
	id := identityFrom(r.Context())
	if id.IsZero() {
		writeError(w, http.StatusUnauthorized, "sign-in required")
		return
	}
	h.chatService.History().Remove(r.Context(), id, chatID)
	w.WriteHeader(http.StatusNoContent)
}
