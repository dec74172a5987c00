package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gwi.com/finance-chat/internal/core"
	"gwi.com/finance-chat/internal/observability"
)

const keepAliveInterval = 25 * time.Second

// HistoryEventsHandler streams the caller's history changes as Server-Sent
// Events. The first event is a snapshot of the current list.
func (h *APIHandler) HistoryEventsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := identityFrom(ctx)
	if id.IsZero() {
		writeError(w, http.StatusUnauthorized, "sign-in required")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// subscribe before the snapshot so no write falls between the two
	events, cancel := h.chatService.Broker().Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	snapshot := core.HistoryEvent{
		Kind:    core.HistorySnapshot,
		Entries: h.chatService.History().Entries(ctx, id),
	}
	if err := writeEvent(w, snapshot); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				observability.LoggerFromContext(ctx).Debug("history stream closed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev core.HistoryEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: history\ndata: %s\n\n", data)
	return err
}
