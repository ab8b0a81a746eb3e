package web

import (
	"net/http"

	"github.com/studyhallhq/studyhall/types"
)

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var in types.SendMessage
	if err := decodeJSON(r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}
	in.ChatID = r.PathValue("chatID")

	out, err := h.Service.SendMessage(r.Context(), in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	statusCode := http.StatusCreated
	if out.Duplicate {
		statusCode = http.StatusOK
	}
	respond(w, out, statusCode)
}

func (h *Handler) messages(w http.ResponseWriter, r *http.Request) {
	pageArgs, err := parsePageArgs(r.URL.Query())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	out, err := h.Service.Messages(r.Context(), types.ListMessages{
		ChatID:   r.PathValue("chatID"),
		PageArgs: pageArgs,
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	respond(w, out, http.StatusOK)
}

func (h *Handler) markChatRead(w http.ResponseWriter, r *http.Request) {
	err := h.Service.MarkChatRead(r.Context(), types.MarkChatRead{
		ChatID: r.PathValue("chatID"),
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	respond(w, nil, http.StatusNoContent)
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.Service.UnreadCount(r.Context(), types.RetrieveUnreadCount{
		ChatID: r.PathValue("chatID"),
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	respond(w, map[string]int32{"unreadCount": count}, http.StatusOK)
}

func (h *Handler) setTyping(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SessionID string `json:"sessionId"`
		IsTyping  bool   `json:"isTyping"`
	}
	if err := decodeJSON(r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	err := h.Service.SetTyping(r.Context(), r.PathValue("chatID"), in.SessionID, in.IsTyping)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	respond(w, nil, http.StatusNoContent)
}

func (h *Handler) chatPresence(w http.ResponseWriter, r *http.Request) {
	roster, err := h.Service.ChatRoster(r.Context(), r.PathValue("chatID"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	respond(w, roster, http.StatusOK)
}

// chatEvents streams the chat channel over SSE: SEND broadcasts,
// NOTIFY fan-outs and presence records, for as long as the client
// stays connected.
func (h *Handler) chatEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	events, err := h.Service.ChatStream(ctx, r.PathValue("chatID"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	sseHeaders(w)
	rc := http.NewResponseController(w)

	for e := range events {
		if err := writeSSE(w, rc, e); err != nil {
			// Client went away; ctx cancellation tears the stream down.
			return
		}
	}
}

// chatLive attaches a viewing session to the chat's active channel.
// The session ID travels in a response header so the client can tag
// its typing updates.
func (h *Handler) chatLive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, events, err := h.Service.ActiveStream(ctx, r.PathValue("chatID"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	w.Header().Set("X-Session-Id", sessionID)
	sseHeaders(w)
	rc := http.NewResponseController(w)

	for e := range events {
		if err := writeSSE(w, rc, e); err != nil {
			return
		}
	}
}
