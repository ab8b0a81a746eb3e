// Package web is the HTTP surface of the chat core: a JSON API plus
// server-sent event streams, meant to be mounted by the host app.
package web

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/securecookie"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/studyhallhq/studyhall/service"
)

type Handler struct {
	Service *service.Service
	Logger  *slog.Logger
	// Cookies must be shared with the host app so its login flow can
	// issue sessions this API accepts.
	Cookies *securecookie.SecureCookie

	handler http.Handler
	once    sync.Once
}

func (h *Handler) init() {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/group-chats", h.createGroupChat)
	mux.HandleFunc("POST /api/private-chats", h.privateChat)
	mux.HandleFunc("GET /api/chats", h.chats)
	mux.HandleFunc("GET /api/chats/{chatID}", h.chat)
	mux.HandleFunc("DELETE /api/chats/{chatID}", h.deleteChat)
	mux.HandleFunc("POST /api/chats/{chatID}/participants", h.addParticipant)
	mux.HandleFunc("DELETE /api/chats/{chatID}/participants/{userID}", h.removeParticipant)
	mux.HandleFunc("GET /api/chats/{chatID}/messages", h.messages)
	mux.HandleFunc("POST /api/chats/{chatID}/messages", h.sendMessage)
	mux.HandleFunc("POST /api/chats/{chatID}/read", h.markChatRead)
	mux.HandleFunc("GET /api/chats/{chatID}/unread-count", h.unreadCount)
	mux.HandleFunc("POST /api/chats/{chatID}/typing", h.setTyping)
	mux.HandleFunc("GET /api/chats/{chatID}/events", h.chatEvents)
	mux.HandleFunc("GET /api/chats/{chatID}/live", h.chatLive)
	mux.HandleFunc("GET /api/chats/{chatID}/presence", h.chatPresence)
	mux.HandleFunc("POST /api/push-subscriptions", h.createPushSubscription)
	mux.Handle("GET /metrics", promhttp.Handler())

	h.handler = h.withUser(mux)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.once.Do(h.init)
	h.handler.ServeHTTP(w, r)
}
