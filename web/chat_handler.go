package web

import (
	"net/http"

	"github.com/studyhallhq/studyhall/types"
)

func (h *Handler) createGroupChat(w http.ResponseWriter, r *http.Request) {
	var in types.CreateGroupChat
	if err := decodeJSON(r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	out, err := h.Service.CreateGroupChat(r.Context(), in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	respond(w, out, http.StatusCreated)
}

func (h *Handler) privateChat(w http.ResponseWriter, r *http.Request) {
	var in types.CreatePrivateChat
	if err := decodeJSON(r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	out, err := h.Service.PrivateChat(r.Context(), in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	respond(w, out, http.StatusOK)
}

func (h *Handler) chats(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.Chats(r.Context(), types.ListChats{})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	respond(w, out, http.StatusOK)
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.Chat(r.Context(), types.RetrieveChat{
		ChatID: r.PathValue("chatID"),
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	respond(w, out, http.StatusOK)
}

func (h *Handler) deleteChat(w http.ResponseWriter, r *http.Request) {
	err := h.Service.DeleteChat(r.Context(), types.DeleteChat{
		ChatID: r.PathValue("chatID"),
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	respond(w, nil, http.StatusNoContent)
}

func (h *Handler) addParticipant(w http.ResponseWriter, r *http.Request) {
	var in types.AddParticipant
	if err := decodeJSON(r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}
	in.ChatID = r.PathValue("chatID")

	if err := h.Service.AddParticipant(r.Context(), in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	respond(w, nil, http.StatusNoContent)
}

func (h *Handler) removeParticipant(w http.ResponseWriter, r *http.Request) {
	err := h.Service.RemoveParticipant(r.Context(), types.RemoveParticipant{
		ChatID: r.PathValue("chatID"),
		UserID: r.PathValue("userID"),
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	respond(w, nil, http.StatusNoContent)
}

func (h *Handler) createPushSubscription(w http.ResponseWriter, r *http.Request) {
	var in types.CreatePushSubscription
	if err := decodeJSON(r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	if err := h.Service.CreatePushSubscription(r.Context(), in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	respond(w, nil, http.StatusNoContent)
}
