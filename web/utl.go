package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/studyhallhq/studyhall/errs"
	"github.com/studyhallhq/studyhall/realtime"
	"github.com/studyhallhq/studyhall/types"
	"github.com/studyhallhq/studyhall/validator"
)

func respond(w http.ResponseWriter, v any, statusCode int) {
	if v == nil {
		w.WriteHeader(statusCode)
		return
	}

	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write(b)
}

type errorPayload struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := err2code(err)
	if statusCode == http.StatusInternalServerError {
		h.Logger.Error("internal error", "method", r.Method, "path", r.URL.Path, "err", err)
		respond(w, errorPayload{Error: "internal server error"}, statusCode)
		return
	}

	payload := errorPayload{Error: err.Error()}

	var vErr *validator.Validator
	if errors.As(err, &vErr) {
		payload.Fields = vErr.Errors
	}

	respond(w, payload, statusCode)
}

func err2code(err error) int {
	var vErr *validator.Validator
	if errors.As(err, &vErr) {
		return http.StatusUnprocessableEntity
	}

	switch errs.KindOf(err) {
	case errs.KindInvalidArgument:
		return http.StatusUnprocessableEntity
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindAlreadyExists:
		return http.StatusConflict
	case errs.KindPermissionDenied:
		return http.StatusForbidden
	case errs.KindUnauthenticated:
		return http.StatusUnauthorized
	}

	return http.StatusInternalServerError
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.NewInvalidArgumentError("body", "malformed json body")
	}
	return nil
}

func parsePageArgs(q url.Values) (types.PageArgs, error) {
	var args types.PageArgs

	if s := q.Get("last"); s != "" {
		last, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return args, errs.NewInvalidArgumentError("last", "last must be a positive integer")
		}
		u := uint(last)
		args.Last = &u
	}

	if s := q.Get("before"); s != "" {
		args.Before = &s
	}

	return args, nil
}

// sseEvent is the client-facing envelope of every realtime event.
type sseEvent struct {
	Type realtime.EventType `json:"type"`
	Data any                `json:"data"`
}

func writeSSE(w http.ResponseWriter, rc *http.ResponseController, e realtime.Event) error {
	b, err := json.Marshal(sseEvent{Type: e.Type, Data: e.Payload()})
	if err != nil {
		return fmt.Errorf("json marshal sse event: %w", err)
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
		return err
	}
	return rc.Flush()
}

func sseHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
}
