package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// sseEmitter streams edit progress as server-sent events. Write errors are
// swallowed after the first one: once the peer disconnects nothing can be
// done server-side, and the orchestrator must keep running to completion
// regardless.
type sseEmitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	logger  *slog.Logger
	lastPct int
	dead    bool
}

func newSSEEmitter(w http.ResponseWriter, logger *slog.Logger) *sseEmitter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	return &sseEmitter{w: w, flusher: flusher, logger: logger}
}

type progressFrame struct {
	Message    string `json:"message"`
	Percentage int    `json:"percentage"`
}

type terminalFrame struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	CommitSHA string `json:"commitSha,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
}

func (e *sseEmitter) Progress(message string, percentage int) {
	// Percentages never go backwards on the wire.
	if percentage < e.lastPct {
		percentage = e.lastPct
	}
	e.lastPct = percentage
	e.write(progressFrame{Message: message, Percentage: percentage})
}

func (e *sseEmitter) Succeed(message, commitSHA string) {
	e.write(terminalFrame{Success: true, Message: message, CommitSHA: commitSHA})
}

func (e *sseEmitter) Fail(code, message string) {
	e.write(terminalFrame{Success: false, Error: message, Code: code})
}

func (e *sseEmitter) write(frame any) {
	if e.dead {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	if _, err := e.w.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
		e.logger.Debug("stream peer gone, suppressing further writes", "error", err)
		e.dead = true
		return
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
}
