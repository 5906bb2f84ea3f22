package imports

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MrJamesThe3rd/tally/internal/importrun"
	"github.com/MrJamesThe3rd/tally/internal/logger"
)

// progress streams run progress as server-sent events. The stream ends
// after the terminal update. Without a run, the current state is sent once.
func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	run, ok := sess.Run()
	if !ok {
		writeEvent(w, r, sess.Progress())
		flusher.Flush()

		return
	}

	updates := run.Subscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case p, open := <-updates:
			if !open {
				return
			}

			writeEvent(w, r, p)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, r *http.Request, p importrun.Progress) {
	data, err := json.Marshal(p)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("failed to encode progress")

		return
	}

	_, _ = fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
}
