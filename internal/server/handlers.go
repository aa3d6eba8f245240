package server

import (
	"net/http"

	"github.com/famomatic/ttaudio/client"
	"github.com/famomatic/ttaudio/internal/session"
	"github.com/famomatic/ttaudio/internal/track"
)

// Load result types of /v1/loadtracks.
const (
	loadTypeTrack = "track"
	loadTypeEmpty = "empty"
	loadTypeError = "error"
)

type trackInfo struct {
	Identifier string `json:"identifier"`
	IsSeekable bool   `json:"isSeekable"`
	Author     string `json:"author"`
	Length     int64  `json:"length"`
	IsStream   bool   `json:"isStream"`
	Position   int64  `json:"position"`
	Title      string `json:"title"`
	URI        string `json:"uri"`
	ArtworkURL string `json:"artworkUrl,omitempty"`
	ISRC       string `json:"isrc,omitempty"`
	SourceName string `json:"sourceName"`
}

type trackBody struct {
	Encoded string    `json:"encoded"`
	Info    trackInfo `json:"info"`
}

type loadResult struct {
	LoadType string     `json:"loadType"`
	Data     *trackBody `json:"data,omitempty"`
	Error    *errorBody `json:"exception,omitempty"`
}

func toTrackBody(t *track.Track) (*trackBody, error) {
	encoded, err := client.EncodeTrack(t)
	if err != nil {
		return nil, err
	}
	info := t.Info()
	return &trackBody{
		Encoded: encoded,
		Info: trackInfo{
			Identifier: info.Identifier,
			IsSeekable: !info.IsStream,
			Author:     info.Author,
			Length:     info.LengthMillis,
			IsStream:   info.IsStream,
			Title:      info.Title,
			URI:        info.URI,
			ArtworkURL: info.ArtworkURL,
			ISRC:       info.ISRC,
			SourceName: info.SourceName,
		},
	}, nil
}

func (s *Server) handleLoadTracks(w http.ResponseWriter, r *http.Request) {
	identifier := r.URL.Query().Get("identifier")
	if identifier == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_input", Message: "missing identifier", Severity: "common"})
		return
	}

	t, ok, err := s.source.LoadItem(r.Context(), identifier)
	switch {
	case !ok:
		writeJSON(w, http.StatusOK, loadResult{LoadType: loadTypeEmpty})
		return
	case err != nil:
		s.logger.Warn().Err(err).Str("identifier", identifier).Msg("load failed")
		writeJSON(w, http.StatusOK, loadResult{
			LoadType: loadTypeError,
			Error: &errorBody{
				Error:    string(client.ClassifyError(err)),
				Message:  err.Error(),
				Severity: client.Severity(err),
			},
		})
		return
	}

	body, err := toTrackBody(t)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, loadResult{LoadType: loadTypeTrack, Data: body})
}

func (s *Server) handleDecodeTrack(w http.ResponseWriter, r *http.Request) {
	t, err := client.DecodeTrack(r.URL.Query().Get("track"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	body, err := toTrackBody(t)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// handleStream plays a track into the response. Errors are reported as JSON
// only while nothing has been written yet; later failures abort the response.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	t, err := client.DecodeTrack(r.URL.Query().Get("track"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out := &lazyAudioWriter{w: w}
	sess := s.source.NewSession(t, session.WithOutput(out))
	logger := s.logger.With().Str("session_id", sess.ID()).Str("video_id", t.Identifier()).Logger()

	if err := sess.Process(r.Context()); err != nil {
		logger.Warn().Err(err).Str("phase", sess.Phase().String()).Msg("stream failed")
		if !out.started {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		// Headers are gone; abort so the client sees a broken transfer.
		panic(http.ErrAbortHandler)
	}
	if !out.started {
		w.WriteHeader(http.StatusNoContent)
	}
}

// lazyAudioWriter sends the audio headers on the first write.
type lazyAudioWriter struct {
	w       http.ResponseWriter
	started bool
}

func (l *lazyAudioWriter) Write(p []byte) (int, error) {
	if !l.started {
		l.started = true
		l.w.Header().Set("Content-Type", "application/octet-stream")
		l.w.Header().Set("Cache-Control", "no-store")
		l.w.WriteHeader(http.StatusOK)
	}
	n, err := l.w.Write(p)
	if f, ok := l.w.(http.Flusher); ok {
		f.Flush()
	}
	return n, err
}
