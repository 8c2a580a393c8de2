package relay

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/rudransh-shrivastava/peer-assist/internal/transport"
	"github.com/sirupsen/logrus"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Summarizer backs the optional /summarize route.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type Options struct {
	Addr       string
	Store      *Store
	Summarizer Summarizer
	Logger     *logrus.Logger
}

type Server struct {
	addr       string
	store      *Store
	summarizer Summarizer
	logger     *logrus.Logger
	listener   net.Listener
}

func NewServer(opts Options) *Server {
	store := opts.Store
	if store == nil {
		store = NewStore()
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		addr:       opts.Addr,
		store:      store,
		summarizer: opts.Summarizer,
		logger:     log,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /test", s.handleHealth)
	mux.HandleFunc("POST /offer", s.handlePublish(transport.SDPTypeOffer))
	mux.HandleFunc("POST /answer", s.handlePublish(transport.SDPTypeAnswer))
	mux.HandleFunc("GET /get_offer", s.handleTake(transport.SDPTypeOffer))
	mux.HandleFunc("GET /get_answer", s.handleTake(transport.SDPTypeAnswer))
	mux.HandleFunc("POST /summarize", s.handleSummarize)
	return mux
}

// Listen binds the configured address; Addr is valid afterwards.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Serve runs until ctx is cancelled, then shuts the HTTP server down.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(s.listener)
	}()
	s.logger.Infof("Relay listening on %s", s.Addr())

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down relay")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"offer_pending":  s.store.Pending(transport.SDPTypeOffer),
		"answer_pending": s.store.Pending(transport.SDPTypeAnswer),
	})
}

func (s *Server) handlePublish(want transport.SDPType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		desc, err := readDescription(r)
		if err != nil {
			s.logger.Warnf("Rejected %s: %v", want, err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if desc.Type != want {
			s.logger.Warnf("Rejected %s with type %q", want, desc.Type)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if replaced := s.store.Put(desc); replaced {
			s.logger.Warnf("Pending %s from a previous session was overwritten", want)
		}
		s.logger.WithField("id", desc.ID).Infof("Stored %s", want)
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) handleTake(t transport.SDPType) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		desc, ok := s.store.Take(t)
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		s.logger.WithField("id", desc.ID).Infof("Handed out %s", t)
		writeJSON(w, http.StatusOK, desc)
	}
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if s.summarizer == nil {
		w.WriteHeader(http.StatusNotImplemented)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil || req.Text == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	summary, err := s.summarizer.Summarize(r.Context(), req.Text)
	if err != nil {
		s.logger.Errorf("Failed to summarize: %v", err)
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// readDescription accepts form-encoded bodies and JSON bodies.
func readDescription(r *http.Request) (transport.Description, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var desc transport.Description
		if err := json.NewDecoder(r.Body).Decode(&desc); err != nil {
			return transport.Description{}, err
		}
		if desc.SDP == "" {
			return transport.Description{}, errors.New("missing sdp")
		}
		return desc, nil
	}

	if err := r.ParseForm(); err != nil {
		return transport.Description{}, err
	}
	desc := transport.Description{
		ID:   r.PostForm.Get("id"),
		Type: transport.SDPType(r.PostForm.Get("type")),
		SDP:  r.PostForm.Get("sdp"),
	}
	if desc.SDP == "" {
		return transport.Description{}, errors.New("missing sdp")
	}
	return desc, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
