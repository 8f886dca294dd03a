package web

import (
	"net/http"
	"os"
	"sync"

	"github.com/bassj/spinner-app/config"
	"github.com/bassj/spinner-app/metrics"
	"github.com/bassj/spinner-app/room"
	"github.com/bassj/spinner-app/ws"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Server owns the HTTP surface and the per-room hubs. Rooms come from the
// registry, hubs are created alongside them and removed when a room expires.
type Server struct {
	cfg      *config.Config
	registry *room.Registry

	hubs     map[string]*ws.Hub
	hubsLock sync.RWMutex

	upgrader websocket.Upgrader
}

func NewServer(cfg *config.Config, registry *room.Registry) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		hubs:     make(map[string]*ws.Hub),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/room/create", s.createRoom).Methods(http.MethodPost)
	router.HandleFunc("/room/{room:[a-z][a-z0-9-]+}", s.getRoom).Methods(http.MethodGet)
	router.HandleFunc("/room/{room:[a-z][a-z0-9-]+}/auth", s.authRoom).Methods(http.MethodPost)
	router.HandleFunc("/room/{room:[a-z][a-z0-9-]+}/ws", s.websocketHandler).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	var h http.Handler = router
	h = s.identity(h)
	h = handlers.CombinedLoggingHandler(os.Stdout, h)
	if len(s.cfg.CORSOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(s.cfg.CORSOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
			handlers.AllowCredentials(),
		)(h)
	}
	return h
}

// hub returns the broadcaster of a room, creating it on first use. A nil
// return means the slug does not resolve to a live room.
func (s *Server) hub(slug string) *ws.Hub {
	s.hubsLock.RLock()
	h, ok := s.hubs[slug]
	s.hubsLock.RUnlock()
	if ok {
		return h
	}
	rm, ok := s.registry.GetBySlug(slug)
	if !ok {
		return nil
	}
	s.hubsLock.Lock()
	defer s.hubsLock.Unlock()
	if h, ok := s.hubs[slug]; ok {
		return h
	}
	h = ws.NewHub(rm)
	s.hubs[slug] = h
	return h
}

// OnRoomExpired drops the hub of an expired room and kicks whoever is still
// attached. Wired as the registry janitor callback.
func (s *Server) OnRoomExpired(rm *room.Room) {
	s.hubsLock.Lock()
	h, ok := s.hubs[rm.Slug()]
	delete(s.hubs, rm.Slug())
	s.hubsLock.Unlock()
	if ok {
		h.Close(room.ErrRoomNotFound.Message)
	}
}
