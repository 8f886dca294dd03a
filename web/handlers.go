package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bassj/spinner-app/globals"
	"github.com/bassj/spinner-app/room"
	"github.com/bassj/spinner-app/ws"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const identityCookie = "user_id"

// identity makes sure every caller carries a user id cookie. The id is an
// opaque random value, there are no accounts.
func (s *Server) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(identityCookie); err != nil {
			cookie := &http.Cookie{
				Name:     identityCookie,
				Value:    uuid.NewString(),
				Path:     "/",
				HttpOnly: true,
			}
			http.SetCookie(w, cookie)
			r.AddCookie(cookie)
		}
		next.ServeHTTP(w, r)
	})
}

func userId(r *http.Request) string {
	cookie, err := r.Cookie(identityCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed form data", http.StatusBadRequest)
		return
	}
	name := r.PostFormValue("spinner_name")
	if name == "" {
		http.Error(w, `Missing "spinner_name" parameter.`, http.StatusBadRequest)
		return
	}
	rm, err := s.registry.Create(name, r.PostFormValue("room_password"), userId(r))
	if err != nil {
		globals.AppLogger.Error("could not create room", "error", err)
		http.Error(w, "Could not create room", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/room/"+rm.Slug(), http.StatusSeeOther)
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.registry.GetBySlug(mux.Vars(r)["room"])
	if !ok {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	uid := userId(r)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"slug":         rm.Slug(),
		"name":         rm.Name(),
		"creator":      rm.IsCreator(uid),
		"user_id":      uid,
		"has_password": rm.HasPassword(),
	})
}

func (s *Server) authRoom(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.registry.GetBySlug(mux.Vars(r)["room"])
	if !ok {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed form data", http.StatusBadRequest)
		return
	}
	displayName := r.PostFormValue("display_name")
	if displayName == "" {
		http.Error(w, `Missing "display_name" parameter.`, http.StatusBadRequest)
		return
	}
	password := r.PostFormValue("room_password")
	if password == "" && rm.HasPassword() && !rm.IsCreator(userId(r)) {
		http.Error(w, `Missing "room_password" parameter.`, http.StatusBadRequest)
		return
	}

	if _, err := rm.Join(userId(r), displayName, password); err != nil {
		var roomErr *room.Error
		if errors.As(err, &roomErr) {
			status := http.StatusForbidden
			if roomErr.Kind == room.KindNameTaken {
				status = http.StatusConflict
			}
			writeJSON(w, status, map[string]string{
				"type":    string(roomErr.Kind),
				"message": roomErr.Message,
			})
			return
		}
		globals.AppLogger.Error("could not join room", "error", err)
		http.Error(w, "Could not join room", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNonAuthoritativeInfo)
}

// websocketHandler upgrades the connection and hands it to the session state
// machine. A connection against an unknown room is kicked right away.
func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["room"]
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		globals.AppLogger.Error("websocket upgrade error", "error", err)
		return
	}
	hub := s.hub(slug)
	if hub == nil {
		ws.KickConn(conn, room.ErrRoomNotFound.Message)
		return
	}
	ws.Serve(hub, conn)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		globals.AppLogger.Error("could not write response", "error", err)
	}
}
