package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	qrSize           = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Server bundles what the HTTP routes need. DB and Auth may be nil.
type Server struct {
	Hub       *Hub
	Game      *Game
	Auth      *Auth
	DB        *DB
	ClientDir string
	PublicURL string
	Log       *zap.Logger
}

// matchView is a stored match with human readable times
type matchView struct {
	MatchRecord
	EndedAgo string `json:"endedAgo"`
	Duration string `json:"duration"`
}

// SetupRoutes configures HTTP routes
func SetupRoutes(s *Server) *http.ServeMux {
	mux := http.NewServeMux()

	// Serve static files with no-cache so browsers always revalidate
	fs := http.FileServer(http.Dir(s.ClientDir))
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		fs.ServeHTTP(w, r)
	}))

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !s.Hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.Log.Warn("upgrade error", zap.Error(err))
			return
		}

		s.Hub.TrackConnect(ip)

		client := NewClient(s.Hub, conn, ip, ParseCodec(r.URL.Query().Get("codec")))
		s.Hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/matches", s.handleMatches)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("POST /api/admin/login", s.handleAdminLogin)
	mux.HandleFunc("POST /api/admin/reset", s.handleAdminReset)
	mux.HandleFunc("GET /qr.png", s.handleQR)

	return mux
}

// status adds the connection count and uptime to the game status
func (s *Server) status() StatusInfo {
	st := s.Game.Status()
	st.Connections = s.Hub.ClientCount()
	st.Uptime = strings.TrimSpace(humanize.RelTime(s.Game.BootedAt(), s.Game.clock.Now(), "", ""))
	return st
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusNotFound, "match history is disabled")
		return
	}
	recs, err := s.DB.RecentMatches(r.Context(), listLimit(r))
	if err != nil {
		s.Log.Error("list matches", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	views := make([]matchView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, matchView{
			MatchRecord: rec,
			EndedAgo:    humanize.Time(rec.EndedAt),
			Duration:    rec.EndedAt.Sub(rec.StartedAt).Round(time.Second).String(),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusNotFound, "match history is disabled")
		return
	}
	list, err := s.DB.Leaderboard(r.Context(), listLimit(r))
	if err != nil {
		s.Log.Error("leaderboard", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, list)
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if s.Auth == nil || !s.Auth.Enabled() {
		writeError(w, http.StatusNotFound, ErrAdminDisabled.Error())
		return
	}
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := s.Auth.Login(req.Password, extractIP(r))
	switch {
	case errors.Is(err, ErrTooManyAttempts):
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	case errors.Is(err, ErrBadCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		s.Log.Error("admin login", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (s *Server) handleAdminReset(w http.ResponseWriter, r *http.Request) {
	if s.Auth == nil || !s.Auth.Enabled() {
		writeError(w, http.StatusNotFound, ErrAdminDisabled.Error())
		return
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if err := s.Auth.ValidateToken(token); err != nil {
		s.Log.Warn("admin token rejected", zap.String("ip", extractIP(r)), zap.Error(err))
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	s.Game.ForceReset("operator")
	writeJSON(w, http.StatusOK, s.status())
}

// handleQR renders the join link so phones on the LAN can scan it
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	link := s.PublicURL
	if link == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		link = scheme + "://" + r.Host + "/"
	}
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		s.Log.Error("qr encode", zap.String("url", link), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

func listLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
