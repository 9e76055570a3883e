package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"gamenight-api/internal/apperr"
	"gamenight-api/internal/metrics"
	"gamenight-api/internal/models"
	"gamenight-api/internal/realtime"
	"gamenight-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type GameNightHandler struct {
	svc     *service.GameNightService
	feed    realtime.Feed
	metrics *metrics.Registry
	log     *zap.SugaredLogger
}

func NewGameNightHandler(s *service.GameNightService, feed realtime.Feed, m *metrics.Registry, log *zap.SugaredLogger) *GameNightHandler {
	return &GameNightHandler{svc: s, feed: feed, metrics: m, log: log}
}

type suggestRequest struct {
	GameID string `json:"gameId"`
}

type voteResponse struct {
	Voted     bool              `json:"voted"`
	GameNight *models.GameNight `json:"gameNight"`
}

type rsvpRequest struct {
	Status models.AttendanceStatus `json:"status"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type selectedGamesRequest struct {
	GameIDs []string `json:"gameIds"`
}

type calendarResponse struct {
	URL string `json:"url"`
}

// @Summary Crear noche de juegos
// @Tags game-nights
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.GameNightFormData true "fecha (YYYY-MM-DD), hora (HH:MM), lugar, zona horaria"
// @Success 201 {object} models.GameNight
// @Failure 400 {object} errorResponse
// @Router /game-nights [post]
func (h *GameNightHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	var form models.GameNightFormData
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, h.log, r, err)
		return
	}

	n, err := h.svc.Create(r.Context(), sess.Identity, form)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// @Summary Listar noches de juegos
// @Tags game-nights
// @Produce json
// @Security BearerAuth
// @Param upcoming query bool false "solo las futuras, en orden ascendente"
// @Param limit query int false "límite (default: 50, máx 200)"
// @Success 200 {array} models.GameNight
// @Router /game-nights [get]
func (h *GameNightHandler) List(w http.ResponseWriter, r *http.Request) {
	upcoming := r.URL.Query().Get("upcoming") == "true"
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, h.log, r, apperr.Validation("limit must be a number"))
			return
		}
		limit = parsed
	}

	nights, err := h.svc.List(r.Context(), upcoming, limit)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nights)
}

// @Summary Obtener noche de juegos
// @Tags game-nights
// @Produce json
// @Security BearerAuth
// @Param id path string true "game night id"
// @Success 200 {object} models.GameNight
// @Failure 404 {object} errorResponse
// @Router /game-nights/{id} [get]
func (h *GameNightHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	n, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// @Summary Sugerir un juego (cuenta como voto del que sugiere)
// @Tags game-nights
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "game night id"
// @Param body body suggestRequest true "juego"
// @Success 201 {object} models.GameNight
// @Failure 409 {object} errorResponse
// @Router /game-nights/{id}/suggestions [post]
func (h *GameNightHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	id, err := objectIDParam(r, "id")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	var req suggestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}

	n, err := h.svc.SuggestGame(r.Context(), sess.Identity, id, req.GameID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// @Summary Votar / quitar voto
// @Tags game-nights
// @Produce json
// @Security BearerAuth
// @Param id path string true "game night id"
// @Param gameId path string true "game id"
// @Success 200 {object} voteResponse
// @Failure 409 {object} errorResponse
// @Router /game-nights/{id}/suggestions/{gameId}/vote [post]
func (h *GameNightHandler) ToggleVote(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	id, err := objectIDParam(r, "id")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	n, voted, err := h.svc.ToggleVote(r.Context(), sess.Identity, id, chi.URLParam(r, "gameId"))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, voteResponse{Voted: voted, GameNight: n})
}

// @Summary Confirmar asistencia
// @Tags game-nights
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "game night id"
// @Param body body rsvpRequest true "going | maybe | not-going"
// @Success 200 {object} models.GameNight
// @Router /game-nights/{id}/rsvp [put]
func (h *GameNightHandler) RSVP(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	id, err := objectIDParam(r, "id")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	var req rsvpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}

	n, err := h.svc.SetAttendance(r.Context(), sess.Identity, id, req.Status)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// @Summary Notas de la noche
// @Tags game-nights
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "game night id"
// @Param body body notesRequest true "notas"
// @Success 200 {object} models.GameNight
// @Router /game-nights/{id}/notes [put]
func (h *GameNightHandler) SetNotes(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	var req notesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}

	n, err := h.svc.SetNotes(r.Context(), id, req.Notes)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// @Summary Elegir los juegos de la noche
// @Tags game-nights
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "game night id"
// @Param body body selectedGamesRequest true "ids de juegos"
// @Success 200 {object} models.GameNight
// @Failure 403 {object} errorResponse
// @Router /game-nights/{id}/selected-games [put]
func (h *GameNightHandler) SelectGames(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	id, err := objectIDParam(r, "id")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	var req selectedGamesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}

	n, err := h.svc.SelectGames(r.Context(), sess, id, req.GameIDs)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// @Summary Cerrar la noche y sumar asistencia
// @Tags game-nights
// @Produce json
// @Security BearerAuth
// @Param id path string true "game night id"
// @Success 200 {object} models.GameNight
// @Failure 409 {object} errorResponse
// @Router /game-nights/{id}/complete [post]
func (h *GameNightHandler) Complete(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	id, err := objectIDParam(r, "id")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	n, err := h.svc.Complete(r.Context(), sess, id)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// @Summary Link para agregar la noche a Google Calendar
// @Tags game-nights
// @Produce json
// @Security BearerAuth
// @Param id path string true "game night id"
// @Success 200 {object} calendarResponse
// @Router /game-nights/{id}/calendar [get]
func (h *GameNightHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	link, err := h.svc.CalendarLink(r.Context(), id)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calendarResponse{URL: link})
}

// ================== WEBSOCKET ==================

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// upgrader global (no afecta a swagger)
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type feedMessage struct {
	Type      string          `json:"type"`
	GameNight json.RawMessage `json:"gameNight"`
}

// revOf lee solo la revisión de un documento publicado; -1 si no se puede.
func revOf(msg []byte) int64 {
	var v struct {
		Rev int64 `json:"rev"`
	}
	if err := json.Unmarshal(msg, &v); err != nil {
		return -1
	}
	return v.Rev
}

// @Summary Cambios de la noche en tiempo real (WebSocket)
// @Description Manda un "snapshot" al conectar y un "update" por cada cambio.
// @Tags game-nights
// @Produce json
// @Param id path string true "game night id"
// @Param access_token query string false "token de sesión (si no se puede mandar el header)"
// @Success 101
// @Router /game-nights/{id}/ws [get]
func (h *GameNightHandler) Feed(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	// suscribirse antes de leer: un cambio entre la lectura y la
	// suscripción se perdería
	updates, cancel, err := h.feed.Subscribe(r.Context(), id.Hex())
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	defer cancel()

	n, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	snapshot, err := json.Marshal(n)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade ya respondió al cliente
		h.log.Warnw("ws upgrade failed", "night", id.Hex(), "err", err)
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.ActiveFeeds.Inc()
		defer h.metrics.ActiveFeeds.Dec()
	}

	// el cliente no manda nada útil; leemos solo para enterarnos del cierre
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(kind string, payload []byte) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(feedMessage{Type: kind, GameNight: payload})
	}

	if err := send("snapshot", snapshot); err != nil {
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case msg, ok := <-updates:
			if !ok {
				return
			}
			// lo encolado antes del snapshot ya está incluido en él
			if revOf(msg) <= n.Rev {
				continue
			}
			if err := send("update", msg); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
