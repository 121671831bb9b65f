package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prepdeck/prepdeck-backend/internal/engine"
	"github.com/prepdeck/prepdeck-backend/internal/middleware"
	"github.com/prepdeck/prepdeck-backend/internal/service"
	ws "github.com/prepdeck/prepdeck-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams attempt actions over a WebSocket. It is a thin proxy:
// every action lands on the same AttemptService methods the REST endpoints
// use, so both transports share one source of truth.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/attempts/:attempt_id/stream
// Upgrades to WebSocket for low-latency answering, navigation, and submit.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	studentID := claims.UserID

	// Ownership and liveness are checked before the upgrade so a rejected
	// client gets a proper HTTP status instead of a dead socket.
	remaining, err := h.attemptService.Connect(c.Request.Context(), studentID, attemptID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotYourAttempt):
			c.JSON(http.StatusForbidden, gin.H{"error": "not your attempt"})
		case errors.Is(err, service.ErrNoActiveAttempt):
			c.JSON(http.StatusNotFound, gin.H{"error": "no active attempt"})
		default:
			h.log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("WS connect failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("attempt_id", attemptID.String()).
		Logger()

	wsLog.Info().Int("remaining_seconds", remaining).Msg("Student connected")

	for {
		var msg ws.RequestPayload
		err := ws.ReadJSON(conn, &msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(conn, studentID, attemptID, &msg)
		case ws.ActionNavigate:
			h.handleNavigate(conn, studentID, attemptID, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, studentID, attemptID)
		case ws.ActionPing:
			h.handlePing(conn, studentID, attemptID)
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// handleAnswer records one answer selection and echoes the countdown so the
// client clock can resynchronize on every save.
func (h *WSHandler) handleAnswer(conn *websocket.Conn, studentID int, attemptID uuid.UUID, msg *ws.RequestPayload) {
	ctx := context.Background()

	if msg.QuestionID == "" {
		ws.WriteError(conn, "question_id is required")
		return
	}

	if err := h.attemptService.SelectAnswer(ctx, studentID, attemptID, msg.QuestionID, msg.OptionIndex); err != nil {
		ws.WriteError(conn, wsErrMessage(err))
		return
	}

	remaining, _ := h.attemptService.Remaining(studentID, attemptID)
	ws.WriteTyped(conn, ws.SavedResponse{
		Event:      ws.EventSaved,
		QuestionID: msg.QuestionID,
		Remaining:  remaining,
	})
}

// handleNavigate moves the palette pointer and confirms the new position.
func (h *WSHandler) handleNavigate(conn *websocket.Conn, studentID int, attemptID uuid.UUID, msg *ws.RequestPayload) {
	ctx := context.Background()

	if err := h.attemptService.Navigate(ctx, studentID, attemptID, msg.TargetIndex); err != nil {
		ws.WriteError(conn, wsErrMessage(err))
		return
	}

	idx, _ := h.attemptService.Position(studentID, attemptID)
	ws.WriteTyped(conn, ws.MovedResponse{
		Event:        ws.EventMoved,
		CurrentIndex: idx,
	})
}

// handleSubmit finalizes the attempt and sends the result inline. A repeat
// submit replays the original result with the replayed flag set.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, studentID int, attemptID uuid.UUID) {
	ctx := context.Background()

	res, err := h.attemptService.Submit(ctx, studentID, attemptID)
	replayed := errors.Is(err, engine.ErrAlreadySubmitted)
	if err != nil && !replayed {
		wsLog.Warn().Err(err).Msg("Submit failed")
		ws.WriteError(conn, wsErrMessage(err))
		return
	}

	wsLog.Info().
		Int("score", res.Score).
		Int("total", res.TotalQuestions).
		Bool("replayed", replayed).
		Msg("Attempt submitted")

	ws.WriteTyped(conn, ws.ResultResponse{
		Event:    ws.EventResult,
		Score:    res.Score,
		Total:    res.TotalQuestions,
		Accuracy: res.Accuracy,
		Replayed: replayed,
	})
}

// handlePing answers a keepalive with the server-side countdown.
func (h *WSHandler) handlePing(conn *websocket.Conn, studentID int, attemptID uuid.UUID) {
	remaining, err := h.attemptService.Remaining(studentID, attemptID)
	if err != nil {
		ws.WriteError(conn, wsErrMessage(err))
		return
	}
	ws.WriteTyped(conn, ws.PongResponse{
		Event:     ws.EventPong,
		Remaining: remaining,
	})
}

// wsErrMessage turns service and engine errors into short client-safe strings.
func wsErrMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrNotYourAttempt):
		return "not your attempt"
	case errors.Is(err, service.ErrNoActiveAttempt):
		return "no active attempt"
	case errors.Is(err, service.ErrResultNotSaved):
		return "result could not be saved, submit again"
	case errors.Is(err, engine.ErrInvalidAnswer):
		return "invalid answer selection"
	case errors.Is(err, engine.ErrInvalidNavigation):
		return "invalid navigation target"
	case errors.Is(err, engine.ErrSubmitInFlight):
		return "submit already in progress, try again shortly"
	case errors.Is(err, engine.ErrAlreadySubmitted):
		return "attempt already submitted"
	case errors.Is(err, engine.ErrAbandoned):
		return "attempt was abandoned"
	default:
		return "internal error"
	}
}
