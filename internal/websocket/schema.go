package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer   Action = "answer"
	ActionNavigate Action = "navigate"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestPayload carries every client action; unused fields stay zero.
type RequestPayload struct {
	Action      Action `json:"action"`
	QuestionID  string `json:"question_id,omitempty"`
	OptionIndex int    `json:"option_index,omitempty"`
	TargetIndex int    `json:"target_index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventSaved  Event = "saved"
	EventMoved  Event = "moved"
	EventResult Event = "result"
	EventPong   Event = "pong"
)

type SavedResponse struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"question_id"`
	Remaining  int    `json:"remaining_seconds"`
}

type MovedResponse struct {
	Event        Event `json:"event"`
	CurrentIndex int   `json:"current_index"`
}

type ResultResponse struct {
	Event    Event   `json:"event"`
	Score    int     `json:"score"`
	Total    int     `json:"total_questions"`
	Accuracy float64 `json:"accuracy"`
	Replayed bool    `json:"replayed"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event     Event `json:"event"`
	Remaining int   `json:"remaining_seconds"`
}
