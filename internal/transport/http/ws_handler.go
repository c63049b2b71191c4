package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"mathquiz/internal/domain"
	"mathquiz/internal/quiz"
)

// WSHandler runs one quiz session per websocket connection. Every applied
// event (including clock ticks) pushes a fresh snapshot to the client; the
// snapshot is the only state the client ever sees.
type WSHandler struct {
	service  *quiz.Service
	upgrader websocket.Upgrader
}

func NewWSHandler(service *quiz.Service) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type navigatePayload struct {
	Delta int `json:"delta"`
}

type answerPayload struct {
	QuestionIndex    int   `json:"questionIndex"`
	OptionIndex      *int  `json:"optionIndex,omitempty"`
	PropositionIndex *int  `json:"propositionIndex,omitempty"`
	Value            *bool `json:"value,omitempty"`
}

type visibilityPayload struct {
	Hidden bool `json:"hidden"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and drives the session from inbound events.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session := h.service.Open()
	defer h.service.Close(session.ID())

	snapshots, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer goroutine; gorilla connections do not allow concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-snapshots:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "snapshot", Payload: snap}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// If the writer has died on a write error, nothing drains send; drop
	// instead of blocking the read loop behind a full buffer.
	enqueue := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var req domain.BatchRequest
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &req); err != nil {
					enqueue(errorMessage("invalid start payload"))
					continue
				}
			}
			session.Start(r.Context(), h.service.Resolve(req))
		case "navigate":
			var payload navigatePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				enqueue(errorMessage("invalid navigate payload"))
				continue
			}
			session.Navigate(payload.Delta)
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				enqueue(errorMessage("invalid answer payload"))
				continue
			}
			if err := applyAnswer(session, payload); err != nil {
				enqueue(errorMessage(err.Error()))
			}
		case "submit":
			session.Submit()
		case "visibility":
			var payload visibilityPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				enqueue(errorMessage("invalid visibility payload"))
				continue
			}
			if payload.Hidden {
				session.VisibilityLost()
			}
		case "restart":
			session.Restart()
		default:
			enqueue(errorMessage("unsupported message type"))
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func applyAnswer(session *quiz.Session, payload answerPayload) error {
	switch {
	case payload.OptionIndex != nil:
		return session.RecordChoice(payload.QuestionIndex, *payload.OptionIndex)
	case payload.PropositionIndex != nil && payload.Value != nil:
		return session.RecordTruth(payload.QuestionIndex, *payload.PropositionIndex, *payload.Value)
	default:
		return errors.New("answer payload needs optionIndex or propositionIndex+value")
	}
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
