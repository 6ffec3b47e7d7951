package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"quizzapp-service/internal/app"
	"quizzapp-service/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewWSHandler(service *app.QuizService, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Text string `json:"text"`
}

type quitPayload struct {
	Confirm bool `json:"confirm"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}

// progressMessage labels a snapshot by what the client should render.
func progressMessage(p domain.Progress) outboundMessage[any] {
	if p.State == domain.StateCompleted {
		return outboundMessage[any]{Type: "completed", Payload: p}
	}
	return outboundMessage[any]{Type: "question", Payload: p}
}

// outbox queues messages for the connection's writer goroutine.
type outbox struct {
	queue chan outboundMessage[any]
	done  <-chan struct{}
}

// put reports false once the writer has stopped, so a dead socket never blocks the reader.
func (o outbox) put(msg outboundMessage[any]) bool {
	select {
	case o.queue <- msg:
		return true
	case <-o.done:
		return false
	}
}

// offered rejects text that is not among the current question's answers.
func offered(progress domain.Progress, text string) error {
	if progress.State == domain.StatePresenting && progress.Question != nil && !progress.Question.Offers(text) {
		return domain.ErrAnswerNotOffered
	}
	return nil
}

// ServeWS upgrades HTTP requests to websockets and runs one quiz session per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	subjectID := r.URL.Query().Get("subjectId")
	userID := r.URL.Query().Get("userId")
	if subjectID == "" || userID == "" {
		http.Error(w, "missing subjectId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	// sessions outlive the request context only until the socket closes
	ctx := context.WithoutCancel(r.Context())

	started, err := h.service.Start(ctx, userID, subjectID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	sessionID := started.SessionID
	defer func() { h.service.Close(ctx, sessionID) }()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	var forwarders sync.WaitGroup
	out := outbox{queue: send, done: writerDone}

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	// follow pushes snapshots of one session until it closes or the socket goes away.
	follow := func(id string) error {
		updates, cancel, err := h.service.Subscribe(ctx, id)
		if err != nil {
			return err
		}
		forwarders.Add(1)
		go func() {
			defer forwarders.Done()
			defer cancel()
			for {
				select {
				case update, ok := <-updates:
					if !ok {
						return
					}
					select {
					case send <- progressMessage(update):
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
		return nil
	}

	// the initial snapshot of the subscription is the first question
	open := true
	if err := follow(sessionID); err != nil {
		open = out.put(errorMessage(err))
	}

	for open {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		open = h.dispatch(ctx, inbound, &sessionID, follow, out)
	}

	close(closeSignals)
	forwarders.Wait()
	close(send)
	<-writerDone
}

// dispatch handles one client message and reports whether the connection stays open.
func (h *WSHandler) dispatch(ctx context.Context, inbound inboundMessage, sessionID *string, follow func(string) error, out outbox) bool {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return out.put(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
		}
		progress, err := h.service.Progress(ctx, *sessionID)
		if err == nil {
			err = offered(progress, payload.Text)
		}
		if err != nil {
			return out.put(errorMessage(err))
		}
		result, err := h.service.SubmitAnswer(ctx, *sessionID, payload.Text)
		if err != nil {
			return out.put(errorMessage(err))
		}
		return out.put(outboundMessage[any]{Type: "answerResult", Payload: result})
	case "advance":
		// the resulting snapshot reaches the client through the subscription
		if _, err := h.service.Advance(ctx, *sessionID); err != nil {
			return out.put(errorMessage(err))
		}
		return true
	case "quit":
		var payload quitPayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				return out.put(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid quit payload"}})
			}
		}
		outcome := domain.AlertCancelled
		if payload.Confirm {
			outcome = domain.AlertConfirmed
		}
		closed, err := h.service.Quit(ctx, *sessionID, outcome)
		if err != nil {
			return out.put(errorMessage(err))
		}
		if closed {
			out.put(outboundMessage[any]{Type: "quit", Payload: map[string]string{"sessionId": *sessionID}})
			return false
		}
		if progress, err := h.service.Progress(ctx, *sessionID); err == nil {
			return out.put(outboundMessage[any]{Type: "resumed", Payload: progress})
		}
		return true
	case "retry":
		fresh, err := h.service.Retry(ctx, *sessionID)
		if err != nil {
			return out.put(errorMessage(err))
		}
		*sessionID = fresh.SessionID
		if err := follow(*sessionID); err != nil {
			return out.put(errorMessage(err))
		}
		return true
	default:
		return out.put(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
	}
}
