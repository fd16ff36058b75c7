package transport

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bft-labs/signtype/internal/telemetry"
	"github.com/bft-labs/signtype/pkg/classifier"
	"github.com/bft-labs/signtype/pkg/log"
	"github.com/bft-labs/signtype/pkg/session"
)

// inbound is one parsed client message. raw is set for binary frames, data
// for base64 frames, err for messages that failed validation.
type inbound struct {
	kind string
	data string
	raw  []byte
	err  error
}

// connection is the state of one websocket connection, owned by its loop.
type connection struct {
	h      *Handler
	id     string
	conn   *websocket.Conn
	sess   *session.Session
	stream *telemetry.StreamMetrics
	logger log.Logger
}

func (h *Handler) serve(parent context.Context, conn *websocket.Conn, id string) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	c := &connection{
		h:      h,
		id:     id,
		conn:   conn,
		sess:   h.registry.Create(id),
		stream: h.recorder.StartStream(id),
		logger: log.With(h.logger, log.String("session_id", id)),
	}
	h.observer.SessionOpened(id)
	c.logger.Debug("session opened", log.String("remote_addr", conn.RemoteAddr().String()))

	msgs := make(chan inbound)
	readErr := make(chan error, 1)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		readErr <- c.readLoop(ctx, msgs)
	}()

	err := c.loop(ctx, msgs, readErr)

	// Closing the socket unblocks the reader if it is still waiting.
	cancel()
	_ = conn.Close()
	<-readerDone

	h.registry.Remove(id)
	c.stream.Finish(err)
	h.observer.SessionClosed(id, err)
}

// loop processes messages until the reader fails or ctx is cancelled. A nil
// return means the client closed the connection normally.
func (c *connection) loop(ctx context.Context, msgs <-chan inbound, readErr <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			c.closeWith(websocket.CloseGoingAway, "server shutting down")
			return errShutdown
		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			return err
		case m := <-msgs:
			if err := c.handle(ctx, m); err != nil {
				return err
			}
		}
	}
}

func (c *connection) readLoop(ctx context.Context, msgs chan<- inbound) error {
	c.conn.SetReadLimit(c.h.cfg.MaxMessageBytes)
	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.h.cfg.ReadTimeout)); err != nil {
			return err
		}
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}

		var m inbound
		switch mt {
		case websocket.BinaryMessage:
			m = inbound{kind: TypeFrame, raw: data}
		case websocket.TextMessage:
			env, err := c.h.validator.parse(data)
			if err != nil {
				m = inbound{err: err}
				break
			}
			m = inbound{kind: env.Type, data: env.Data}
		default:
			continue
		}

		select {
		case msgs <- m:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *connection) handle(ctx context.Context, m inbound) error {
	if m.err != nil {
		c.stream.RecordDropped(m.err)
		return nil
	}
	switch m.kind {
	case TypeFrame:
		return c.handleFrame(ctx, m)
	case TypeReset:
		c.sess.Reset()
		c.stream.RecordReset()
		c.logger.Debug("session reset")
		return c.write(resetCompleteMessage{Type: TypeResetComplete})
	case TypeCheck:
		return c.write(newSpellingMessage(c.h.dict.Check(c.sess.Text())))
	}
	return nil
}

func (c *connection) handleFrame(ctx context.Context, m inbound) error {
	var (
		res classifier.Result
		err error
	)
	if m.raw != nil {
		res, err = c.h.pipeline.Process(ctx, m.raw)
	} else {
		res, err = c.h.pipeline.ProcessPayload(ctx, m.data)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.stream.RecordDropped(err)
		return nil
	}
	if ctx.Err() != nil {
		// The classifier was interrupted by shutdown; its fallback label is
		// not a real observation.
		return ctx.Err()
	}
	c.stream.RecordFrame(res.Cached, res.Duration)

	out := c.sess.Ingest(res.Prediction.Label)
	if commit, ok := out.Commit(c.id); ok {
		c.stream.RecordCommit(commit.Kind)
		c.h.observer.Committed(commit)
		c.logger.Debug("commit",
			log.String("kind", commit.Kind),
			log.String("letter", commit.Letter),
			log.String("buffer", commit.Buffer))
	}
	return c.write(newPredictionMessage(out, res.Prediction.Confidence))
}

func (c *connection) write(v any) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.h.cfg.WriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *connection) closeWith(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	deadline := time.Now().Add(time.Second)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		c.logger.Debug("failed to send close frame", log.Err(err))
	}
}
