package server

import (
	"context"
	"fmt"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/sloked-go/sloked/internal/cursor"
	"github.com/sloked-go/sloked/internal/position"
	"github.com/sloked-go/sloked/pkg/config"
	"github.com/sloked-go/sloked/pkg/logger"
	"github.com/sloked-go/sloked/pkg/notify"
	"github.com/sloked-go/sloked/pkg/protocol"
)

// Connection binds one WebSocket client to a stream and cursor on a
// document's multiplexer, and dispatches its RPC requests against them.
// Generalizes the teacher's Connection (one ClientMsg/ServerMsg loop per
// OT session) to the tagged-value Router boundary of spec.md §6.2, with
// notifications (§6.3) pushed from the session's notify.Hub instead of
// the teacher's single Updates() channel.
type Connection struct {
	session *session
	conn    *websocket.Conn
	cfg     config.Config

	streamID string
	cur      *cursor.Cursor
	router   *protocol.Router

	ctx    context.Context
	cancel context.CancelFunc
	sendMu sync.Mutex
}

// NewConnection opens a stream and cursor on s's multiplexer for conn
// and wires a Router to dispatch against them.
func NewConnection(s *session, conn *websocket.Conn, cfg config.Config) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	streamID := s.nextStreamID()
	st := s.mux.OpenStream(streamID)
	c := &Connection{
		session:  s,
		conn:     conn,
		cfg:      cfg,
		streamID: streamID,
		cur:      cursor.New(s.mux.Block(), s.mux.Codec(), st),
		ctx:      ctx,
		cancel:   cancel,
	}
	c.router = c.buildRouter()
	return c
}

func (c *Connection) buildRouter() *protocol.Router {
	r := protocol.NewRouter()

	r.Handle("cursor.position", func(protocol.Value) (protocol.Value, error) {
		return positionValue(c.cur.Position()), nil
	})
	r.Handle("cursor.move", func(p protocol.Value) (protocol.Value, error) {
		line, col, err := lineColumn(p)
		if err != nil {
			return protocol.VNull, err
		}
		return positionValue(c.cur.SetPosition(line, col)), nil
	})
	r.Handle("cursor.moveUp", func(p protocol.Value) (protocol.Value, error) {
		return positionValue(c.cur.MoveUp(countParam(p))), nil
	})
	r.Handle("cursor.moveDown", func(p protocol.Value) (protocol.Value, error) {
		return positionValue(c.cur.MoveDown(countParam(p))), nil
	})
	r.Handle("cursor.moveForward", func(p protocol.Value) (protocol.Value, error) {
		return positionValue(c.cur.MoveForward(countParam(p))), nil
	})
	r.Handle("cursor.moveBackward", func(p protocol.Value) (protocol.Value, error) {
		return positionValue(c.cur.MoveBackward(countParam(p))), nil
	})
	r.Handle("cursor.insert", func(p protocol.Value) (protocol.Value, error) {
		text, _ := field(p, "text").String()
		pos, err := c.cur.Insert(text)
		return positionValue(pos), err
	})
	r.Handle("cursor.newLine", func(p protocol.Value) (protocol.Value, error) {
		text, _ := field(p, "text").String()
		pos, err := c.cur.NewLine(text)
		return positionValue(pos), err
	})
	r.Handle("cursor.deleteBackward", func(protocol.Value) (protocol.Value, error) {
		pos, err := c.cur.DeleteBackward()
		return positionValue(pos), err
	})
	r.Handle("cursor.deleteForward", func(protocol.Value) (protocol.Value, error) {
		pos, err := c.cur.DeleteForward()
		return positionValue(pos), err
	})
	r.Handle("cursor.clearRegion", func(p protocol.Value) (protocol.Value, error) {
		from, to, err := regionParams(p)
		if err != nil {
			return protocol.VNull, err
		}
		pos, err := c.cur.ClearRegion(from, to)
		return positionValue(pos), err
	})
	r.Handle("cursor.undo", func(protocol.Value) (protocol.Value, error) {
		pos, err := c.cur.Undo()
		return positionValue(pos), err
	})
	r.Handle("cursor.redo", func(protocol.Value) (protocol.Value, error) {
		pos, err := c.cur.Redo()
		return positionValue(pos), err
	})
	r.Handle("document.snapshot", func(protocol.Value) (protocol.Value, error) {
		return protocol.VString(c.session.handle.Text()), nil
	})
	r.Handle("document.save", func(protocol.Value) (protocol.Value, error) {
		return protocol.VNull, c.session.docs.Save(c.session.handle)
	})

	return r
}

// Handle runs the connection's RPC loop until the client disconnects or
// ctx is cancelled.
func (c *Connection) Handle(ctx context.Context) error {
	defer c.cleanup()

	logger.Info("connection opened: document=%d stream=%s", c.session.id, c.streamID)

	notifyID, events := c.session.hub.Subscribe()
	defer c.session.hub.Unsubscribe(notifyID)

	done := make(chan struct{})
	go c.forwardNotifications(events, done)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ctx.Done():
			return c.ctx.Err()
		default:
		}

		readCtx, readCancel := context.WithTimeout(ctx, c.cfg.WSReadTimeout)
		var req protocol.Request
		err := wsjson.Read(readCtx, c.conn, &req)
		readCancel()
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}

		c.session.touch()
		resp := c.router.Dispatch(req)
		if err := c.send(resp); err != nil {
			return fmt.Errorf("send response: %w", err)
		}
	}
}

// forwardNotifications relays the session's content/tagger events to the
// client as unsolicited document.notify requests, per spec.md §6.3.
func (c *Connection) forwardNotifications(events <-chan notify.Event, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := c.send(notifyRequest(ev)); err != nil {
				logger.Error("forwarding notification to stream %s: %v", c.streamID, err)
				c.cancel()
				return
			}
		}
	}
}

func notifyRequest(ev notify.Event) protocol.Request {
	params := map[string]protocol.Value{"source": protocol.VString(string(ev.Source))}
	if ev.Source == notify.SourceTagger {
		params["payload"] = protocol.VMapping(map[string]protocol.Value{
			"start": positionValue(ev.Start),
			"end":   positionValue(ev.End),
		})
	}
	return protocol.Request{Method: "document.notify", Params: protocol.VMapping(params)}
}

func (c *Connection) send(v interface{}) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	writeCtx, cancel := context.WithTimeout(c.ctx, c.cfg.WSWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, c.conn, v)
}

func (c *Connection) cleanup() {
	logger.Info("connection closed: document=%d stream=%s", c.session.id, c.streamID)
	c.cur.Close()
	c.cancel()
}

func positionValue(p position.Position) protocol.Value {
	return protocol.VMapping(map[string]protocol.Value{
		"line":   protocol.VInt(int64(p.Line)),
		"column": protocol.VInt(int64(p.Column)),
	})
}

func field(p protocol.Value, name string) protocol.Value {
	m, ok := p.Mapping()
	if !ok {
		return protocol.VNull
	}
	return m[name]
}

func lineColumn(p protocol.Value) (line, column uint64, err error) {
	l, ok := field(p, "line").Int()
	if !ok {
		return 0, 0, fmt.Errorf("missing or non-integer \"line\" parameter")
	}
	col, ok := field(p, "column").Int()
	if !ok {
		return 0, 0, fmt.Errorf("missing or non-integer \"column\" parameter")
	}
	return uint64(l), uint64(col), nil
}

func countParam(p protocol.Value) uint64 {
	n, ok := field(p, "count").Int()
	if !ok || n < 0 {
		return 1
	}
	return uint64(n)
}

func regionParams(p protocol.Value) (from, to position.Position, err error) {
	fromV, ok := field(p, "from").Mapping()
	if !ok {
		return from, to, fmt.Errorf("missing \"from\" parameter")
	}
	toV, ok := field(p, "to").Mapping()
	if !ok {
		return from, to, fmt.Errorf("missing \"to\" parameter")
	}
	fl, _ := fromV["line"].Int()
	fc, _ := fromV["column"].Int()
	tl, _ := toV["line"].Int()
	tc, _ := toV["column"].Int()
	return position.Position{Line: uint64(fl), Column: uint64(fc)},
		position.Position{Line: uint64(tl), Column: uint64(tc)}, nil
}
