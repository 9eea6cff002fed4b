package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/classify"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/filter"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/session"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/urlstate"
)

const (
	outboxSize   = 64
	writeTimeout = 5 * time.Second
)

// Handler manages WebSocket connections for the dashboard.
type Handler struct {
	sessions       *session.Manager
	logger         *zap.Logger
	originPatterns []string
}

// NewHandler creates a WebSocket handler. originPatterns follows
// websocket.AcceptOptions; nil allows only same-origin requests.
func NewHandler(sessions *session.Manager, logger *zap.Logger, originPatterns []string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, logger: logger, originPatterns: originPatterns}
}

// ServeHTTP upgrades to WebSocket and runs the message loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &client{
		conn:   conn,
		logger: h.logger,
		outbox: make(chan ServerMessage, outboxSize),
		dirty:  make(chan struct{}, 1),
		done:   ctx.Done(),
		now:    h.sessions.Now,
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop(ctx)
	}()

	defer func() {
		if sess := c.session.Load(); sess != nil {
			h.sessions.Remove(sess.ID)
		}
		cancel()
		wg.Wait()
	}()

	for {
		var msg ClientMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				h.logger.Debug("connection closed", zap.Int("status", int(status)))
			} else if ctx.Err() == nil {
				h.logger.Debug("read failed", zap.Error(err))
			}
			return
		}
		h.dispatch(ctx, c, msg)
	}
}

func (h *Handler) dispatch(ctx context.Context, c *client, msg ClientMessage) {
	sess := c.session.Load()
	if sess != nil {
		sess.Touch(h.sessions.Now())
	}
	if msg.Type == TypePing {
		c.send(ServerMessage{Type: TypePong, RequestID: msg.ID})
		return
	}
	if msg.Type == TypeHello {
		h.handleHello(ctx, c, msg)
		return
	}

	if sess == nil {
		c.sendError(msg.ID, "hello_required", "send hello before any other message")
		return
	}
	if h.sessions.Get(sess.ID) == nil {
		// Expired by the janitor; the client starts over with hello.
		c.session.CompareAndSwap(sess, nil)
		c.sendError(msg.ID, "session_expired", "session expired, send hello again")
		return
	}
	store := sess.Store

	switch msg.Type {
	case TypeUpdateFilters:
		var p filter.Patch
		if c.decode(msg, &p) {
			store.UpdateFilters(p)
		}
	case TypeOpenPanel:
		store.OpenAdvancedPanel()
	case TypeEditPanel:
		var p filter.DraftPatch
		if c.decode(msg, &p) {
			if _, ok := store.EditAdvancedPanel(p); !ok {
				c.sendError(msg.ID, "panel_closed", "the advanced panel is not open")
			}
		}
	case TypeCommitPanel:
		var p filter.DraftPatch
		if len(msg.Data) == 0 || c.decode(msg, &p) {
			store.CommitAdvancedPanel(p)
		}
	case TypeCancelPanel:
		store.CancelAdvancedPanel()
	case TypeQuickFilter:
		var d QuickFilterData
		if c.decode(msg, &d) {
			if !d.Key.Valid() {
				c.sendError(msg.ID, "invalid_data", fmt.Sprintf("unknown quick filter: %s", d.Key))
				return
			}
			store.ApplyQuickFilter(d.Key)
		}
	case TypeChip:
		var d ChipData
		if c.decode(msg, &d) {
			label, ok := classify.ParseLabel(d.Chip)
			if !ok {
				c.sendError(msg.ID, "invalid_data", fmt.Sprintf("unknown chip: %s", d.Chip))
				return
			}
			store.ToggleChip(label)
		}
	case TypeTriState:
		var d TriStateData
		if c.decode(msg, &d) {
			card, ok := filter.LookupCard(d.Card)
			if !ok {
				c.sendError(msg.ID, "invalid_data", fmt.Sprintf("unknown card: %s", d.Card))
				return
			}
			store.ApplyCompetitionTriState(card)
		}
	case TypeSetRange:
		var d RangeData
		if c.decode(msg, &d) {
			if !d.Range.Valid() {
				c.sendError(msg.ID, "invalid_data", fmt.Sprintf("unknown range: %s", d.Range))
				return
			}
			store.SetNewAddedRange(d.Range)
		}
	case TypeToggleMallTag:
		var d ChipData
		if c.decode(msg, &d) {
			if _, ok := classify.LookupTag(classify.Label(d.Chip)); !ok {
				c.sendError(msg.ID, "invalid_data", fmt.Sprintf("unknown mall tag: %s", d.Chip))
				return
			}
			store.ToggleMallTag(classify.Label(d.Chip))
		}
	case TypeToggleFavorite:
		var d IDData
		if c.decode(msg, &d) {
			store.ToggleFavorite(d.ID)
		}
	case TypeSearch:
		var d SearchData
		if c.decode(msg, &d) && !sess.Sync.Search(d.Field, d.Value) {
			c.sendError(msg.ID, "invalid_data", fmt.Sprintf("unknown search field: %s", d.Field))
		}
	case TypeSelectStore:
		var d IDData
		if c.decode(msg, &d) {
			store.SelectStore(d.ID)
		}
	case TypeSelectMall:
		var d IDData
		if c.decode(msg, &d) {
			store.SelectMall(d.ID)
		}
	case TypeSetView:
		var d ViewData
		if c.decode(msg, &d) {
			if !d.View.Valid() {
				c.sendError(msg.ID, "invalid_data", fmt.Sprintf("unknown view: %s", d.View))
				return
			}
			store.SetView(d.View)
		}
	case TypeSetViewport:
		var vp filter.Viewport
		if c.decode(msg, &vp) {
			if vp.Center != nil && !vp.Center.Valid() {
				c.sendError(msg.ID, "invalid_data", "viewport center out of range")
				return
			}
			store.SetViewport(vp)
		}
	case TypeReset:
		sess.Sync.Flush()
		store.ResetAll()
	default:
		c.sendError(msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

func (h *Handler) handleHello(ctx context.Context, c *client, msg ClientMessage) {
	if c.session.Load() != nil {
		c.sendError(msg.ID, "already_started", "session already started")
		return
	}
	var data HelloData
	if len(msg.Data) > 0 && !c.decode(msg, &data) {
		return
	}

	sink := &connSink{client: c, query: data.Query}
	sess := h.sessions.Create(ctx, sink, urlstate.StaticLocator(data.Location))
	sess.Attach()
	c.session.Store(sess)
	sess.Store.Subscribe(filter.ObserverFunc(func(filter.Snapshot) { c.markDirty() }))

	c.send(ServerMessage{
		Type:      TypeSession,
		RequestID: msg.ID,
		Data:      SessionData{SessionID: sess.ID},
	})
	c.markDirty()
}

// client is one connection. All writes go through writeLoop.
type client struct {
	conn    *websocket.Conn
	logger  *zap.Logger
	outbox  chan ServerMessage
	dirty   chan struct{}
	done    <-chan struct{}
	now     func() time.Time
	session atomic.Pointer[session.Session]
}

func (c *client) send(msg ServerMessage) {
	select {
	case c.outbox <- msg:
	case <-c.done:
	}
}

func (c *client) sendError(requestID, code, message string) {
	c.send(ServerMessage{
		Type:      TypeError,
		RequestID: requestID,
		Data: ErrorData{
			Code:    code,
			Message: message,
		},
	})
}

// decode unmarshals msg.Data into v, reporting a wire error on failure.
func (c *client) decode(msg ClientMessage, v any) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		c.sendError(msg.ID, "invalid_data", fmt.Sprintf("invalid %s data", msg.Type))
		return false
	}
	return true
}

// markDirty schedules a view push. Repeated marks before the push coalesce.
func (c *client) markDirty() {
	select {
	case c.dirty <- struct{}{}:
	default:
	}
}

func (c *client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.outbox:
			c.write(ctx, msg)
		case <-c.dirty:
			// Queued messages were produced before the state being pushed.
			for drained := false; !drained; {
				select {
				case msg := <-c.outbox:
					c.write(ctx, msg)
				default:
					drained = true
				}
			}
			c.pushView(ctx)
		}
	}
}

func (c *client) pushView(ctx context.Context) {
	sess := c.session.Load()
	if sess == nil {
		return
	}
	c.write(ctx, ServerMessage{
		Type: TypeView,
		Data: DashboardData{
			Snapshot: sess.Store.Snapshot(),
			Result:   sess.Store.View(c.now()),
		},
	})
}

func (c *client) write(ctx context.Context, msg ServerMessage) {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, c.conn, msg); err != nil && ctx.Err() == nil {
		c.logger.Warn("write error", zap.String("type", msg.Type), zap.Error(err))
	}
}

// connSink is the client's query string as last reported or replaced.
type connSink struct {
	mu     sync.Mutex
	client *client
	query  string
}

func (s *connSink) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

func (s *connSink) Replace(query string) {
	s.mu.Lock()
	s.query = query
	s.mu.Unlock()
	s.client.send(ServerMessage{Type: TypeReplaceQuery, Data: ReplaceQueryData{Query: query}})
}
