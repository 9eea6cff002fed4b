package wire

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/classify"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/dataset"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/filter"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/session"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
)

// received mirrors ServerMessage with a raw payload for decoding in tests.
type received struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

func testData() *dataset.Dataset {
	return dataset.New(
		[]types.Store{
			{ID: "s1", Name: "深圳万象城", Brand: types.BrandDJI, Province: "广东", City: "深圳"},
			{ID: "s2", Name: "深圳海岸城", Brand: types.BrandInsta, Province: "广东", City: "深圳"},
			{ID: "s3", Name: "北京国贸", Brand: types.BrandDJI, Province: "北京", City: "北京"},
		},
		[]types.Mall{
			{MallID: "m1", MallName: "万象城", City: "深圳", DJIOpened: true, InstaOpened: true},
			{MallID: "m2", MallName: "国贸商城", City: "北京", DJIExclusive: true, DJIOpened: true},
		},
	)
}

type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func dial(t *testing.T) (context.Context, *websocket.Conn, *session.Manager) {
	t.Helper()
	return dialWith(t, session.Options{SearchDelay: 20 * time.Millisecond})
}

func dialWith(t *testing.T, opts session.Options) (context.Context, *websocket.Conn, *session.Manager) {
	t.Helper()
	sessions := session.NewManager(testData(), opts)
	srv := httptest.NewServer(NewHandler(sessions, nil, nil))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return ctx, conn, sessions
}

func write(t *testing.T, ctx context.Context, conn *websocket.Conn, typ, id string, data any) {
	t.Helper()
	msg := map[string]any{"type": typ, "id": id}
	if data != nil {
		msg["data"] = data
	}
	require.NoError(t, wsjson.Write(ctx, conn, msg))
}

// next reads until a message of type typ arrives and returns it.
func next(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) received {
	t.Helper()
	for {
		var msg received
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if msg.Type == typ {
			return msg
		}
	}
}

// viewUntil reads view pushes until cond holds for one of them.
func viewUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, cond func(DashboardData) bool) DashboardData {
	t.Helper()
	for {
		msg := next(t, ctx, conn, TypeView)
		var d DashboardData
		require.NoError(t, json.Unmarshal(msg.Data, &d))
		if cond(d) {
			return d
		}
	}
}

func hello(t *testing.T, ctx context.Context, conn *websocket.Conn, query string) string {
	t.Helper()
	write(t, ctx, conn, TypeHello, "h1", HelloData{Query: query})
	msg := next(t, ctx, conn, TypeSession)
	assert.Equal(t, "h1", msg.RequestID)
	var d SessionData
	require.NoError(t, json.Unmarshal(msg.Data, &d))
	require.NotEmpty(t, d.SessionID)
	return d.SessionID
}

func TestHandler_HelloRequired(t *testing.T) {
	ctx, conn, _ := dial(t)

	write(t, ctx, conn, TypePing, "p1", nil)
	pong := next(t, ctx, conn, TypePong)
	assert.Equal(t, "p1", pong.RequestID)

	write(t, ctx, conn, TypeReset, "r1", nil)
	msg := next(t, ctx, conn, TypeError)
	var e ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &e))
	assert.Equal(t, "hello_required", e.Code)
}

func TestHandler_HelloRestoresQueryAndPushesView(t *testing.T) {
	ctx, conn, sessions := dial(t)
	id := hello(t, ctx, conn, "brand=insta&view=competition")

	d := viewUntil(t, ctx, conn, func(DashboardData) bool { return true })
	assert.Equal(t, filter.ViewCompetition, d.Snapshot.View)
	require.Len(t, d.Result.Stores, 1)
	assert.Equal(t, "s2", d.Result.Stores[0].ID)
	assert.NotNil(t, sessions.Get(id))

	write(t, ctx, conn, TypeHello, "h2", nil)
	msg := next(t, ctx, conn, TypeError)
	assert.Equal(t, "h2", msg.RequestID)
}

func TestHandler_OperationsUpdateView(t *testing.T) {
	ctx, conn, _ := dial(t)
	hello(t, ctx, conn, "")

	write(t, ctx, conn, TypeQuickFilter, "q1", QuickFilterData{Key: filter.QuickBrandA})
	d := viewUntil(t, ctx, conn, func(d DashboardData) bool { return d.Snapshot.Quick == filter.QuickBrandA })
	assert.Len(t, d.Result.Stores, 2)

	write(t, ctx, conn, TypeTriState, "t1", TriStateData{Card: filter.CardSolo.Name})
	d = viewUntil(t, ctx, conn, func(d DashboardData) bool { return d.Snapshot.Chip != classify.LabelAll })
	assert.Equal(t, classify.LabelInstaOnly, d.Snapshot.Chip)

	write(t, ctx, conn, TypeUpdateFilters, "u1", map[string]any{"province": []string{"北京"}})
	d = viewUntil(t, ctx, conn, func(d DashboardData) bool { return d.Snapshot.Applied.Province.Has("北京") })
	require.Len(t, d.Result.Stores, 1)
	assert.Equal(t, "s3", d.Result.Stores[0].ID)

	write(t, ctx, conn, TypeReset, "r1", nil)
	d = viewUntil(t, ctx, conn, func(d DashboardData) bool { return d.Snapshot.ResetToken == 1 })
	assert.Len(t, d.Result.Stores, 3)
	assert.Equal(t, filter.QuickAll, d.Snapshot.Quick)
}

func TestHandler_ReplaceQuery(t *testing.T) {
	ctx, conn, _ := dial(t)
	hello(t, ctx, conn, "utm=wx")

	write(t, ctx, conn, TypeSelectMall, "m", IDData{ID: "m2"})
	msg := next(t, ctx, conn, TypeReplaceQuery)
	var d ReplaceQueryData
	require.NoError(t, json.Unmarshal(msg.Data, &d))
	assert.Equal(t, "mallId=m2&utm=wx", d.Query)
}

func TestHandler_DebouncedSearch(t *testing.T) {
	ctx, conn, _ := dial(t)
	hello(t, ctx, conn, "")

	write(t, ctx, conn, TypeSearch, "s1", SearchData{Field: "keyword", Value: "北"})
	write(t, ctx, conn, TypeSearch, "s2", SearchData{Field: "keyword", Value: "北京"})
	d := viewUntil(t, ctx, conn, func(d DashboardData) bool { return d.Snapshot.Applied.Keyword != "" })
	assert.Equal(t, "北京", d.Snapshot.Applied.Keyword)
	require.Len(t, d.Result.Stores, 1)

	write(t, ctx, conn, TypeSearch, "s3", SearchData{Field: "address", Value: "x"})
	msg := next(t, ctx, conn, TypeError)
	assert.Equal(t, "s3", msg.RequestID)
}

func TestHandler_InvalidMessages(t *testing.T) {
	ctx, conn, _ := dial(t)
	hello(t, ctx, conn, "")

	cases := []struct {
		typ  string
		data any
		code string
	}{
		{TypeQuickFilter, QuickFilterData{Key: "nearby"}, "invalid_data"},
		{TypeChip, ChipData{Chip: "HOT"}, "invalid_data"},
		{TypeTriState, TriStateData{Card: "x"}, "invalid_data"},
		{TypeSetView, "not an object", "invalid_data"},
		{TypeSetViewport, map[string]any{"center": map[string]float64{"lat": 120, "lng": 0}}, "invalid_data"},
		{TypeEditPanel, map[string]any{}, "panel_closed"},
		{"teleport", nil, "unknown_type"},
	}
	for _, tc := range cases {
		write(t, ctx, conn, tc.typ, tc.typ, tc.data)
		msg := next(t, ctx, conn, TypeError)
		var e ErrorData
		require.NoError(t, json.Unmarshal(msg.Data, &e))
		assert.Equal(t, tc.typ, msg.RequestID)
		assert.Equal(t, tc.code, e.Code, tc.typ)
	}
}

func TestHandler_DisconnectRemovesSession(t *testing.T) {
	ctx, conn, sessions := dial(t)
	id := hello(t, ctx, conn, "")
	require.NotNil(t, sessions.Get(id))

	conn.Close(websocket.StatusNormalClosure, "bye")
	assert.Eventually(t, func() bool { return sessions.Get(id) == nil }, 5*time.Second, 10*time.Millisecond)
}

func replacedQuery(t *testing.T, ctx context.Context, conn *websocket.Conn) string {
	t.Helper()
	msg := next(t, ctx, conn, TypeReplaceQuery)
	var d ReplaceQueryData
	require.NoError(t, json.Unmarshal(msg.Data, &d))
	return d.Query
}

func TestHandler_ConnectedSessionSurvivesIdleCleanup(t *testing.T) {
	clock := &fakeNow{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	ctx, conn, sessions := dialWith(t, session.Options{
		MaxAge:      time.Hour,
		IdleTimeout: time.Minute,
		Now:         clock.Now,
	})
	id := hello(t, ctx, conn, "")

	write(t, ctx, conn, TypePing, "p1", nil)
	next(t, ctx, conn, TypePong)
	clock.Advance(2 * time.Minute)

	assert.Zero(t, sessions.Cleanup())
	assert.NotNil(t, sessions.Get(id))

	write(t, ctx, conn, TypeSetView, "v1", ViewData{View: filter.ViewCompetition})
	assert.Equal(t, "view=competition", replacedQuery(t, ctx, conn))
}

func TestHandler_ExpiredSessionRequiresHello(t *testing.T) {
	clock := &fakeNow{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	ctx, conn, sessions := dialWith(t, session.Options{
		MaxAge:      time.Hour,
		IdleTimeout: time.Minute,
		Now:         clock.Now,
	})
	first := hello(t, ctx, conn, "")

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, sessions.Cleanup())

	write(t, ctx, conn, TypeSetView, "v1", ViewData{View: filter.ViewCompetition})
	msg := next(t, ctx, conn, TypeError)
	var e ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &e))
	assert.Equal(t, "v1", msg.RequestID)
	assert.Equal(t, "session_expired", e.Code)

	second := hello(t, ctx, conn, "")
	assert.NotEqual(t, first, second)
	write(t, ctx, conn, TypeSetView, "v2", ViewData{View: filter.ViewRegion})
	assert.Equal(t, "view=region", replacedQuery(t, ctx, conn))
}
