// Package wire defines the WebSocket protocol for the dashboard.
package wire

import (
	"encoding/json"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/filter"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
)

// Client message types.
const (
	TypeHello          = "hello"
	TypeUpdateFilters  = "update_filters"
	TypeOpenPanel      = "open_panel"
	TypeEditPanel      = "edit_panel"
	TypeCommitPanel    = "commit_panel"
	TypeCancelPanel    = "cancel_panel"
	TypeQuickFilter    = "quick_filter"
	TypeChip           = "chip"
	TypeTriState       = "tri_state"
	TypeSetRange       = "set_range"
	TypeToggleMallTag  = "toggle_mall_tag"
	TypeToggleFavorite = "toggle_favorite"
	TypeSearch         = "search"
	TypeSelectStore    = "select_store"
	TypeSelectMall     = "select_mall"
	TypeSetView        = "set_view"
	TypeSetViewport    = "set_viewport"
	TypeReset          = "reset"
	TypePing           = "ping"
)

// Server message types.
const (
	TypeSession      = "session"
	TypeView         = "view"
	TypeReplaceQuery = "replace_query"
	TypeError        = "error"
	TypePong         = "pong"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"`
	ID   string          `json:"id"` // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// HelloData starts a session. Query is the page's current query string;
// Location is the browser's position when geolocation was granted.
type HelloData struct {
	Query    string        `json:"query"`
	Location *types.LatLng `json:"location,omitempty"`
}

// QuickFilterData is the payload for "quick_filter".
type QuickFilterData struct {
	Key filter.QuickFilter `json:"key"`
}

// ChipData is the payload for "chip" and "toggle_mall_tag".
type ChipData struct {
	Chip string `json:"chip"`
}

// TriStateData names a competition card.
type TriStateData struct {
	Card string `json:"card"`
}

// RangeData is the payload for "set_range".
type RangeData struct {
	Range filter.NewAddedRange `json:"range"`
}

// IDData carries a store or mall id.
type IDData struct {
	ID string `json:"id"`
}

// SearchData is one keystroke in a search box.
type SearchData struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// ViewData is the payload for "set_view".
type ViewData struct {
	View filter.View `json:"view"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// SessionData carries session information.
type SessionData struct {
	SessionID string `json:"session_id"`
}

// DashboardData is a full state push: the store snapshot and what it derives.
type DashboardData struct {
	Snapshot filter.Snapshot `json:"snapshot"`
	Result   filter.Result   `json:"result"`
}

// ReplaceQueryData asks the client to replace (not push) its query string.
type ReplaceQueryData struct {
	Query string `json:"query"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
