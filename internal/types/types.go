package types

import "github.com/DoyleJ11/stars-party/internal/view"

// ClientMessage is a gesture frame from the browser page.
type ClientMessage struct {
	Type    string `json:"type"` // "pick" | "target" | "sync" | "filter" | "confirm" | "dismiss"
	Name    string `json:"name,omitempty"`
	Slot    *int   `json:"slot,omitempty"`
	Query   string `json:"query,omitempty"`
	Yes     bool   `json:"yes,omitempty"`
	ToastID string `json:"toast_id,omitempty"`
}

// ServerMessage is pushed to the browser page.
type ServerMessage struct {
	Type    string     `json:"type"` // "view" | "error"
	Version int        `json:"version,omitempty"`
	View    *view.Page `json:"view,omitempty"`
	HTML    string     `json:"html,omitempty"`
	Error   string     `json:"error,omitempty"`
}
