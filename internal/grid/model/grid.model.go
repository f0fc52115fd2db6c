package model

import (
	"encoding/json"
	"errors"
)

// Grid is one stored record. The Grid payload is opaque JSON, passed through
// unchanged.
type Grid struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Grid json.RawMessage `json:"grid"`
}

// Clone returns a copy that shares no memory with g.
func (g Grid) Clone() Grid {
	c := g
	if g.Grid != nil {
		c.Grid = append(json.RawMessage(nil), g.Grid...)
	}
	return c
}

// GridRequest is the body of create and update calls. Presence is tracked per
// field so that an explicit JSON null still counts as supplied.
type GridRequest struct {
	Name    string
	Grid    json.RawMessage
	HasName bool
	HasGrid bool
}

var errNameNotString = errors.New("name must be a string")

// UnmarshalJSON records which keys were present in the object.
func (r *GridRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = GridRequest{}
	if v, ok := raw["name"]; ok {
		if err := json.Unmarshal(v, &r.Name); err != nil {
			return errNameNotString
		}
		r.HasName = true
	}
	if v, ok := raw["grid"]; ok {
		r.Grid = append(json.RawMessage(nil), v...)
		r.HasGrid = true
	}
	return nil
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Change event types published after successful writes.
const (
	GridCreated = "GRID_CREATED"
	GridUpdated = "GRID_UPDATED"
	GridDeleted = "GRID_DELETED"
)

// GridEvent describes one committed change to the collection. Grid is nil for
// deletions. UserID is the authenticated subject that made the change, empty
// when auth is disabled.
type GridEvent struct {
	Type   string `json:"type"`
	GridID string `json:"grid_id"`
	UserID string `json:"user_id,omitempty"`
	Grid   *Grid  `json:"grid,omitempty"`
}
