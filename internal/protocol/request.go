package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the top-level key that classifies a request.
type Kind string

const (
	KindAction Kind = "action"
	KindQuery  Kind = "query"
	KindSystem Kind = "system"
)

type Coordinates struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Request is a decoded agent to server message.
type Request struct {
	Kind       Kind
	Name       string
	TargetTile *Coordinates
	Parameters map[string]string
}

type rawCoordinates struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

type rawRequest struct {
	Action     *string           `json:"action"`
	Query      *string           `json:"query"`
	System     *string           `json:"system"`
	TargetTile *rawCoordinates   `json:"targetTile"`
	Parameters map[string]string `json:"parameters"`
}

// DecodeRequest parses one JSON document. The kind comes from the first of the
// action, query and system keys present; the name is lower cased.
func DecodeRequest(b []byte) (*Request, error) {
	var raw rawRequest
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	req := &Request{
		Parameters: raw.Parameters,
	}
	// A target missing either coordinate is no target at all.
	if tt := raw.TargetTile; tt != nil && tt.X != nil && tt.Y != nil {
		req.TargetTile = &Coordinates{X: *tt.X, Y: *tt.Y}
	}
	switch {
	case raw.Action != nil:
		req.Kind, req.Name = KindAction, *raw.Action
	case raw.Query != nil:
		req.Kind, req.Name = KindQuery, *raw.Query
	case raw.System != nil:
		req.Kind, req.Name = KindSystem, *raw.System
	default:
		return nil, fmt.Errorf("%w: no action, query or system key", ErrInvalidFormat)
	}
	req.Name = normalizeName(req.Name)

	return req, nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
