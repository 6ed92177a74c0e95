package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/pixil98/go-gridworld/internal/game"
)

// Response types carried in the responseType field.
const (
	TypeObservation = "observation"
	TypeSuccess     = "success"
	TypeError       = "error"
)

// Response is any server to agent message.
type Response interface {
	Kind() string
}

type Location struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Type string `json:"type"`
}

type Tile struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Type string `json:"type"`
}

type Agent struct {
	AgentID string `json:"agent_id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

type Surroundings struct {
	Tiles  []Tile  `json:"tiles"`
	Agents []Agent `json:"agents"`
}

type Observation struct {
	AgentID         string       `json:"agent_id"`
	CurrentLocation Location     `json:"currentLocation"`
	Surroundings    Surroundings `json:"surroundings"`
	TimeStep        int          `json:"timeStep"`
	ResponseType    string       `json:"responseType"`
}

func (o *Observation) Kind() string { return TypeObservation }

// NewObservation converts a world observation into its wire form.
func NewObservation(obs *game.Observation) *Observation {
	out := &Observation{
		AgentID: obs.AgentID,
		CurrentLocation: Location{
			X:    obs.Position.X,
			Y:    obs.Position.Y,
			Type: obs.Tile.String(),
		},
		Surroundings: Surroundings{
			Tiles:  make([]Tile, 0, len(obs.Tiles)),
			Agents: make([]Agent, 0, len(obs.Agents)),
		},
		TimeStep:     obs.TimeStep,
		ResponseType: TypeObservation,
	}
	for _, t := range obs.Tiles {
		out.Surroundings.Tiles = append(out.Surroundings.Tiles, Tile{X: t.Position.X, Y: t.Position.Y, Type: t.Type.String()})
	}
	for _, a := range obs.Agents {
		out.Surroundings.Agents = append(out.Surroundings.Agents, Agent{AgentID: a.ID, X: a.Position.X, Y: a.Position.Y})
	}
	return out
}

type SuccessResponse struct {
	Message      string            `json:"message"`
	Data         map[string]string `json:"data"`
	ResponseType string            `json:"responseType"`
}

func (r *SuccessResponse) Kind() string { return TypeSuccess }

func NewSuccess(msg string, data map[string]string) *SuccessResponse {
	return &SuccessResponse{Message: msg, Data: data, ResponseType: TypeSuccess}
}

type ErrorResponse struct {
	Error        string `json:"error"`
	ResponseType string `json:"responseType"`
}

func (r *ErrorResponse) Kind() string { return TypeError }

func NewError(msg string) *ErrorResponse {
	return &ErrorResponse{Error: msg, ResponseType: TypeError}
}

// Encode marshals a response into a single JSON document.
func Encode(r Response) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding %s response: %w", r.Kind(), err)
	}
	return b, nil
}

// DecodeResponse parses a server message back into its concrete type, keyed on responseType.
func DecodeResponse(b []byte) (Response, error) {
	var base struct {
		ResponseType string `json:"responseType"`
	}
	if err := json.Unmarshal(b, &base); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	var r Response
	switch base.ResponseType {
	case TypeObservation:
		r = &Observation{}
	case TypeSuccess:
		r = &SuccessResponse{}
	case TypeError:
		r = &ErrorResponse{}
	default:
		return nil, fmt.Errorf("unknown response type %q", base.ResponseType)
	}

	if err := json.Unmarshal(b, r); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", base.ResponseType, err)
	}
	return r, nil
}
