package pipeline

import "context"

// Request is the body of POST /api/execute.
type Request struct {
	Nodes      []Node `json:"nodes"`
	Edges      []Edge `json:"edges"`
	InputImage string `json:"inputImage"`
}

// Response is what the processing backend answers.
type Response struct {
	Success bool   `json:"success"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DefaultFailureMessage is used when the backend reports failure without a message.
const DefaultFailureMessage = "unknown error"

// Outcome is an interpreted Response: either a result image reference or a
// failure message.
type Outcome struct {
	Success bool   `json:"success"`
	Result  string `json:"result,omitempty"`
	Message string `json:"message,omitempty"`
}

// Executor submits a request to a processing backend.
type Executor interface {
	Execute(ctx context.Context, req Request) (Response, error)
}

// Build serializes the current graph and the input image reference.
// The graph is passed through as is: cycles, fan-in and islands are the
// backend's concern.
func Build(g *Graph, inputImage string) (Request, error) {
	req := Request{Nodes: g.Nodes(), Edges: g.Edges(), InputImage: inputImage}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate checks the submission preconditions. A missing input image is
// reported before an empty graph.
func (r Request) Validate() error {
	if r.InputImage == "" {
		return ErrMissingInput
	}
	if len(r.Nodes) == 0 {
		return ErrEmptyGraph
	}
	return nil
}

// Interpret turns a backend response into an Outcome.
func Interpret(resp Response) Outcome {
	if resp.Success {
		return Outcome{Success: true, Result: resp.Result}
	}
	msg := resp.Error
	if msg == "" {
		msg = DefaultFailureMessage
	}
	return Outcome{Message: msg}
}
