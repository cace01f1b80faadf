package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/pipeline"
	"github.com/meikuraledutech/pipeline/internal/logging"
)

type dropBody struct {
	Algorithm string  `json:"algorithm"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

func (s *Server) dropNode(c fiber.Ctx, e *pipeline.Editor) error {
	var body dropBody
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	n, err := e.Drop(body.Algorithm, pipeline.Position{X: body.X, Y: body.Y})
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(201).JSON(n)
}

func (s *Server) clearNodes(c fiber.Ctx, e *pipeline.Editor) error {
	e.Clear()
	return c.SendStatus(204)
}

func (s *Server) removeNode(c fiber.Ctx, e *pipeline.Editor) error {
	if !e.RemoveNode(c.Params("nodeId")) {
		return c.Status(404).JSON(fiber.Map{"error": "node not found"})
	}
	return c.SendStatus(204)
}

type pointerBody struct {
	Phase string  `json:"phase"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

func (s *Server) dragNode(c fiber.Ctx, e *pipeline.Editor) error {
	var body pointerBody
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	at := pipeline.Position{X: body.X, Y: body.Y}
	switch body.Phase {
	case "start":
		if err := e.StartNodeDrag(c.Params("nodeId"), at); err != nil {
			return s.fail(c, err)
		}
		return c.SendStatus(204)
	case "move":
		paths, ok := e.DragNode(at)
		if !ok {
			return c.Status(409).JSON(fiber.Map{"error": errNoGesture.Error()})
		}
		return c.JSON(fiber.Map{"paths": paths})
	case "end":
		e.EndNodeDrag()
		return c.SendStatus(204)
	default:
		return c.Status(400).JSON(fiber.Map{"error": "unknown phase " + body.Phase})
	}
}

type selectionBody struct {
	Node *string `json:"node"`
}

func (s *Server) selectNode(c fiber.Ctx, e *pipeline.Editor) error {
	var body selectionBody
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	id := ""
	if body.Node != nil {
		id = *body.Node
	}
	e.Select(id)
	return c.SendStatus(204)
}

func (s *Server) backgroundClick(c fiber.Ctx, e *pipeline.Editor) error {
	e.BackgroundClick()
	return c.SendStatus(204)
}

type connectionBody struct {
	Phase string  `json:"phase"`
	Node  string  `json:"node"`
	Port  string  `json:"port"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

func (s *Server) connection(c fiber.Ctx, e *pipeline.Editor) error {
	var body connectionBody
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	at := pipeline.Position{X: body.X, Y: body.Y}

	switch body.Phase {
	case "start":
		kind, err := pipeline.ParsePortKind(body.Port)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		if err := e.BeginConnection(pipeline.PortRef{NodeID: body.Node, Kind: kind}, at); err != nil {
			return s.fail(c, err)
		}
		return c.SendStatus(204)
	case "move":
		p, ok := e.MoveConnection(at)
		if !ok {
			return c.Status(409).JSON(fiber.Map{"error": errNoGesture.Error()})
		}
		return c.JSON(fiber.Map{"preview": p})
	case "release":
		var over *pipeline.PortRef
		if body.Node != "" {
			kind, err := pipeline.ParsePortKind(body.Port)
			if err != nil {
				return c.Status(400).JSON(fiber.Map{"error": err.Error()})
			}
			over = &pipeline.PortRef{NodeID: body.Node, Kind: kind}
		}
		res, edge := e.ReleaseConnection(over)
		if res == pipeline.Committed {
			s.log.Debug("edge committed", logging.KeyEdgeID, edge.ID)
			return c.JSON(fiber.Map{"resolution": res, "edge": edge})
		}
		return c.JSON(fiber.Map{"resolution": res})
	case "cancel":
		e.CancelConnection()
		return c.SendStatus(204)
	default:
		return c.Status(400).JSON(fiber.Map{"error": "unknown phase " + body.Phase})
	}
}

type edgeBody struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

func (s *Server) addEdge(c fiber.Ctx, e *pipeline.Editor) error {
	var body edgeBody
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	edge, err := e.Connect(body.Source, body.Target)
	if err != nil {
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(201).JSON(edge)
}

func (s *Server) removeEdge(c fiber.Ctx, e *pipeline.Editor) error {
	if !e.RemoveEdge(c.Params("edgeId")) {
		return c.Status(404).JSON(fiber.Map{"error": "edge not found"})
	}
	return c.SendStatus(204)
}

func (s *Server) setParameters(c fiber.Ctx, e *pipeline.Editor) error {
	raw := map[string]any{}
	if err := c.Bind().JSON(&raw); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	p, err := e.ApplyParameters(c.Params("nodeId"), formValues(raw))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"parameters": p})
}

func (s *Server) getRegion(c fiber.Ctx, e *pipeline.Editor) error {
	displayed := pipeline.Size{Width: queryFloat(c, "w"), Height: queryFloat(c, "h")}
	r, err := e.RegionSelection(c.Params("nodeId"), displayed)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"rect": r})
}

type regionBody struct {
	Rect      pipeline.Rect `json:"rect"`
	Displayed pipeline.Size `json:"displayed"`
}

func (s *Server) setRegion(c fiber.Ctx, e *pipeline.Editor) error {
	var body regionBody
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	r, err := e.ApplyRegion(c.Params("nodeId"), body.Rect, body.Displayed)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"region": r})
}

func (s *Server) lint(c fiber.Ctx, e *pipeline.Editor) error {
	st := e.State()
	return c.JSON(fiber.Map{
		"diagnostics": st.Lint,
		"order":       pipeline.ExecutionOrder(st.Nodes, st.Edges),
	})
}

func (s *Server) executeSession(c fiber.Ctx, e *pipeline.Editor) error {
	out, err := e.Execute(c.Context(), s.exec)
	if err != nil {
		return s.fail(c, err)
	}
	s.log.Info("session executed", logging.KeySessionID, c.Params("id"), "success", out.Success)
	return c.JSON(out)
}
