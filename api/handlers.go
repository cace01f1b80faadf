package api

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/pipeline"
	"github.com/meikuraledutech/pipeline/internal/logging"
	"github.com/meikuraledutech/pipeline/upload"
)

func (s *Server) listAlgorithms(c fiber.Ctx) error {
	return c.JSON(s.catalog.All())
}

type uploadResponse struct {
	Success bool `json:"success"`
	upload.Image
}

func (s *Server) uploadImage(c fiber.Ctx) error {
	var sess *Session
	if id := c.Query("session"); id != "" {
		var ok bool
		if sess, ok = s.sessions.Get(id); !ok {
			return c.Status(404).JSON(fiber.Map{"success": false, "error": "session not found"})
		}
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "no file uploaded"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	defer f.Close()

	img, err := s.uploads.Save(c.Context(), fh.Filename, f)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	if sess != nil {
		sess.Editor.SetInput(img.DataURL, img.Native)
		s.log.Info("input image attached", logging.KeySessionID, sess.ID, "filename", img.Filename)
	}
	return c.JSON(uploadResponse{Success: true, Image: img})
}

// executeRequest forwards a client-built request after checking its
// preconditions. Backend failures are passed through with success false.
func (s *Server) executeRequest(c fiber.Ctx) error {
	var req pipeline.Request
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := req.Validate(); err != nil {
		return s.fail(c, err)
	}
	resp, err := s.exec.Execute(c.Context(), req)
	if err != nil {
		return s.fail(c, err)
	}
	if !resp.Success && resp.Error == "" {
		resp.Error = pipeline.DefaultFailureMessage
	}
	return c.JSON(resp)
}

func (s *Server) createSession(c fiber.Ctx) error {
	sess := s.sessions.Create()
	s.log.Info("session created", logging.KeySessionID, sess.ID)
	return c.Status(201).JSON(fiber.Map{"id": sess.ID})
}

// withSession adapts a handler that needs the editor of :id.
func (s *Server) withSession(h func(c fiber.Ctx, e *pipeline.Editor) error) fiber.Handler {
	return func(c fiber.Ctx) error {
		sess, ok := s.sessions.Get(c.Params("id"))
		if !ok {
			return c.Status(404).JSON(fiber.Map{"error": "session not found"})
		}
		return h(c, sess.Editor)
	}
}

func (s *Server) getSession(c fiber.Ctx, e *pipeline.Editor) error {
	return c.JSON(e.State())
}

func (s *Server) deleteSession(c fiber.Ctx) error {
	if !s.sessions.Delete(c.Params("id")) {
		return c.Status(404).JSON(fiber.Map{"error": "session not found"})
	}
	return c.SendStatus(204)
}

// formValues flattens a JSON object of form inputs to the raw strings the
// parameter schemas expect.
func formValues(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch x := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = x
		case float64:
			out[k] = strconv.FormatFloat(x, 'g', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(x)
		default:
			out[k] = fmt.Sprint(x)
		}
	}
	return out
}

// queryFloat reads a numeric query parameter; missing or malformed is zero.
func queryFloat(c fiber.Ctx, key string) float64 {
	f, err := strconv.ParseFloat(c.Query(key), 64)
	if err != nil {
		return 0
	}
	return f
}

var errNoGesture = errors.New("no gesture in progress")
