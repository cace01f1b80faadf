package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"

	"github.com/meikuraledutech/pipeline"
	"github.com/meikuraledutech/pipeline/backend"
	"github.com/meikuraledutech/pipeline/catalogfile"
	"github.com/meikuraledutech/pipeline/upload"
)

func main() {
	ctx := context.Background()

	catalog, err := pipeline.LoadCatalog(ctx, catalogfile.New("", nil))
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	fmt.Printf("catalog: %d algorithms\n", catalog.Len())

	dir, err := os.MkdirTemp("", "pipeline-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	uploads, err := upload.New(dir, upload.WithPreviewEdge(0))
	if err != nil {
		log.Fatal(err)
	}
	img, err := uploads.Save(ctx, "gradient.png", bytes.NewReader(gradient(1000, 500)))
	if err != nil {
		log.Fatalf("upload: %v", err)
	}
	fmt.Printf("uploaded %s (%gx%g)\n", img.Filename, img.Native.Width, img.Native.Height)

	ed := pipeline.NewEditor(catalog)
	ed.SetInput(img.DataURL, img.Native)

	// 1. Drop two nodes, centred on the drop points.
	gray, err := ed.Drop("grayscale", pipeline.Position{X: 175, Y: 150})
	if err != nil {
		log.Fatal(err)
	}
	roi, err := ed.Drop(pipeline.RegionAlgorithm, pipeline.Position{X: 475, Y: 150})
	if err != nil {
		log.Fatal(err)
	}

	// 2. Drag from the grayscale output port onto the ROI input port.
	if err := ed.BeginConnection(pipeline.PortRef{NodeID: gray.ID, Kind: pipeline.PortOutput}, pipeline.OutputPort(gray)); err != nil {
		log.Fatal(err)
	}
	if p, ok := ed.MoveConnection(pipeline.InputPort(roi)); ok {
		fmt.Println("preview:", p)
	}
	res, edge := ed.ReleaseConnection(&pipeline.PortRef{NodeID: roi.ID, Kind: pipeline.PortInput})
	fmt.Printf("connection %s: %s -> %s\n", res, edge.Source, edge.Target)

	// 3. Select a region on a half-size preview of the image.
	displayed := pipeline.Size{Width: img.Native.Width / 2, Height: img.Native.Height / 2}
	r, err := ed.ApplyRegion(roi.ID, pipeline.Rect{X: 5, Y: 5, Width: 25, Height: 25}, displayed)
	if err != nil {
		log.Fatalf("region: %v", err)
	}
	fmt.Printf("region in image pixels: %+v\n", r)

	for _, d := range ed.Lint() {
		fmt.Println("lint:", d.Code, d.Message)
	}

	// 4. Build the request the backend receives.
	req, err := ed.Request()
	if err != nil {
		log.Fatal(err)
	}
	req.InputImage = req.InputImage[:40] + "..."
	out, _ := json.MarshalIndent(req, "", "  ")
	fmt.Println(string(out))

	// 5. Submit when a backend is configured.
	url := os.Getenv("PIPELINE_BACKEND_URL")
	if url == "" {
		fmt.Println("PIPELINE_BACKEND_URL not set, skipping execution")
		return
	}
	outcome, err := ed.Execute(ctx, backend.New(url))
	if err != nil {
		log.Fatalf("execute: %v", err)
	}
	if outcome.Success {
		fmt.Printf("result: %d bytes\n", len(outcome.Result))
	} else {
		fmt.Println("failed:", outcome.Message)
	}
}

func gradient(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		log.Fatal(err)
	}
	return buf.Bytes()
}
