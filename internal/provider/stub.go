package provider

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"os"

	_ "image/gif"
	_ "image/jpeg"
)

// StubName is the reserved provider name for the local deterministic backend.
const StubName = "stub"

const stubCanvasSize = 64

// Stub is a local backend for development and tests. Editing operations
// re-encode the input with a deterministic pixel overlay so the output is a
// valid image with different bytes; generation renders a solid canvas seeded
// from the prompt.
type Stub struct{}

// NewStub constructs the local deterministic backend.
func NewStub() *Stub { return &Stub{} }

// Name implements Provider.
func (s *Stub) Name() string { return StubName }

// Invoke implements Provider.
func (s *Stub) Invoke(_ context.Context, req Request) (Result, error) {
	var (
		output []byte
		err    error
	)
	if req.InputRef == "" {
		output, err = s.generate(req.Prompt)
	} else {
		output, err = s.transform(req.InputRef)
	}
	if err != nil {
		return Result{}, fmt.Errorf("provider %s: %w", StubName, err)
	}
	outputRef, err := writeOutput(req, StubName, output)
	if err != nil {
		return Result{}, fmt.Errorf("provider %s: %w", StubName, err)
	}
	return Result{Success: true, OutputRef: outputRef, Detail: "stub transformation"}, nil
}

// HealthCheck implements Provider; the stub is always ready.
func (s *Stub) HealthCheck(context.Context) error { return nil }

func (s *Stub) transform(inputRef string) ([]byte, error) {
	file, err := os.Open(inputRef)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	src, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}

	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.Set(x, y, src.At(x, y))
		}
	}
	// Stamp the corner pixel so the output never byte-matches the input.
	dst.Set(bounds.Min.X, bounds.Min.Y, color.RGBA{R: 0xde, G: 0xad, B: 0xbe, A: 0xff})

	return encodePNG(dst)
}

func (s *Stub) generate(prompt string) ([]byte, error) {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(prompt))
	seed := hasher.Sum32()

	fill := color.RGBA{
		R: uint8(seed),
		G: uint8(seed >> 8),
		B: uint8(seed >> 16),
		A: 0xff,
	}
	canvas := image.NewRGBA(image.Rect(0, 0, stubCanvasSize, stubCanvasSize))
	for y := 0; y < stubCanvasSize; y++ {
		for x := 0; x < stubCanvasSize; x++ {
			canvas.Set(x, y, fill)
		}
	}
	return encodePNG(canvas)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
