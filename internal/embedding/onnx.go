//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/lens/pkg/utils"
)

var errONNXClosed = errors.New("onnx embedder is closed")

// ONNXEmbedder runs a local sentence-embedding model through ONNX Runtime. It needs
// CGO and the onnxruntime shared library. Text longer than the token window fails
// with ErrInputTooLong so the resilient wrapper can shorten it.
type ONNXEmbedder struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	model   string
	dim     int
	window  int
	tok     SimpleTokenizer
	// enc aliases the input tensors' backing arrays; output is read after Run.
	enc     *Encoding
	output  *ort.Tensor[float32]
	tensors []interface{ Destroy() error }
}

// NewONNXEmbedder loads modelPath. The model must take input_ids, attention_mask and
// token_type_ids of shape [1, window] and produce a pooled "output" of shape [1, dim].
func NewONNXEmbedder(modelPath string, dim, window int) (*ONNXEmbedder, error) {
	if window <= 0 {
		window = 256
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("init onnx runtime: %w", err)
	}
	e := &ONNXEmbedder{
		model:  "onnx:" + strings.TrimSuffix(filepath.Base(modelPath), filepath.Ext(modelPath)),
		dim:    dim,
		window: window,
	}
	inShape := ort.NewShape(1, int64(window))
	var inputs []ort.ArbitraryTensor
	rows := make([][]int64, 3)
	for i, name := range []string{"input_ids", "attention_mask", "token_type_ids"} {
		t, err := ort.NewEmptyTensor[int64](inShape)
		if err != nil {
			e.destroyTensors()
			return nil, fmt.Errorf("allocate %s: %w", name, err)
		}
		e.tensors = append(e.tensors, t)
		inputs = append(inputs, t)
		rows[i] = t.GetData()
	}
	e.enc = &Encoding{IDs: rows[0], Mask: rows[1], Types: rows[2]}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(dim)))
	if err != nil {
		e.destroyTensors()
		return nil, fmt.Errorf("allocate output: %w", err)
	}
	e.tensors = append(e.tensors, out)
	e.output = out

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		inputs, []ort.ArbitraryTensor{out}, nil)
	if err != nil {
		e.destroyTensors()
		return nil, fmt.Errorf("load onnx model %s: %w", modelPath, err)
	}
	e.session = session
	return e, nil
}

func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n := e.tok.TokenCount(text); n > e.window {
		return nil, fmt.Errorf("%w: %d tokens, window %d", ErrInputTooLong, n, e.window)
	}

	// The tensors are shared, so one inference at a time.
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, errONNXClosed
	}
	e.tok.EncodeInto(text, e.enc)
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}
	vec := make([]float32, e.dim)
	copy(vec, e.output.GetData())
	utils.NormalizeL2(vec)
	return vec, nil
}

func (e *ONNXEmbedder) Dimensions() int { return e.dim }

// Model is "onnx:" plus the model file name without extension.
func (e *ONNXEmbedder) Model() string { return e.model }

// Close releases the session and its tensors. Embed fails afterwards.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	e.destroyTensors()
	return err
}

func (e *ONNXEmbedder) destroyTensors() {
	for _, t := range e.tensors {
		_ = t.Destroy()
	}
	e.tensors = nil
}
