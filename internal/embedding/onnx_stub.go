//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

var errONNXUnavailable = errors.New("onnx provider needs a cgo build with onnxruntime installed")

// ONNXEmbedder is unavailable without cgo; every method reports that.
type ONNXEmbedder struct{}

func NewONNXEmbedder(string, int, int) (*ONNXEmbedder, error) { return nil, errONNXUnavailable }

func (*ONNXEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errONNXUnavailable
}
func (*ONNXEmbedder) Dimensions() int { return 0 }
func (*ONNXEmbedder) Model() string   { return "onnx" }
func (*ONNXEmbedder) Close() error    { return nil }
