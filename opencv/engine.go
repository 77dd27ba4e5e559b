// Package opencv - gocv-backed darknet engine, preprocessing, suppression and display.
package opencv

import (
	"context"
	"sync"

	"github.com/nvr-ai/go-objdetect/inference"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"
)

func init() {
	inference.Register(inference.EngineDarknet, func(src inference.ModelSource, opts inference.Options) (inference.Engine, error) {
		return NewDarknet(src, opts)
	})
}

// Darknet runs darknet .cfg/.weights networks with the OpenCV DNN module.
//
// A gocv Net is not safe for concurrent SetInput/Forward, so Forward is
// serialized.
type Darknet struct {
	mu          sync.Mutex
	net         gocv.Net
	outputNames []string
	closed      bool
}

// NewDarknet loads a darknet network from memory.
//
// Arguments:
//   - src: Topology holds the .cfg text and Weights the .weights bytes.
//   - opts: Backend and Target select the preferable DNN backend and device;
//     empty values select the OpenCV backend on the CPU.
//
// Returns:
//   - *Darknet: The engine.
//   - error: inference.ErrResource if the network cannot be loaded.
func NewDarknet(src inference.ModelSource, opts inference.Options) (*Darknet, error) {
	if len(src.Topology) == 0 || len(src.Weights) == 0 {
		return nil, errors.Wrap(inference.ErrResource, "darknet needs both a config and weights")
	}

	net, err := gocv.ReadNetBytes("darknet", src.Weights, src.Topology)
	if err != nil {
		return nil, errors.Wrapf(inference.ErrResource, "read darknet network: %v", err)
	}
	if net.Empty() {
		net.Close()
		return nil, errors.Wrap(inference.ErrResource, "darknet network is empty")
	}

	if err := setPreferences(&net, opts); err != nil {
		net.Close()
		return nil, err
	}

	names := outputLayerNames(&net)
	if len(names) == 0 {
		net.Close()
		return nil, errors.Wrap(inference.ErrResource, "network has no unconnected output layers")
	}

	return &Darknet{net: net, outputNames: names}, nil
}

func setPreferences(net *gocv.Net, opts inference.Options) error {
	backend := gocv.NetBackendOpenCV
	if opts.Backend != "" {
		backend = gocv.ParseNetBackend(opts.Backend)
	}
	target := gocv.NetTargetCPU
	if opts.Target != "" {
		target = gocv.ParseNetTarget(opts.Target)
	}

	if err := net.SetPreferableBackend(backend); err != nil {
		return errors.Wrapf(err, "set backend %q", opts.Backend)
	}
	if err := net.SetPreferableTarget(target); err != nil {
		return errors.Wrapf(err, "set target %q", opts.Target)
	}
	return nil
}

// outputLayerNames returns the names of the layers whose outputs are not
// consumed by any other layer. Layer ids are 1-based indices into
// GetLayerNames.
func outputLayerNames(net *gocv.Net) []string {
	layers := net.GetLayerNames()
	ids := net.GetUnconnectedOutLayers()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if id >= 1 && id <= len(layers) {
			names = append(names, layers[id-1])
		}
	}
	return names
}

// Forward runs the network on blob.
//
// Arguments:
//   - ctx: Checked before and after the forward pass, which cannot be
//     interrupted.
//   - blob: A (1, 3, H, W) float32 blob.
//
// Returns:
//   - []*tensor.Dense: One tensor per output layer, in OutputNames order.
//   - error: If the engine is closed, ctx is done, or the blob is invalid.
func (d *Darknet) Forward(ctx context.Context, blob *tensor.Dense) ([]*tensor.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input, err := TensorToMat(blob)
	if err != nil {
		return nil, err
	}
	defer input.Close()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errors.New("darknet engine is closed")
	}

	d.net.SetInput(input, "")
	mats := d.net.ForwardLayers(d.outputNames)
	defer func() {
		for _, m := range mats {
			m.Close()
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outputs := make([]*tensor.Dense, 0, len(mats))
	for i, m := range mats {
		t, err := MatToTensor(m)
		if err != nil {
			return nil, errors.Wrapf(err, "output %s", d.outputNames[i])
		}
		outputs = append(outputs, t)
	}
	return outputs, nil
}

// OutputNames returns the names of the unconnected output layers.
func (d *Darknet) OutputNames() []string {
	return append([]string(nil), d.outputNames...)
}

// Close releases the network. It is safe to call more than once.
func (d *Darknet) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.net.Close()
}
