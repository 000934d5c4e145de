// Package main provides poolcheck, a command that checks pooling gradients
// against central finite differences.
//
// Usage:
//
//	poolcheck -h 8 -w 8 -c 3 -n 2 -pool 3 -stride 2 -pad 1 -method max
//	poolcheck -device gpu -dtype float -method avg -area valid
//
// The loss is the sum of the pooled output, so the output gradient is a
// vector of ones taken from the Context. poolcheck exits with status 1 when
// the largest relative error exceeds -tol.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"unsafe"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
	"k8s.io/klog/v2"

	"github.com/born-ml/poolcore/compute"
	"github.com/born-ml/poolcore/pooling"
	"github.com/born-ml/poolcore/status"
	"github.com/born-ml/poolcore/tensor"
)

type options struct {
	configPath string
	height     int
	width      int
	channels   int
	batch      int
	pool       int
	stride     int
	pad        int
	method     string
	area       string
	device     string
	dtype      string
	primitives bool
	eps        float64
	tol        float64
	seed       uint64
}

func main() {
	klog.InitFlags(nil)

	var opts options
	flag.StringVar(&opts.configPath, "config", "", "JSON context configuration file")
	flag.IntVar(&opts.height, "h", 8, "input height")
	flag.IntVar(&opts.width, "w", 8, "input width")
	flag.IntVar(&opts.channels, "c", 3, "input channels")
	flag.IntVar(&opts.batch, "n", 2, "batch size")
	flag.IntVar(&opts.pool, "pool", 2, "window size")
	flag.IntVar(&opts.stride, "stride", 2, "stride")
	flag.IntVar(&opts.pad, "pad", 0, "padding on every side")
	flag.StringVar(&opts.method, "method", "max", "pooling method: max or avg")
	flag.StringVar(&opts.area, "area", "window", "average divisor: window or valid")
	flag.StringVar(&opts.device, "device", "cpu", "device: cpu or gpu")
	flag.StringVar(&opts.dtype, "dtype", "double", "data type: float or double")
	flag.BoolVar(&opts.primitives, "primitives", true, "use the accelerated primitive library when available")
	flag.Float64Var(&opts.eps, "eps", 0, "finite difference step (0 picks one for the data type)")
	flag.Float64Var(&opts.tol, "tol", 1e-3, "largest accepted relative error")
	flag.Uint64Var(&opts.seed, "seed", 1, "random seed")
	flag.Parse()
	defer klog.Flush()

	maxErr, err := run(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "poolcheck: %v (code %d)\n", err, status.CodeOf(err))
		klog.Flush()
		os.Exit(1)
	}
	fmt.Printf("max relative error: %.3g\n", maxErr)
	if maxErr > opts.tol {
		fmt.Printf("FAIL: above tolerance %.3g\n", opts.tol)
		klog.Flush()
		os.Exit(1)
	}
	fmt.Println("OK")
}

func run(opts options) (float64, error) {
	cfg := compute.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = compute.LoadConfig(opts.configPath); err != nil {
			return 0, err
		}
	}
	cfg.EnablePrimitives = cfg.EnablePrimitives && opts.primitives

	ctx := compute.NewContext(compute.WithConfig(cfg))
	defer ctx.Close()

	params, err := parseParams(opts)
	if err != nil {
		return 0, err
	}
	op, err := pooling.New(ctx, params)
	if err != nil {
		return 0, err
	}

	deviceType := tensor.CPU
	if opts.device == "gpu" {
		deviceType = tensor.GPU
	}
	dataType := tensor.Double
	if opts.dtype == "float" {
		dataType = tensor.Float
	}
	eps := opts.eps
	switch {
	case eps > 0:
	case dataType == tensor.Float:
		eps = 1e-2
	default:
		eps = 1e-6
	}

	dev, err := ctx.Device(deviceType)
	if err != nil {
		return 0, err
	}
	c := checker{ctx: ctx, op: op, dev: dev, deviceType: deviceType, dataType: dataType}
	defer c.free()

	inShape := tensor.NewShape(opts.height, opts.width, opts.channels, opts.batch)
	outShape, err := op.ForwardShape(inShape)
	if err != nil {
		return 0, err
	}
	klog.V(1).Infof("poolcheck: %s on %s %s, input %s, output %s", params, deviceType, dataType, inShape, outShape)

	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(opts.seed, opts.seed)}
	x := make([]float64, inShape.NumElements())
	for i := range x {
		x[i] = dist.Rand()
	}

	analytic, err := c.gradient(inShape, outShape, x)
	if err != nil {
		return 0, err
	}

	relErr := make([]float64, len(x))
	for i := range x {
		orig := x[i]
		x[i] = orig + eps
		plus, err := c.loss(inShape, outShape, x)
		if err != nil {
			return 0, err
		}
		x[i] = orig - eps
		minus, err := c.loss(inShape, outShape, x)
		if err != nil {
			return 0, err
		}
		x[i] = orig

		numeric := (plus - minus) / (2 * eps)
		relErr[i] = math.Abs(numeric-analytic[i]) / (math.Abs(numeric) + math.Abs(analytic[i]) + 1e-8)
		if relErr[i] > opts.tol {
			klog.V(2).Infof("poolcheck: element %d analytic %.6g numeric %.6g", i, analytic[i], numeric)
		}
	}
	if len(relErr) == 0 {
		return 0, nil
	}
	return floats.Max(relErr), nil
}

func parseParams(opts options) (pooling.Params, error) {
	method, err := pooling.ParseMethod(opts.method)
	if err != nil {
		return pooling.Params{}, err
	}
	area, err := pooling.ParseAreaMode(opts.area)
	if err != nil {
		return pooling.Params{}, err
	}
	p := pooling.Square(opts.pool, opts.stride, opts.pad, method)
	p.Area = area
	return p, nil
}

// checker owns the device tensors of one gradient check.
type checker struct {
	ctx        *compute.Context
	op         *pooling.Pooling
	dev        compute.Device
	deviceType tensor.DeviceType
	dataType   tensor.DataType
	allocated  []unsafe.Pointer
}

func (c *checker) upload(s tensor.Shape, data []float64) (tensor.Tensor, error) {
	raw := encode(data, c.dataType)
	if len(raw) == 0 {
		return tensor.NewTensor(s, c.dataType, c.deviceType, nil, 0), nil
	}
	ptr, err := c.dev.Alloc(len(raw))
	if err != nil {
		return tensor.Tensor{}, err
	}
	c.allocated = append(c.allocated, ptr)
	if err := c.dev.Write(ptr, raw); err != nil {
		return tensor.Tensor{}, err
	}
	return tensor.NewTensor(s, c.dataType, c.deviceType, ptr, len(raw)), nil
}

func (c *checker) download(t tensor.Tensor) ([]float64, error) {
	raw, err := c.dev.Read(t.Memory(), t.ByteSize())
	if err != nil {
		return nil, err
	}
	return decode(raw, c.dataType), nil
}

func (c *checker) free() {
	for _, ptr := range c.allocated {
		c.dev.Free(ptr)
	}
	c.allocated = nil
}

// loss returns the sum of the pooled output of x.
func (c *checker) loss(inShape, outShape tensor.Shape, x []float64) (float64, error) {
	defer c.free()
	input, err := c.upload(inShape, x)
	if err != nil {
		return 0, err
	}
	output, err := c.upload(outShape, make([]float64, outShape.NumElements()))
	if err != nil {
		return 0, err
	}
	if err := c.op.Forward(output, input); err != nil {
		return 0, err
	}
	y, err := c.download(output)
	if err != nil {
		return 0, err
	}
	return floats.Sum(y), nil
}

// gradient returns d loss / d x by running the backward pass on all ones.
func (c *checker) gradient(inShape, outShape tensor.Shape, x []float64) ([]float64, error) {
	defer c.free()
	input, err := c.upload(inShape, x)
	if err != nil {
		return nil, err
	}
	derInput, err := c.upload(inShape, make([]float64, len(x)))
	if err != nil {
		return nil, err
	}
	n := outShape.NumElements()
	ones, err := c.ctx.AllOnes(c.deviceType, c.dataType, n)
	if err != nil {
		return nil, err
	}
	derOutput := tensor.NewTensor(outShape, c.dataType, c.deviceType, ones, n*c.dataType.Size())
	if err := c.op.Backward(derInput, input, derOutput); err != nil {
		return nil, err
	}
	return c.download(derInput)
}

func encode(data []float64, dt tensor.DataType) []byte {
	raw := make([]byte, len(data)*dt.Size())
	for i, v := range data {
		if dt == tensor.Float {
			binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(float32(v)))
		} else {
			binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
		}
	}
	return raw
}

func decode(raw []byte, dt tensor.DataType) []float64 {
	n := len(raw) / dt.Size()
	data := make([]float64, n)
	for i := range data {
		if dt == tensor.Float {
			data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:])))
		} else {
			data[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
		}
	}
	return data
}
