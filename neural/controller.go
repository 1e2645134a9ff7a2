package neural

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync/atomic"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

// NumOutputs is the controller output size: speed command, steering command.
const NumOutputs = 2

// structuralChance is the per-mutation probability of resizing a hidden layer.
const structuralChance = 0.05

var (
	// ErrArchitecture is returned for layer size lists that cannot form a network.
	ErrArchitecture = errors.New("neural: invalid architecture")

	// ErrArchitectureMismatch is returned when weight arrays do not fit the declared sizes.
	ErrArchitectureMismatch = errors.New("neural: weights do not match architecture")
)

// versionSeq hands out controller versions. Versions are unique across all
// controllers, so (sizes, versions) identifies a set of weights exactly.
var versionSeq atomic.Uint64

func nextVersion() uint64 {
	return versionSeq.Add(1)
}

// Controller is a dense feed-forward network with tanh hidden layers and a
// linear output layer.
//
// Weights[i] is row-major with Sizes[i+1] rows and Sizes[i] columns.
type Controller struct {
	Sizes   []int
	Weights [][]float64
	Biases  [][]float64

	version uint64
}

// NewController creates a controller with weights drawn from
// N(0, initStd/sqrt(fan_in)) and biases from N(0, 0.5*std).
func NewController(rng *rand.Rand, sizes []int, initStd float64) (*Controller, error) {
	if err := validateSizes(sizes); err != nil {
		return nil, err
	}
	c := &Controller{
		Sizes:   append([]int(nil), sizes...),
		Weights: make([][]float64, len(sizes)-1),
		Biases:  make([][]float64, len(sizes)-1),
		version: nextVersion(),
	}
	for l := 0; l < len(sizes)-1; l++ {
		in, out := sizes[l], sizes[l+1]
		std := initStd / math.Sqrt(float64(in))
		w := make([]float64, out*in)
		for i := range w {
			w[i] = rng.NormFloat64() * std
		}
		b := make([]float64, out)
		for i := range b {
			b[i] = rng.NormFloat64() * 0.5 * std
		}
		c.Weights[l] = w
		c.Biases[l] = b
	}
	return c, nil
}

// FromLayers builds a controller from explicit weight and bias arrays.
func FromLayers(sizes []int, weights, biases [][]float64) (*Controller, error) {
	if err := validateSizes(sizes); err != nil {
		return nil, err
	}
	if len(weights) != len(sizes)-1 || len(biases) != len(sizes)-1 {
		return nil, fmt.Errorf("%w: %d layers declared, %d weight and %d bias arrays",
			ErrArchitectureMismatch, len(sizes)-1, len(weights), len(biases))
	}
	c := &Controller{
		Sizes:   append([]int(nil), sizes...),
		Weights: make([][]float64, len(weights)),
		Biases:  make([][]float64, len(biases)),
		version: nextVersion(),
	}
	for l := range weights {
		in, out := sizes[l], sizes[l+1]
		if len(weights[l]) != out*in || len(biases[l]) != out {
			return nil, fmt.Errorf("%w: layer %d wants %dx%d", ErrArchitectureMismatch, l, out, in)
		}
		c.Weights[l] = append([]float64(nil), weights[l]...)
		c.Biases[l] = append([]float64(nil), biases[l]...)
	}
	return c, nil
}

func validateSizes(sizes []int) error {
	if len(sizes) < 2 {
		return fmt.Errorf("%w: need at least 2 layers, got %d", ErrArchitecture, len(sizes))
	}
	for i, s := range sizes {
		if s < 1 {
			return fmt.Errorf("%w: layer %d has size %d", ErrArchitecture, i, s)
		}
	}
	return nil
}

// Version identifies the current weights. It changes on every mutation or resize.
func (c *Controller) Version() uint64 {
	return c.version
}

// InputSize returns the first layer width.
func (c *Controller) InputSize() int {
	return c.Sizes[0]
}

// OutputSize returns the last layer width.
func (c *Controller) OutputSize() int {
	return c.Sizes[len(c.Sizes)-1]
}

// ArchKey returns a string identifying the layer sizes, e.g. "18-20-2".
func (c *Controller) ArchKey() string {
	return SizesKey(c.Sizes)
}

// SizesKey formats a layer size list as a dash-joined key.
func SizesKey(sizes []int) string {
	var sb strings.Builder
	for i, s := range sizes {
		if i > 0 {
			sb.WriteByte('-')
		}
		sb.WriteString(strconv.Itoa(s))
	}
	return sb.String()
}

// SameArchitecture reports whether two controllers have identical layer sizes.
func SameArchitecture(a, b *Controller) bool {
	if len(a.Sizes) != len(b.Sizes) {
		return false
	}
	for i := range a.Sizes {
		if a.Sizes[i] != b.Sizes[i] {
			return false
		}
	}
	return true
}

// ParamCount returns the number of weight and bias scalars.
func (c *Controller) ParamCount() int {
	n := 0
	for l := range c.Weights {
		n += len(c.Weights[l]) + len(c.Biases[l])
	}
	return n
}

// Forward computes the network output. Inputs shorter than the first layer are
// zero-padded; extra inputs are ignored.
func (c *Controller) Forward(inputs []float64) []float64 {
	x := c.fitInput(inputs)
	for l := range c.Weights {
		x = c.layer(l, x)
	}
	return x
}

// Activations returns the output of every layer, input layer included.
func (c *Controller) Activations(inputs []float64) [][]float64 {
	x := c.fitInput(inputs)
	acts := make([][]float64, 0, len(c.Sizes))
	acts = append(acts, x)
	for l := range c.Weights {
		x = c.layer(l, x)
		acts = append(acts, x)
	}
	return acts
}

func (c *Controller) fitInput(inputs []float64) []float64 {
	x := make([]float64, c.Sizes[0])
	copy(x, inputs)
	return x
}

// layer applies W*x + b for layer l, with tanh on all but the last layer.
func (c *Controller) layer(l int, x []float64) []float64 {
	in, out := c.Sizes[l], c.Sizes[l+1]
	y := make([]float64, out)
	copy(y, c.Biases[l])
	blas64.Gemv(blas.NoTrans, 1,
		blas64.General{Rows: out, Cols: in, Stride: in, Data: c.Weights[l]},
		blas64.Vector{N: in, Inc: 1, Data: x},
		1,
		blas64.Vector{N: out, Inc: 1, Data: y},
	)
	if l < len(c.Weights)-1 {
		for i := range y {
			y[i] = math.Tanh(y[i])
		}
	}
	return y
}

// Mutate perturbs each weight and bias with probability rate by N(0, strength).
// The version always advances. With structural set, a hidden layer may also be
// resized by a small amount.
func (c *Controller) Mutate(rng *rand.Rand, rate, strength float64, structural bool) {
	for l := range c.Weights {
		mutateSlice(rng, c.Weights[l], rate, strength)
		mutateSlice(rng, c.Biases[l], rate, strength)
	}
	c.version = nextVersion()

	if !structural || len(c.Sizes) < 3 || rng.Float64() >= structuralChance {
		return
	}
	h := 1 + rng.Intn(len(c.Sizes)-2)
	deltas := [...]int{-2, -1, 1, 2}
	size := c.Sizes[h]
	n := size + deltas[rng.Intn(len(deltas))]
	if n < 1 {
		n = 1
	}
	if n > 2*size {
		n = 2 * size
	}
	if n != size {
		c.resizeHidden(rng, h, n)
		c.version = nextVersion()
	}
}

func mutateSlice(rng *rand.Rand, xs []float64, rate, strength float64) {
	for i := range xs {
		if rng.Float64() < rate {
			xs[i] += rng.NormFloat64() * strength
		}
	}
}

// resizeHidden changes the width of hidden layer h to n neurons.
// Shrinking keeps the lowest indices.
func (c *Controller) resizeHidden(rng *rand.Rand, h, n int) {
	old := c.Sizes[h]
	prev, next := c.Sizes[h-1], c.Sizes[h+1]

	// incoming rows
	inW := c.Weights[h-1]
	inB := c.Biases[h-1]
	if n > old {
		std := 0.1 / math.Sqrt(float64(prev))
		for i := 0; i < (n-old)*prev; i++ {
			inW = append(inW, rng.NormFloat64()*std)
		}
		for i := old; i < n; i++ {
			inB = append(inB, 0)
		}
	} else {
		inW = inW[:n*prev]
		inB = inB[:n]
	}
	c.Weights[h-1] = inW
	c.Biases[h-1] = inB

	// outgoing columns
	c.Weights[h] = resizeColumns(c.Weights[h], next, old, n, func() float64 {
		return rng.NormFloat64() * 0.1
	})
	c.Sizes[h] = n
}

// resizeColumns returns a rows x newCols copy of a rows x oldCols matrix,
// keeping the leading columns and filling new ones from fill.
func resizeColumns(w []float64, rows, oldCols, newCols int, fill func() float64) []float64 {
	out := make([]float64, rows*newCols)
	keep := min(oldCols, newCols)
	for r := 0; r < rows; r++ {
		copy(out[r*newCols:r*newCols+keep], w[r*oldCols:r*oldCols+keep])
		for col := keep; col < newCols; col++ {
			out[r*newCols+col] = fill()
		}
	}
	return out
}

// ResizeInput grows or shrinks the first layer to accept n inputs. Weights for
// retained inputs are preserved. No-op when n already matches.
func (c *Controller) ResizeInput(rng *rand.Rand, n int) error {
	if n < 1 {
		return fmt.Errorf("%w: input size %d", ErrArchitecture, n)
	}
	old := c.Sizes[0]
	if n == old {
		return nil
	}
	std := 0.1 / math.Sqrt(float64(n))
	c.Weights[0] = resizeColumns(c.Weights[0], c.Sizes[1], old, n, func() float64 {
		return rng.NormFloat64() * std
	})
	c.Sizes[0] = n
	c.version = nextVersion()
	return nil
}

// SetLayer replaces the weights and biases of layer l.
func (c *Controller) SetLayer(l int, weights, biases []float64) error {
	if l < 0 || l >= len(c.Weights) {
		return fmt.Errorf("%w: no layer %d", ErrArchitectureMismatch, l)
	}
	in, out := c.Sizes[l], c.Sizes[l+1]
	if len(weights) != out*in || len(biases) != out {
		return fmt.Errorf("%w: layer %d wants %dx%d", ErrArchitectureMismatch, l, out, in)
	}
	copy(c.Weights[l], weights)
	copy(c.Biases[l], biases)
	c.version = nextVersion()
	return nil
}

// Copy returns a deep copy with the same version.
func (c *Controller) Copy() *Controller {
	cp := &Controller{
		Sizes:   append([]int(nil), c.Sizes...),
		Weights: make([][]float64, len(c.Weights)),
		Biases:  make([][]float64, len(c.Biases)),
		version: c.version,
	}
	for l := range c.Weights {
		cp.Weights[l] = append([]float64(nil), c.Weights[l]...)
		cp.Biases[l] = append([]float64(nil), c.Biases[l]...)
	}
	return cp
}

// Flatten returns all weights followed by all biases, layer by layer.
func (c *Controller) Flatten() []float64 {
	out := make([]float64, 0, c.ParamCount())
	for l := range c.Weights {
		out = append(out, c.Weights[l]...)
	}
	for l := range c.Biases {
		out = append(out, c.Biases[l]...)
	}
	return out
}

// Sigmoid maps x to (0, 1).
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
