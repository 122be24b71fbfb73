package tflite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jo-hoe/leafdoctor/internal/backend/inference"
	"github.com/jo-hoe/leafdoctor/internal/backend/preprocessing"
	"github.com/mattn/go-tflite"
)

// Options configures how the model artifact is loaded
type Options struct {
	ModelPath    string
	ImageSize    int
	Classes      int
	Threads      int
	Interpreters int
}

// Classifier runs a TensorFlow Lite model. Interpreters are not safe for
// concurrent use, so each call borrows one from a fixed pool.
type Classifier struct {
	model   *tflite.Model
	options *tflite.InterpreterOptions
	all     []*tflite.Interpreter
	pool    *inference.Pool[*tflite.Interpreter]
	size    int
}

// Load reads the model from disk and prepares the interpreter pool
func Load(opts Options) (*Classifier, error) {
	if opts.Interpreters <= 0 {
		opts.Interpreters = 1
	}
	if opts.Threads <= 0 {
		opts.Threads = 1
	}

	model := tflite.NewModelFromFile(opts.ModelPath)
	if model == nil {
		return nil, fmt.Errorf("failed to load model from %s", opts.ModelPath)
	}

	interpreterOptions := tflite.NewInterpreterOptions()
	interpreterOptions.SetNumThread(opts.Threads)
	interpreterOptions.SetErrorReporter(func(msg string, _ interface{}) {
		slog.Error("tflite: interpreter error", "message", msg)
	}, nil)

	c := &Classifier{
		model:   model,
		options: interpreterOptions,
		size:    opts.ImageSize,
	}

	for i := 0; i < opts.Interpreters; i++ {
		interpreter, err := newInterpreter(model, interpreterOptions, opts)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.all = append(c.all, interpreter)
	}
	c.pool = inference.NewPool(c.all...)

	slog.Info("model loaded",
		"path", opts.ModelPath,
		"image_size", opts.ImageSize,
		"classes", opts.Classes,
		"interpreters", opts.Interpreters,
		"threads", opts.Threads)

	return c, nil
}

func newInterpreter(model *tflite.Model, options *tflite.InterpreterOptions, opts Options) (*tflite.Interpreter, error) {
	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		return nil, fmt.Errorf("failed to create interpreter for %s", opts.ModelPath)
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		return nil, fmt.Errorf("failed to allocate tensors: status %v", status)
	}

	if err := checkInput(interpreter.GetInputTensor(0), opts.ImageSize); err != nil {
		interpreter.Delete()
		return nil, err
	}
	if err := checkOutput(interpreter.GetOutputTensor(0), opts.Classes); err != nil {
		interpreter.Delete()
		return nil, err
	}
	return interpreter, nil
}

func checkInput(input *tflite.Tensor, size int) error {
	if input == nil {
		return fmt.Errorf("model has no input tensor")
	}
	if input.Type() != tflite.Float32 {
		return fmt.Errorf("model input must be float32, got %v", input.Type())
	}
	return inference.CheckInputShape(dims(input), size)
}

func checkOutput(output *tflite.Tensor, classes int) error {
	if output == nil {
		return fmt.Errorf("model has no output tensor")
	}
	if output.Type() != tflite.Float32 {
		return fmt.Errorf("model output must be float32, got %v", output.Type())
	}
	return inference.CheckOutputShape(dims(output), classes)
}

func dims(t *tflite.Tensor) []int {
	shape := make([]int, t.NumDims())
	for i := range shape {
		shape[i] = t.Dim(i)
	}
	return shape
}

// Classify runs one forward pass for a single-image batch
func (c *Classifier) Classify(ctx context.Context, input *preprocessing.Tensor) ([]float32, error) {
	if input.Shape != [4]int{1, c.size, c.size, 3} {
		return nil, fmt.Errorf("input shape %v does not match model input (1,%d,%d,3)", input.Shape, c.size, c.size)
	}

	interpreter, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer c.pool.Release(interpreter)

	if status := interpreter.GetInputTensor(0).CopyFromBuffer(input.Data); status != tflite.OK {
		return nil, fmt.Errorf("failed to copy input tensor: status %v", status)
	}
	if status := interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("model invocation failed: status %v", status)
	}

	raw := interpreter.GetOutputTensor(0).Float32s()
	scores := make([]float32, len(raw))
	copy(scores, raw)
	return scores, nil
}

// Close frees the interpreters and the model. It must not race with Classify.
func (c *Classifier) Close() error {
	for _, interpreter := range c.all {
		interpreter.Delete()
	}
	c.all = nil
	if c.options != nil {
		c.options.Delete()
		c.options = nil
	}
	if c.model != nil {
		c.model.Delete()
		c.model = nil
	}
	return nil
}
