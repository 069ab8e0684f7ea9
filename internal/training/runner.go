package training

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"
)

var (
	ErrDescriptorNotFound = errors.New("dataset configuration not found")
	ErrModelNotFound      = errors.New("model not found")
)

// Result describes a finished training run.
type Result struct {
	BestWeights string
	Metrics     *Metrics
}

// Runner drives the Ultralytics command line. Trainer output is streamed
// to out.
type Runner struct {
	binary string
	out    io.Writer
}

func NewRunner(binary string, out io.Writer) *Runner {
	return &Runner{binary: binary, out: out}
}

// Train runs "yolo detect train" with c and returns the final epoch metrics.
func (r *Runner) Train(ctx context.Context, c *Config) (*Result, error) {
	if _, err := os.Stat(c.Data); err != nil {
		return nil, fmt.Errorf("%w at %s", ErrDescriptorNotFound, c.Data)
	}
	if err := os.MkdirAll(c.Project, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", c.Project, err)
	}

	args := c.TrainArgs()
	if c.ExtraArgs != "" {
		extra, err := shellwords.Parse(c.ExtraArgs)
		if err != nil {
			return nil, fmt.Errorf("invalid extra trainer arguments: %w", err)
		}
		args = append(args, extra...)
	}

	if err := r.run(ctx, args...); err != nil {
		return nil, fmt.Errorf("training failed: %w", err)
	}

	metrics, err := ReadResults(filepath.Join(c.RunDir(), "results.csv"))
	if err != nil {
		return nil, err
	}
	return &Result{BestWeights: c.BestWeights(), Metrics: metrics}, nil
}

// Validate runs "yolo detect val" for weights against the dataset descriptor.
func (r *Runner) Validate(ctx context.Context, weights, data string) error {
	if _, err := os.Stat(weights); err != nil {
		return fmt.Errorf("%w at %s", ErrModelNotFound, weights)
	}
	if _, err := os.Stat(data); err != nil {
		return fmt.Errorf("%w at %s", ErrDescriptorNotFound, data)
	}
	if err := r.run(ctx, "detect", "val", arg("model", weights), arg("data", data)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// Export converts weights to ONNX and installs the result at dest.
func (r *Runner) Export(ctx context.Context, weights string, imgsz int, dest string) error {
	if _, err := os.Stat(weights); err != nil {
		return fmt.Errorf("%w at %s", ErrModelNotFound, weights)
	}
	if err := r.run(ctx, "export", arg("model", weights), arg("format", "onnx"), arg("imgsz", strconv.Itoa(imgsz))); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	exported := strings.TrimSuffix(weights, filepath.Ext(weights)) + ".onnx"
	if exported == dest {
		return nil
	}
	return copyFile(exported, dest)
}

func (r *Runner) run(ctx context.Context, args ...string) error {
	fmt.Fprintf(r.out, "Running: %s %s\n", r.binary, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, r.binary, args...)
	// Cancellation interrupts the trainer instead of killing it.
	cmd.Cancel = func() error {
		if runtime.GOOS == "windows" {
			return cmd.Process.Kill()
		}
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.Stdout = r.out
	cmd.Stderr = r.out
	return cmd.Run()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("exported model missing: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
