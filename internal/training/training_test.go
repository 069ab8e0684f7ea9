package training

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidneystone/internal/config"
)

const sampleResults = `                  epoch,         train/box_loss,         train/cls_loss,   metrics/precision(B),      metrics/recall(B),       metrics/mAP50(B),    metrics/mAP50-95(B)
                      1,                 1.8411,                 3.1022,                0.41235,                0.38512,                0.35121,                0.15432
                      2,                 1.5102,                 2.4481,                0.78213,                0.70155,                0.74502,                0.41876
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DatasetDescriptor: filepath.Join(dir, "data", "kidney_stones.yaml"),
		ModelsDirectory:   filepath.Join(dir, "models"),
	}
}

// fakeYolo installs a shell script standing in for the Ultralytics CLI.
func fakeYolo(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "yolo")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDefaultConfig(t *testing.T) {
	cfg := testConfig(t)
	c := DefaultConfig(cfg)

	assert.Equal(t, "yolov8n.pt", c.Model)
	assert.Equal(t, 200, c.Epochs)
	assert.Equal(t, 16, c.Batch)
	assert.Equal(t, 640, c.ImgSize)
	assert.Equal(t, 50, c.Patience)
	assert.Equal(t, "AdamW", c.Optimizer)
	assert.Equal(t, 0.937, c.Momentum)
	assert.Equal(t, cfg.DatasetDescriptor, c.Data)
	assert.Equal(t, filepath.Join(cfg.ModelsDirectory, RunName, "weights", "best.pt"), c.BestWeights())
}

func TestLoadConfig(t *testing.T) {
	base := DefaultConfig(testConfig(t))

	c, err := LoadConfig("", base)
	require.NoError(t, err)
	assert.Equal(t, base, c)

	path := filepath.Join(t.TempDir(), "train.yaml")
	touch(t, path, "epochs: 50\nmodel: yolov8s.pt\nextra_args: \"cache=True close_mosaic='5'\"\n")

	c, err = LoadConfig(path, base)
	require.NoError(t, err)
	assert.Equal(t, 50, c.Epochs)
	assert.Equal(t, "yolov8s.pt", c.Model)
	assert.Equal(t, 16, c.Batch)
	assert.Equal(t, 200, base.Epochs)

	touch(t, path, "epochz: 50\n")
	_, err = LoadConfig(path, base)
	assert.Error(t, err)
}

func TestApplyDevice(t *testing.T) {
	tests := []struct {
		name    string
		preset  string
		device  Device
		want    string
		batch   int
		workers int
	}{
		{"gpu", DeviceAuto, Device{GPU: true, Cores: 16}, "0", 16, 0},
		{"cpu", DeviceAuto, Device{Cores: 4}, "cpu", cpuBatch, 4},
		{"cpu capped workers", DeviceAuto, Device{Cores: 32}, "cpu", cpuBatch, maxWorkers},
		{"explicit device", "1", Device{}, "1", 16, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig(testConfig(t))
			c.Device = tt.preset
			c.ApplyDevice(tt.device)

			assert.Equal(t, tt.want, c.Device)
			assert.Equal(t, tt.batch, c.Batch)
			assert.Equal(t, tt.workers, c.Workers)
		})
	}
}

func TestDetectDevice_ForceCPU(t *testing.T) {
	d := DetectDevice(true)
	assert.False(t, d.GPU)
}

func TestTrainArgs(t *testing.T) {
	c := DefaultConfig(testConfig(t))
	args := c.TrainArgs()

	assert.Equal(t, []string{"detect", "train"}, args[:2])
	assert.Contains(t, args, "epochs=200")
	assert.Contains(t, args, "hsv_h=0.015")
	assert.Contains(t, args, "weight_decay=0.0005")
	assert.Contains(t, args, "name="+RunName)
	for _, a := range args {
		assert.False(t, strings.HasPrefix(a, "device="), "auto device must not be passed")
	}

	c.ApplyDevice(Device{Cores: 2})
	assert.Contains(t, c.TrainArgs(), "device=cpu")
	assert.Contains(t, c.TrainArgs(), "workers=2")
}

func TestParseResults(t *testing.T) {
	m, err := parseResults(strings.NewReader(sampleResults))
	require.NoError(t, err)

	assert.Equal(t, 2, m.Epoch)
	assert.Equal(t, 0.78213, m.Precision)
	assert.Equal(t, 0.70155, m.Recall)
	assert.Equal(t, 0.74502, m.MAP50)
	assert.Equal(t, 0.41876, m.MAP50To95)

	_, err = parseResults(strings.NewReader("epoch,metrics/recall(B)\n"))
	assert.Error(t, err)

	_, err = parseResults(strings.NewReader("epoch,metrics/recall(B)\n1,0.5\n"))
	assert.Error(t, err)
}

func TestRunner_Train(t *testing.T) {
	c := DefaultConfig(testConfig(t))
	c.ExtraArgs = "cache=True"
	var out bytes.Buffer
	runner := NewRunner(fakeYolo(t, `echo "trainer $@"`), &out)

	_, err := runner.Train(context.Background(), c)
	assert.ErrorIs(t, err, ErrDescriptorNotFound)

	touch(t, c.Data, "nc: 1\n")
	touch(t, filepath.Join(c.RunDir(), "results.csv"), sampleResults)

	result, err := runner.Train(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, c.BestWeights(), result.BestWeights)
	assert.Equal(t, 0.74502, result.Metrics.MAP50)
	assert.Contains(t, out.String(), "trainer detect train")
	assert.Contains(t, out.String(), "cache=True")
}

func TestRunner_Failure(t *testing.T) {
	c := DefaultConfig(testConfig(t))
	touch(t, c.Data, "nc: 1\n")
	runner := NewRunner(fakeYolo(t, "echo boom >&2\nexit 3"), &bytes.Buffer{})

	_, err := runner.Train(context.Background(), c)
	assert.ErrorContains(t, err, "training failed")
}

func TestRunner_ValidateAndExport(t *testing.T) {
	dir := t.TempDir()
	weights := filepath.Join(dir, "weights", "best.pt")
	data := filepath.Join(dir, "kidney_stones.yaml")
	dest := filepath.Join(dir, "models", "kidney_stone_yolov8.onnx")

	var out bytes.Buffer
	runner := NewRunner(fakeYolo(t, `echo "yolo $@"`), &out)

	assert.ErrorIs(t, runner.Validate(context.Background(), weights, data), ErrModelNotFound)
	assert.ErrorIs(t, runner.Export(context.Background(), weights, 640, dest), ErrModelNotFound)

	touch(t, weights, "pt")
	touch(t, data, "nc: 1\n")
	require.NoError(t, runner.Validate(context.Background(), weights, data))
	assert.Contains(t, out.String(), "yolo detect val model="+weights)

	touch(t, filepath.Join(dir, "weights", "best.onnx"), "onnx")
	require.NoError(t, runner.Export(context.Background(), weights, 640, dest))

	installed, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "onnx", string(installed))
	assert.Contains(t, out.String(), "format=onnx")
}
