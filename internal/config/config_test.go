package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"PORT", "MODEL_PATH", "CONFIDENCE_THRESHOLD", "ALLOWED_ORIGINS", "DATA_DIR", "MODELS_DIR"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, filepath.Join("models", "kidney_stone_yolov8.onnx"), cfg.ModelPath)
	assert.Equal(t, filepath.Join("models", "yolov8n.onnx"), cfg.FallbackModelPath)
	assert.Equal(t, 0.25, cfg.ConfidenceThreshold)
	assert.Equal(t, 640, cfg.InputSize)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, filepath.Join("data", "kidney_stones.yaml"), cfg.DatasetDescriptor)
	assert.Equal(t, "yolo", cfg.YoloBinary)
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "8081")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.4")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, ,https://scan.example")
	t.Setenv("MODELS_DIR", "weights")
	t.Setenv("MODEL_PATH", "")
	t.Setenv("FORCE_CPU", "true")

	cfg := Load()

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, 0.4, cfg.ConfidenceThreshold)
	assert.Equal(t, []string{"http://localhost:3000", "https://scan.example"}, cfg.AllowedOrigins)
	assert.Equal(t, filepath.Join("weights", "kidney_stone_yolov8.onnx"), cfg.ModelPath)
	assert.True(t, cfg.ForceCPU)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "not-a-port")
	t.Setenv("IOU_THRESHOLD", "high")
	t.Setenv("FORCE_CPU", "maybe")

	cfg := Load()

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, 0.7, cfg.IoUThreshold)
	assert.False(t, cfg.ForceCPU)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("YOLO_BIN", "")
	os.Unsetenv("YOLO_BIN")

	err := os.WriteFile(filepath.Join(dir, ".env"), []byte("YOLO_BIN=/opt/ultralytics/bin/yolo\n"), 0644)
	assert.NoError(t, err)
	t.Cleanup(func() { os.Unsetenv("YOLO_BIN") })

	cfg := Load()

	assert.Equal(t, "/opt/ultralytics/bin/yolo", cfg.YoloBinary)
}
