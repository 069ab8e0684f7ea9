package training

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v2"

	"kidneystone/internal/config"
)

// RunName is the trainer run directory under the project directory.
const RunName = "kidney_stone_yolov8"

// DeviceAuto lets DetectDevice pick between GPU and CPU.
const DeviceAuto = "auto"

// Config holds the hyperparameters passed to the YOLOv8 trainer. Field tags
// double as the trainer's argument names.
type Config struct {
	Model     string `yaml:"model"`
	Data      string `yaml:"data"`
	Epochs    int    `yaml:"epochs"`
	Batch     int    `yaml:"batch"`
	ImgSize   int    `yaml:"imgsz"`
	Patience  int    `yaml:"patience"`
	Project   string `yaml:"project"`
	Name      string `yaml:"name"`
	Device    string `yaml:"device"`
	Workers   int    `yaml:"workers"`
	ExtraArgs string `yaml:"extra_args"`

	// Augmentation
	HSVH      float64 `yaml:"hsv_h"`
	HSVS      float64 `yaml:"hsv_s"`
	HSVV      float64 `yaml:"hsv_v"`
	Degrees   float64 `yaml:"degrees"`
	Translate float64 `yaml:"translate"`
	Scale     float64 `yaml:"scale"`
	FlipUD    float64 `yaml:"flipud"`
	FlipLR    float64 `yaml:"fliplr"`
	Mosaic    float64 `yaml:"mosaic"`

	// Optimization
	Optimizer    string  `yaml:"optimizer"`
	LR0          float64 `yaml:"lr0"`
	LRF          float64 `yaml:"lrf"`
	Momentum     float64 `yaml:"momentum"`
	WeightDecay  float64 `yaml:"weight_decay"`
	WarmupEpochs float64 `yaml:"warmup_epochs"`
	SavePeriod   int     `yaml:"save_period"`
}

func DefaultConfig(cfg *config.Config) *Config {
	return &Config{
		Model:    "yolov8n.pt",
		Data:     cfg.DatasetDescriptor,
		Epochs:   200,
		Batch:    16,
		ImgSize:  640,
		Patience: 50,
		Project:  cfg.ModelsDirectory,
		Name:     RunName,
		Device:   DeviceAuto,

		HSVH:      0.015,
		HSVS:      0.7,
		HSVV:      0.4,
		Degrees:   10.0,
		Translate: 0.1,
		Scale:     0.5,
		FlipUD:    0.5,
		FlipLR:    0.5,
		Mosaic:    1.0,

		Optimizer:    "AdamW",
		LR0:          0.01,
		LRF:          0.01,
		Momentum:     0.937,
		WeightDecay:  0.0005,
		WarmupEpochs: 3,
		SavePeriod:   10,
	}
}

// LoadConfig overlays the YAML file at path onto base. Keys absent from the
// file keep their base values. An empty path returns base unchanged.
func LoadConfig(path string, base *Config) (*Config, error) {
	c := *base
	if path == "" {
		return &c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read training config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse training config %s: %w", path, err)
	}
	return &c, nil
}

// RunDir is where the trainer writes weights and results.
func (c *Config) RunDir() string {
	return filepath.Join(c.Project, c.Name)
}

// BestWeights is the checkpoint with the best validation fitness.
func (c *Config) BestWeights() string {
	return filepath.Join(c.RunDir(), "weights", "best.pt")
}

// TrainArgs renders the configuration as "yolo detect train" arguments.
func (c *Config) TrainArgs() []string {
	args := []string{
		"detect", "train",
		arg("model", c.Model),
		arg("data", c.Data),
		arg("epochs", strconv.Itoa(c.Epochs)),
		arg("batch", strconv.Itoa(c.Batch)),
		arg("imgsz", strconv.Itoa(c.ImgSize)),
		arg("patience", strconv.Itoa(c.Patience)),
		arg("project", c.Project),
		arg("name", c.Name),
		arg("save", "True"),
		arg("exist_ok", "True"),
		arg("augment", "True"),
		arg("hsv_h", formatFloat(c.HSVH)),
		arg("hsv_s", formatFloat(c.HSVS)),
		arg("hsv_v", formatFloat(c.HSVV)),
		arg("degrees", formatFloat(c.Degrees)),
		arg("translate", formatFloat(c.Translate)),
		arg("scale", formatFloat(c.Scale)),
		arg("flipud", formatFloat(c.FlipUD)),
		arg("fliplr", formatFloat(c.FlipLR)),
		arg("mosaic", formatFloat(c.Mosaic)),
		arg("optimizer", c.Optimizer),
		arg("lr0", formatFloat(c.LR0)),
		arg("lrf", formatFloat(c.LRF)),
		arg("momentum", formatFloat(c.Momentum)),
		arg("weight_decay", formatFloat(c.WeightDecay)),
		arg("warmup_epochs", formatFloat(c.WarmupEpochs)),
		arg("val", "True"),
		arg("save_period", strconv.Itoa(c.SavePeriod)),
		arg("verbose", "True"),
	}
	if c.Device != "" && c.Device != DeviceAuto {
		args = append(args, arg("device", c.Device))
	}
	if c.Workers > 0 {
		args = append(args, arg("workers", strconv.Itoa(c.Workers)))
	}
	return args
}

func arg(key, value string) string {
	return key + "=" + value
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
