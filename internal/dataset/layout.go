package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

const (
	DescriptorName  = "kidney_stones.yaml"
	SampleLabelName = "SAMPLE_LABEL_FORMAT.txt"
	ClassName       = "kidney_stone"

	imagesDir = "images"
	labelsDir = "labels"
)

// Splits are the dataset partitions, in the order the trainer reads them.
var Splits = []string{"train", "val", "test"}

// Descriptor is the dataset YAML consumed by the YOLOv8 trainer.
type Descriptor struct {
	Path  string   `yaml:"path"`
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	Test  string   `yaml:"test"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"names"`
}

const sampleLabel = `# YOLOv8 Label Format
# Each line represents one object (kidney stone)
# Format: <class> <x_center> <y_center> <width> <height>
# All values are normalized (0.0 to 1.0)

# Example annotations:
# Class 0 (kidney_stone) at center (0.5, 0.3) with size (0.1, 0.08)
0 0.5 0.3 0.1 0.08

# Another stone at different location
0 0.35 0.6 0.08 0.09

# Notes:
# - x_center: horizontal center position (0=left, 1=right)
# - y_center: vertical center position (0=top, 1=bottom)
# - width: bounding box width as fraction of image width
# - height: bounding box height as fraction of image height
`

// ImageDir returns the image directory of a split.
func ImageDir(root, split string) string {
	return filepath.Join(root, imagesDir, split)
}

// LabelDir returns the label directory of a split.
func LabelDir(root, split string) string {
	return filepath.Join(root, labelsDir, split)
}

// Init creates the images/<split> and labels/<split> directories under root
// and returns them in creation order. Existing directories are kept.
func Init(root string) ([]string, error) {
	var created []string
	for _, dir := range []func(string, string) string{ImageDir, LabelDir} {
		for _, split := range Splits {
			path := dir(root, split)
			if err := os.MkdirAll(path, 0755); err != nil {
				return created, fmt.Errorf("failed to create %s: %w", path, err)
			}
			created = append(created, path)
		}
	}
	return created, nil
}

// NewDescriptor describes the single-class dataset rooted at root.
func NewDescriptor(root string) (*Descriptor, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Descriptor{
		Path:  abs,
		Train: filepath.ToSlash(filepath.Join(imagesDir, "train")),
		Val:   filepath.ToSlash(filepath.Join(imagesDir, "val")),
		Test:  filepath.ToSlash(filepath.Join(imagesDir, "test")),
		NC:    1,
		Names: []string{ClassName},
	}, nil
}

// WriteDescriptor writes d as YAML to path and returns the written content.
func WriteDescriptor(path string, d *Descriptor) ([]byte, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode dataset descriptor: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return data, nil
}

// LoadDescriptor reads a dataset YAML.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if d.NC != len(d.Names) {
		return nil, fmt.Errorf("%s: nc is %d but %d class names are listed", path, d.NC, len(d.Names))
	}
	return &d, nil
}

// WriteSampleAnnotation writes a commented reference label file into
// root/labels and returns its path.
func WriteSampleAnnotation(root string) (string, error) {
	path := filepath.Join(root, labelsDir, SampleLabelName)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(sampleLabel), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
