package dataset

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

var imageExtensions = map[string]bool{".jpg": true, ".png": true}

const labelExtension = ".txt"

// Advice grades the total number of images in a dataset.
type Advice int

const (
	AdviceEmpty Advice = iota
	AdviceVerySmall
	AdviceAdequate
	AdviceGood
)

func (a Advice) String() string {
	switch a {
	case AdviceEmpty:
		return "No images found! Add images to get started."
	case AdviceVerySmall:
		return "Dataset is very small. Collect more images for better accuracy."
	case AdviceAdequate:
		return "Dataset size is adequate. More images will improve accuracy."
	default:
		return "Dataset size is good!"
	}
}

// RecommendedSizes lists dataset sizes per split for empty datasets.
var RecommendedSizes = []string{
	"Minimum: 100 images (train), 20 (val), 20 (test)",
	"Good: 500 images (train), 100 (val), 100 (test)",
	"Excellent: 1000+ images (train), 200+ (val), 200+ (test)",
}

// LabelIssue is a malformed line in a label file.
type LabelIssue struct {
	File   string
	Line   int
	Reason string
}

func (i LabelIssue) String() string {
	return fmt.Sprintf("%s:%d: %s", i.File, i.Line, i.Reason)
}

type SplitReport struct {
	Name          string
	Images        int
	Labels        int
	MissingLabels []string // image stems without a label file
	MissingImages []string // label stems without an image
	Issues        []LabelIssue
}

// Paired reports whether the split has images and every image has exactly
// one label.
func (s SplitReport) Paired() bool {
	return s.Images > 0 && len(s.MissingLabels) == 0 && len(s.MissingImages) == 0
}

type Report struct {
	Splits      []SplitReport
	TotalImages int
	TotalLabels int
}

func (r *Report) Advice() Advice {
	switch {
	case r.TotalImages == 0:
		return AdviceEmpty
	case r.TotalImages < 100:
		return AdviceVerySmall
	case r.TotalImages < 500:
		return AdviceAdequate
	default:
		return AdviceGood
	}
}

// Issues returns the malformed label lines of every split.
func (r *Report) Issues() []LabelIssue {
	var issues []LabelIssue
	for _, s := range r.Splits {
		issues = append(issues, s.Issues...)
	}
	return issues
}

// Validate scans every split under root concurrently. classes bounds the
// class ids accepted in label files; zero disables the bound. Missing split
// directories count as empty.
func Validate(ctx context.Context, root string, classes int) (*Report, error) {
	reports := make([]SplitReport, len(Splits))

	g, ctx := errgroup.WithContext(ctx)
	for i, split := range Splits {
		g.Go(func() error {
			report, err := validateSplit(ctx, root, split, classes)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r := &Report{Splits: reports}
	for _, s := range reports {
		r.TotalImages += s.Images
		r.TotalLabels += s.Labels
	}
	return r, nil
}

func validateSplit(ctx context.Context, root, split string, classes int) (SplitReport, error) {
	report := SplitReport{Name: split}

	images, imageCount, err := listStems(ImageDir(root, split), func(ext string) bool { return imageExtensions[ext] })
	if err != nil {
		return report, err
	}
	labels, labelCount, err := listStems(LabelDir(root, split), func(ext string) bool { return ext == labelExtension })
	if err != nil {
		return report, err
	}

	report.Images = imageCount
	report.Labels = labelCount

	for stem := range images {
		if _, ok := labels[stem]; !ok {
			report.MissingLabels = append(report.MissingLabels, stem)
		}
	}
	for stem, name := range labels {
		if _, ok := images[stem]; !ok {
			report.MissingImages = append(report.MissingImages, stem)
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		issues, err := checkLabelFile(filepath.Join(LabelDir(root, split), name), classes)
		if err != nil {
			return report, err
		}
		report.Issues = append(report.Issues, issues...)
	}

	sort.Strings(report.MissingLabels)
	sort.Strings(report.MissingImages)
	sort.Slice(report.Issues, func(i, j int) bool {
		if report.Issues[i].File != report.Issues[j].File {
			return report.Issues[i].File < report.Issues[j].File
		}
		return report.Issues[i].Line < report.Issues[j].Line
	})
	return report, nil
}

// listStems maps file stems to file names for the entries of dir whose
// extension is accepted, and counts those files. Extensions are matched
// case-sensitively; a.jpg and a.png are two files sharing one stem.
func listStems(dir string, accept func(ext string) bool) (map[string]string, int, error) {
	stems := make(map[string]string)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return stems, 0, nil
		}
		return nil, 0, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if !accept(ext) {
			continue
		}
		count++
		stems[strings.TrimSuffix(entry.Name(), ext)] = entry.Name()
	}
	return stems, count, nil
}

func checkLabelFile(path string, classes int) ([]LabelIssue, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var issues []LabelIssue
	scanner := bufio.NewScanner(file)
	for n := 1; scanner.Scan(); n++ {
		if err := CheckLabelLine(scanner.Text(), classes); err != nil {
			issues = append(issues, LabelIssue{File: path, Line: n, Reason: err.Error()})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return issues, nil
}

// CheckLabelLine validates one "<class> <x_center> <y_center> <width> <height>"
// line. Blank lines and '#' comments are accepted.
func CheckLabelLine(line string, classes int) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	fields := strings.Fields(line)
	if len(fields) != 5 {
		return fmt.Errorf("expected 5 fields, got %d", len(fields))
	}

	class, err := strconv.Atoi(fields[0])
	if err != nil || class < 0 {
		return fmt.Errorf("invalid class %q", fields[0])
	}
	if classes > 0 && class >= classes {
		return fmt.Errorf("class %d out of range (nc=%d)", class, classes)
	}

	for _, field := range fields[1:] {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return fmt.Errorf("invalid coordinate %q", field)
		}
		if v < 0 || v > 1 {
			return fmt.Errorf("coordinate %s not normalized", field)
		}
	}
	return nil
}
