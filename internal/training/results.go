package training

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	colPrecision = "metrics/precision(B)"
	colRecall    = "metrics/recall(B)"
	colMAP50     = "metrics/mAP50(B)"
	colMAP5095   = "metrics/mAP50-95(B)"
)

// Metrics are the box metrics of one training epoch.
type Metrics struct {
	Epoch     int
	Precision float64
	Recall    float64
	MAP50     float64
	MAP50To95 float64
}

// ReadResults parses the trainer's results.csv and returns the last epoch.
func ReadResults(path string) (*Metrics, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return parseResults(file)
}

func parseResults(r io.Reader) (*Metrics, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("results contain no epochs")
	}

	// Column names are right-aligned with padding.
	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[strings.TrimSpace(name)] = i
	}

	last := records[len(records)-1]
	value := func(column string) (float64, error) {
		i, ok := index[column]
		if !ok || i >= len(last) {
			return 0, fmt.Errorf("results missing column %q", column)
		}
		return strconv.ParseFloat(strings.TrimSpace(last[i]), 64)
	}

	m := &Metrics{Epoch: len(records) - 1}
	if i, ok := index["epoch"]; ok && i < len(last) {
		if epoch, err := strconv.Atoi(strings.TrimSpace(last[i])); err == nil {
			m.Epoch = epoch
		}
	}

	for column, dst := range map[string]*float64{
		colPrecision: &m.Precision,
		colRecall:    &m.Recall,
		colMAP50:     &m.MAP50,
		colMAP5095:   &m.MAP50To95,
	} {
		v, err := value(column)
		if err != nil {
			return nil, err
		}
		*dst = v
	}
	return m, nil
}
