package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"

	"kidneystone/internal/analysis"
	"kidneystone/internal/config"
	"kidneystone/internal/detection"
	"kidneystone/internal/dto"
	"kidneystone/internal/logger"
	"kidneystone/internal/model"
)

// Detector runs the network over one encoded image. Implementations need
// not be safe for concurrent use; the Manager hands each one to a single
// request at a time.
type Detector interface {
	Detect(imageBytes []byte) (*detection.Scan, error)
	Annotate(imageBytes []byte, stones []analysis.Stone) ([]byte, error)
	Info() detection.ModelInfo
	Close() error
}

// AnalysisSink receives completed analyses for persistence.
type AnalysisSink interface {
	AddAnalysis(item dto.BufferedAnalysis)
}

// Broadcaster pushes analysis summaries to live viewers.
type Broadcaster interface {
	BroadcastJSON(v any) error
}

// AnnotationTask is a finished analysis waiting for its annotated scan.
type AnnotationTask struct {
	Analysis model.Analysis
	Stones   []analysis.Stone
	Image    []byte
}

// Summary is the message sent to live viewers after each analysis.
type Summary struct {
	AnalysisID         string  `json:"analysisId"`
	PatientName        string  `json:"patientName"`
	TotalCount         int     `json:"totalCount"`
	ImageQuality       string  `json:"imageQuality"`
	AnalysisConfidence float64 `json:"analysisConfidence"`
	AnalysisDate       string  `json:"analysisDate"`
	Findings           string  `json:"findings"`
}

type Manager struct {
	detectors   []Detector
	pool        chan Detector
	sink        AnalysisSink
	broadcaster Broadcaster
	logger      *logger.Logger

	processingQueue chan AnnotationTask
	numWorkers      int
	now             func() time.Time

	stopMu  sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewManager starts the annotation workers. detectors may be empty, in which
// case Analyze reports ErrModelNotLoaded.
func NewManager(detectors []Detector, sink AnalysisSink, broadcaster Broadcaster, cfg *config.Config, logger *logger.Logger) *Manager {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}

	m := &Manager{
		detectors:       detectors,
		pool:            make(chan Detector, len(detectors)),
		sink:            sink,
		broadcaster:     broadcaster,
		logger:          logger,
		processingQueue: make(chan AnnotationTask, queueSize),
		numWorkers:      max(cfg.ProcessingWorkers, 1),
		now:             time.Now,
	}

	for _, d := range detectors {
		m.pool <- d
	}

	for i := 0; i < m.numWorkers; i++ {
		m.wg.Add(1)
		go m.processingWorker(i)
	}

	m.logger.Info("Manager started with %d detector(s) and %d worker(s)", len(detectors), m.numWorkers)
	return m
}

// ModelLoaded reports whether at least one detector is available.
func (m *Manager) ModelLoaded() bool {
	return len(m.detectors) > 0
}

// ModelInfo describes the loaded network.
func (m *Manager) ModelInfo() (detection.ModelInfo, bool) {
	if !m.ModelLoaded() {
		return detection.ModelInfo{}, false
	}
	return m.detectors[0].Info(), true
}

// Analyze decodes the request image, runs detection and builds the report.
// Annotation and persistence continue in the background.
func (m *Manager) Analyze(ctx context.Context, req dto.DetectRequest) (*dto.DetectResponse, error) {
	if req.Image == "" {
		return nil, ErrNoImage
	}
	m.stopMu.RLock()
	stopped := m.stopped
	m.stopMu.RUnlock()
	if stopped {
		return nil, ErrStopped
	}
	if !m.ModelLoaded() {
		return nil, ErrModelNotLoaded
	}

	patient := req.PatientName()
	m.logger.Info("Processing detection request for patient: %s", patient)

	imageBytes, err := DecodeBase64Image(req.Image)
	if err != nil {
		return nil, err
	}

	scan, err := m.detect(ctx, imageBytes)
	if err != nil {
		return nil, err
	}

	report := analysis.BuildReport(*scan)
	m.logger.Info("Image quality: %s", report.ImageQuality)

	id := uuid.NewString()
	now := m.now()
	response := dto.NewDetectResponse(id, report, now)

	m.logger.Info("Detection complete: %d stones found with %.1f%% confidence", report.TotalCount(), report.OverallConfidence)

	record := model.Analysis{
		ID:              id,
		PatientName:     patient,
		PatientInfo:     patientJSON(req.PatientInfo),
		ImageDigest:     digest.FromBytes(imageBytes).String(),
		ImageQuality:    report.ImageQuality,
		TotalCount:      report.TotalCount(),
		Confidence:      report.OverallConfidence,
		Findings:        report.Findings,
		Recommendations: report.Recommendations,
		ModelUsed:       dto.ModelUsed,
		Filename:        fmt.Sprintf("%s_%s.jpg", now.Format("2006-01-02_15-04-05"), id[:8]),
		Timestamp:       now,
	}
	m.enqueue(AnnotationTask{Analysis: record, Stones: report.Stones, Image: imageBytes})

	if m.broadcaster != nil {
		err := m.broadcaster.BroadcastJSON(Summary{
			AnalysisID:         id,
			PatientName:        patient,
			TotalCount:         report.TotalCount(),
			ImageQuality:       report.ImageQuality,
			AnalysisConfidence: report.OverallConfidence,
			AnalysisDate:       response.AnalysisDate,
			Findings:           report.Findings,
		})
		if err != nil {
			m.logger.Warning("Failed to broadcast analysis %s: %v", id, err)
		}
	}

	return response, nil
}

// detect borrows a detector from the pool for a single inference call.
func (m *Manager) detect(ctx context.Context, imageBytes []byte) (*detection.Scan, error) {
	var d Detector
	select {
	case d = <-m.pool:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { m.pool <- d }()

	return d.Detect(imageBytes)
}

func (m *Manager) enqueue(task AnnotationTask) {
	m.stopMu.RLock()
	defer m.stopMu.RUnlock()

	if m.stopped {
		m.logger.Warning("Manager stopped, analysis %s not persisted", task.Analysis.ID)
		return
	}

	select {
	case m.processingQueue <- task:
	default:
		m.logger.Warning("Processing queue full, storing analysis %s without annotation", task.Analysis.ID)
		m.store(task, task.Image)
	}
}

// processingWorker annotates queued analyses and hands them to the sink.
func (m *Manager) processingWorker(workerID int) {
	defer m.wg.Done()

	m.logger.Info("Processing worker %d started", workerID)

	for task := range m.processingQueue {
		m.annotate(task, workerID)
	}

	m.logger.Info("Processing worker %d stopped", workerID)
}

func (m *Manager) annotate(task AnnotationTask, workerID int) {
	annotated := task.Image
	if len(m.detectors) > 0 && len(task.Stones) > 0 {
		out, err := m.detectors[workerID%len(m.detectors)].Annotate(task.Image, task.Stones)
		if err != nil {
			m.logger.Error("Failed to annotate analysis %s: %v", task.Analysis.ID, err)
		} else {
			annotated = out
		}
	}
	m.store(task, annotated)
}

func (m *Manager) store(task AnnotationTask, imageBytes []byte) {
	if m.sink == nil {
		return
	}

	stones := make([]model.Stone, 0, len(task.Stones))
	for _, s := range task.Stones {
		stones = append(stones, model.Stone{
			AnalysisID:      task.Analysis.ID,
			StoneIndex:      s.ID,
			Location:        s.Location,
			X:               s.X,
			Y:               s.Y,
			Width:           s.Width,
			Height:          s.Height,
			SizeMM:          s.SizeMM,
			Confidence:      s.Confidence,
			Characteristics: s.Characteristics,
			ClassID:         s.ClassID,
		})
	}

	m.sink.AddAnalysis(dto.BufferedAnalysis{
		Analysis: task.Analysis,
		Stones:   stones,
		Data:     imageBytes,
	})
}

// Stop drains the queue, waits for the workers and releases the detectors.
func (m *Manager) Stop() {
	m.stopMu.Lock()
	if m.stopped {
		m.stopMu.Unlock()
		return
	}
	m.stopped = true
	close(m.processingQueue)
	m.stopMu.Unlock()

	m.wg.Wait()

	for _, d := range m.detectors {
		if err := d.Close(); err != nil {
			m.logger.Error("Failed to close detector: %v", err)
		}
	}
	m.logger.Info("All processing workers stopped")
}

func patientJSON(info map[string]any) string {
	if len(info) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
