package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"kidneystone/internal/analysis"
	"kidneystone/internal/config"
	"kidneystone/internal/logger"
	"kidneystone/internal/service/ai"
	"kidneystone/internal/training"
)

var (
	okFmt      = color.New(color.FgGreen)
	warnFmt    = color.New(color.FgYellow)
	errFmt     = color.New(color.FgRed)
	headingFmt = color.New(color.Bold)
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(cfg, log).ExecuteContext(ctx); err != nil {
		stop()
		log.Close()
		os.Exit(1)
	}
}

func banner(w io.Writer, title string) {
	line := strings.Repeat("=", 60)
	headingFmt.Fprintf(w, "%s\n%s\n%s\n", line, title, line)
}

// trainedWeights is the best checkpoint of the default training run, used
// by validate and export when no weights are given.
func trainedWeights(cfg *config.Config) string {
	return training.DefaultConfig(cfg).BestWeights()
}

func newRootCmd(cfg *config.Config, log *logger.Logger) *cobra.Command {
	trainCmd := newTrainCmd(cfg, log)

	c := &cobra.Command{
		Use:          "train",
		Short:        "Train, validate, test and export the kidney stone YOLOv8 model",
		Long:         "Train, validate, test and export the kidney stone YOLOv8 model.\nRunning without a subcommand starts training.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         trainCmd.RunE,
	}
	c.Flags().AddFlagSet(trainCmd.Flags())

	c.AddCommand(
		trainCmd,
		newValidateCmd(cfg, log),
		newTestCmd(cfg, log),
		newExportCmd(cfg, log),
	)
	return c
}

func newTrainCmd(cfg *config.Config, log *logger.Logger) *cobra.Command {
	var configPath string
	var forceCPU bool

	c := &cobra.Command{
		Use:   "train",
		Short: "Train a new model on the kidney stone dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			banner(w, "YOLOv8 Kidney Stone Detection Training")

			tc, err := training.LoadConfig(configPath, training.DefaultConfig(cfg))
			if err != nil {
				return err
			}

			device := training.DetectDevice(forceCPU || cfg.ForceCPU)
			tc.ApplyDevice(device)
			if device.GPU {
				okFmt.Fprintf(w, "GPU detected (%s). Training will be fast.\n", device.Name)
			} else {
				warnFmt.Fprintf(w, "No GPU detected. Training on CPU %s (will be slower).\n", device.Name)
				fmt.Fprintln(w, "   Tip: Use Google Colab for free GPU: https://colab.research.google.com/")
			}

			printTrainingConfig(w, tc)
			if tc.Device == "cpu" {
				fmt.Fprintln(w, "\nEstimated time: 30-60 minutes")
			} else {
				fmt.Fprintln(w, "\nEstimated time: 10-15 minutes")
			}

			out := log.Writer()
			defer out.Close()

			log.Info("Starting training: model=%s epochs=%d batch=%d device=%s", tc.Model, tc.Epochs, tc.Batch, tc.Device)
			result, err := training.NewRunner(cfg.YoloBinary, out).Train(cmd.Context(), tc)
			if err != nil {
				if errors.Is(err, training.ErrDescriptorNotFound) {
					errFmt.Fprintf(w, "\nError: Dataset configuration not found at %s\n", tc.Data)
					fmt.Fprintln(w, "Please create the dataset first: dataset init")
					return err
				}
				errFmt.Fprintf(w, "\nTraining failed: %v\n", err)
				fmt.Fprintln(w, "\nTroubleshooting:")
				fmt.Fprintln(w, "1. Check that dataset exists and is properly formatted")
				fmt.Fprintln(w, "2. Try reducing batch size (batch: 4 in the training config)")
				fmt.Fprintln(w, "3. Verify all images are valid and labels are correct")
				fmt.Fprintln(w, "4. Run: dataset validate")
				return err
			}
			log.Info("Training finished: mAP50=%.4f mAP50-95=%.4f", result.Metrics.MAP50, result.Metrics.MAP50To95)

			okFmt.Fprintln(w, "\nTraining Complete!")
			printMetrics(w, result.Metrics)

			fmt.Fprintf(w, "\nBest model saved to: %s\n", result.BestWeights)
			fmt.Fprintln(w, "\nTo deploy this model:")
			fmt.Fprintf(w, "   1. Export: train export --weights %s\n", result.BestWeights)
			fmt.Fprintln(w, "   2. Restart the detection server")
			fmt.Fprintln(w, "   3. Test in your web app!")
			return nil
		},
	}

	c.Flags().StringVar(&configPath, "config", cfg.TrainingConfigPath, "YAML file overriding training hyperparameters")
	c.Flags().BoolVar(&forceCPU, "cpu", false, "Train on the CPU even when a GPU is present")
	return c
}

func printTrainingConfig(w io.Writer, tc *training.Config) {
	fmt.Fprintln(w, "\nTraining Configuration:")
	fmt.Fprintf(w, "   - Model: %s\n", tc.Model)
	fmt.Fprintf(w, "   - Epochs: %d\n", tc.Epochs)
	fmt.Fprintf(w, "   - Batch Size: %d\n", tc.Batch)
	fmt.Fprintf(w, "   - Image Size: %d\n", tc.ImgSize)
	fmt.Fprintf(w, "   - Device: %s\n", tc.Device)
}

func printMetrics(w io.Writer, m *training.Metrics) {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Value"})
	table.Append([]string{"mAP50", fmt.Sprintf("%.4f", m.MAP50)})
	table.Append([]string{"mAP50-95", fmt.Sprintf("%.4f", m.MAP50To95)})
	table.Append([]string{"Precision", fmt.Sprintf("%.4f", m.Precision)})
	table.Append([]string{"Recall", fmt.Sprintf("%.4f", m.Recall)})
	table.Render()
}

func newValidateCmd(cfg *config.Config, log *logger.Logger) *cobra.Command {
	var weights string

	c := &cobra.Command{
		Use:   "validate",
		Short: "Validate a trained model on the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			banner(w, "Model Validation")

			out := log.Writer()
			defer out.Close()

			err := training.NewRunner(cfg.YoloBinary, out).Validate(cmd.Context(), weights, cfg.DatasetDescriptor)
			if errors.Is(err, training.ErrModelNotFound) {
				errFmt.Fprintf(w, "\nModel not found at %s\n", weights)
			}
			return err
		},
	}

	c.Flags().StringVar(&weights, "weights", trainedWeights(cfg), "Trained weights to validate")
	return c
}

func newTestCmd(cfg *config.Config, log *logger.Logger) *cobra.Command {
	var output string

	c := &cobra.Command{
		Use:   "test [image]",
		Short: "Run the detector on a single image",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			banner(w, "Test Inference")

			imagePath := filepath.Join(cfg.DataDirectory, "test_images", "sample.jpg")
			if len(args) == 1 {
				imagePath = args[0]
			}

			data, err := os.ReadFile(imagePath)
			if err != nil {
				errFmt.Fprintf(w, "\nTest image not found at %s\n", imagePath)
				return err
			}

			detector, err := ai.NewDetector(cfg, log)
			if err != nil {
				errFmt.Fprintf(w, "\nModel not found at %s\n", cfg.ModelPath)
				return err
			}
			defer detector.Close()

			fmt.Fprintf(w, "\nRunning inference on: %s\n", imagePath)
			scan, err := detector.Detect(data)
			if err != nil {
				return err
			}
			report := analysis.BuildReport(*scan)

			okFmt.Fprintf(w, "\nDetected %d stones\n", report.TotalCount())
			for i, stone := range report.Stones {
				fmt.Fprintf(w, "   Stone %d: Confidence = %.1f%%, Class = %d, %s, %s\n",
					i+1, stone.Confidence, stone.ClassID, stone.Location, stone.Size())
			}

			annotated, err := detector.Annotate(data, report.Stones)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
				return err
			}
			if err := os.WriteFile(output, annotated, 0644); err != nil {
				return err
			}
			fmt.Fprintf(w, "\nResult saved to: %s\n", output)
			return nil
		},
	}

	c.Flags().StringVar(&output, "output", filepath.Join(cfg.ModelsDirectory, "test_result.jpg"), "Where to write the annotated image")
	return c
}

func newExportCmd(cfg *config.Config, log *logger.Logger) *cobra.Command {
	var weights string
	var imgsz int

	c := &cobra.Command{
		Use:   "export",
		Short: "Export trained weights to ONNX and install them for the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			banner(w, "Model Export")

			out := log.Writer()
			defer out.Close()

			err := training.NewRunner(cfg.YoloBinary, out).Export(cmd.Context(), weights, imgsz, cfg.ModelPath)
			if err != nil {
				if errors.Is(err, training.ErrModelNotFound) {
					errFmt.Fprintf(w, "\nModel not found at %s\n", weights)
				}
				return err
			}

			log.Info("Installed ONNX model at %s", cfg.ModelPath)
			okFmt.Fprintf(w, "\nModel installed at %s. Restart the detection server to load it.\n", cfg.ModelPath)
			return nil
		},
	}

	c.Flags().StringVar(&weights, "weights", trainedWeights(cfg), "Trained weights to export")
	c.Flags().IntVar(&imgsz, "imgsz", cfg.InputSize, "Export input size")
	return c
}
