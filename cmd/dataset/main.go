package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"kidneystone/internal/config"
	"kidneystone/internal/dataset"
)

var (
	okFmt      = color.New(color.FgGreen)
	warnFmt    = color.New(color.FgYellow)
	headingFmt = color.New(color.Bold)
)

var errNoImages = errors.New("dataset contains no images")

func main() {
	cfg := config.Load()
	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func banner(w io.Writer, title string) {
	line := strings.Repeat("=", 60)
	headingFmt.Fprintf(w, "\n%s\n%s\n%s\n", line, title, line)
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	var root, descriptor string

	c := &cobra.Command{
		Use:          "dataset",
		Short:        "Prepare and validate the YOLOv8 kidney stone dataset",
		Long:         "Prepare and validate the YOLOv8 kidney stone dataset.\nRunning without a subcommand is the same as running init.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			banner(w, "YOLOv8 Kidney Stone Dataset Preparation")
			if err := initDataset(w, root, descriptor); err != nil {
				return err
			}
			okFmt.Fprintln(w, "\nDataset preparation complete!")
			fmt.Fprintln(w, "\nNext: Add your images and labels, then run: dataset validate")
			return nil
		},
	}

	c.PersistentFlags().StringVar(&root, "root", cfg.DataDirectory, "Dataset root directory")
	c.PersistentFlags().StringVar(&descriptor, "descriptor", cfg.DatasetDescriptor, "Dataset YAML path")

	c.AddCommand(
		newInitCmd(&root, &descriptor),
		newValidateCmd(&root, &descriptor),
		newDownloadCmd(),
	)
	return c
}

func newInitCmd(root, descriptor *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the dataset directory structure, YAML descriptor and sample label",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initDataset(cmd.OutOrStdout(), *root, *descriptor)
		},
	}
}

func initDataset(w io.Writer, root, descriptorPath string) error {
	created, err := dataset.Init(root)
	if err != nil {
		return err
	}
	for _, dir := range created {
		okFmt.Fprintf(w, "Created: %s\n", dir)
	}

	okFmt.Fprintln(w, "\nDataset structure created successfully!")
	fmt.Fprintln(w, "\nNext steps:")
	fmt.Fprintf(w, "1. Add your CT scan images to %s (and val, test)\n", dataset.ImageDir(root, "train"))
	fmt.Fprintf(w, "2. Add corresponding label files to %s (and val, test)\n", dataset.LabelDir(root, "train"))
	fmt.Fprintln(w, "3. Label format: Each line = <class> <x_center> <y_center> <width> <height>")
	fmt.Fprintln(w, "   (All values normalized to 0-1)")

	d, err := dataset.NewDescriptor(root)
	if err != nil {
		return err
	}
	content, err := dataset.WriteDescriptor(descriptorPath, d)
	if err != nil {
		return err
	}
	okFmt.Fprintf(w, "\nCreated dataset config: %s\n", descriptorPath)
	fmt.Fprintf(w, "\nYAML Contents:\n%s", content)

	sample, err := dataset.WriteSampleAnnotation(root)
	if err != nil {
		return err
	}
	okFmt.Fprintf(w, "\nCreated sample label format: %s\n", sample)
	return nil
}

func newValidateCmd(root, descriptor *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Count images and labels per split and check label files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			banner(w, "Dataset Validation")

			classes := 1
			if d, err := dataset.LoadDescriptor(*descriptor); err == nil {
				classes = d.NC
			} else {
				warnFmt.Fprintf(w, "Could not read %s (%v), assuming a single class\n", *descriptor, err)
			}

			report, err := dataset.Validate(cmd.Context(), *root, classes)
			if err != nil {
				return err
			}
			printReport(w, report)

			if report.TotalImages == 0 {
				return errNoImages
			}
			return nil
		},
	}
}

func printReport(w io.Writer, report *dataset.Report) {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Split", "Images", "Labels", "Without labels", "Without images", "Bad lines"})
	for _, s := range report.Splits {
		table.Append([]string{
			strings.ToUpper(s.Name),
			strconv.Itoa(s.Images),
			strconv.Itoa(s.Labels),
			strconv.Itoa(len(s.MissingLabels)),
			strconv.Itoa(len(s.MissingImages)),
			strconv.Itoa(len(s.Issues)),
		})
	}
	table.Render()

	for _, s := range report.Splits {
		if s.Paired() {
			okFmt.Fprintf(w, "%s: all files properly paired\n", s.Name)
			continue
		}
		if n := len(s.MissingLabels); n > 0 {
			warnFmt.Fprintf(w, "%s: %d images without labels\n", s.Name, n)
		}
		if n := len(s.MissingImages); n > 0 {
			warnFmt.Fprintf(w, "%s: %d labels without images\n", s.Name, n)
		}
	}

	for _, issue := range report.Issues() {
		warnFmt.Fprintln(w, issue.String())
	}

	fmt.Fprintln(w, "\nTotal Statistics:")
	fmt.Fprintf(w, "   Total Images: %d\n", report.TotalImages)
	fmt.Fprintf(w, "   Total Labels: %d\n", report.TotalLabels)

	advice := report.Advice()
	switch advice {
	case dataset.AdviceEmpty:
		warnFmt.Fprintf(w, "\nWARNING: %s\n", advice)
		fmt.Fprintln(w, "\nRecommended dataset sizes:")
		for _, size := range dataset.RecommendedSizes {
			fmt.Fprintf(w, "   - %s\n", size)
		}
	case dataset.AdviceVerySmall:
		warnFmt.Fprintf(w, "\nWARNING: %s\n", advice)
	default:
		okFmt.Fprintf(w, "\n%s\n", advice)
	}
}

func newDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Show public kidney CT dataset sources and annotation tools",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			banner(w, "Sample Dataset Sources")

			headingFmt.Fprintln(w, "\nPublic Medical Imaging Datasets:")
			for i, src := range dataset.PublicSources {
				fmt.Fprintf(w, "\n%d. %s\n   URL: %s\n", i+1, src.Name, src.URL)
				for _, note := range src.Notes {
					fmt.Fprintf(w, "   - %s\n", note)
				}
			}

			headingFmt.Fprintln(w, "\nAnnotation Tools:")
			for _, tool := range dataset.AnnotationTools {
				fmt.Fprintf(w, "   - %s: %s\n     %s\n", tool.Name, strings.Join(tool.Notes, ", "), tool.URL)
			}

			headingFmt.Fprintln(w, "\nQuick Start with Sample Data:")
			fmt.Fprintln(w, "   For testing, you can use any kidney CT images")
			fmt.Fprintln(w, "   and manually annotate a few (~10-20) to test the training pipeline.")
		},
	}
}
