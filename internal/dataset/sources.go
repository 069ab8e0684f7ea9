package dataset

// Source is a place to obtain scans or annotate them.
type Source struct {
	Name  string
	URL   string
	Notes []string
}

var PublicSources = []Source{
	{
		Name:  "KiTS19/KiTS21 (Kidney Tumor Segmentation)",
		URL:   "https://kits19.grand-challenge.org/",
		Notes: []string{"300+ kidney CT scans", "Some include stones", "Requires annotation for stone detection"},
	},
	{
		Name:  "The Cancer Imaging Archive (TCIA)",
		URL:   "https://www.cancerimagingarchive.net/",
		Notes: []string{"Search: 'kidney stones' or 'urinary calculi'", "Various CT scan collections"},
	},
	{
		Name:  "Radiopaedia Cases",
		URL:   "https://radiopaedia.org/",
		Notes: []string{"Educational cases with kidney stones", "Requires manual annotation"},
	},
}

var AnnotationTools = []Source{
	{Name: "LabelImg", URL: "https://github.com/heartexlabs/labelImg", Notes: []string{"2D bounding boxes (YOLO format)"}},
	{Name: "CVAT", URL: "https://cvat.org/", Notes: []string{"Web-based annotation"}},
}
