// AnalysesData is a paginated response payload for the analysis history.
package dto

type AnalysesData struct {
	Analyses    []AnalysisInfo `json:"analyses"`
	ScansDir    string         `json:"scansDir"`
	Size        int64          `json:"size"`
	SizeHuman   string         `json:"sizeHuman"`
	MaxSize     int64          `json:"maxSize"`
	Length      int            `json:"length"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
	Limit       int            `json:"pageSize"`
}
