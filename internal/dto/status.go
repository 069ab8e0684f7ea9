package dto

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Timestamp   string `json:"timestamp"`
}

type ModelInfoResponse struct {
	ModelType           string  `json:"model_type"`
	ModelPath           string  `json:"model_path"`
	IsCustomTrained     bool    `json:"is_custom_trained"`
	InputSize           string  `json:"input_size"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	IoUThreshold        float64 `json:"iou_threshold"`
	Classes             int     `json:"classes"`
}

type TrainStatusResponse struct {
	CustomModelExists bool   `json:"custom_model_exists"`
	ModelPath         string `json:"model_path"`
	Recommendation    string `json:"recommendation"`
}
