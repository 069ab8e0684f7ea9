package dto

// DetectRequest is the body of POST /detect.
type DetectRequest struct {
	Image       string         `json:"image"`       // base64, optionally a data URL
	PatientInfo map[string]any `json:"patientInfo"` // free-form, passed through to history
}

// PatientName returns the "name" entry of the patient info, or "Unknown".
func (r DetectRequest) PatientName() string {
	if name, ok := r.PatientInfo["name"].(string); ok && name != "" {
		return name
	}
	return "Unknown"
}
