package domain

import "time"

type WizardState string

const (
	WizardNoSession  WizardState = "no_session"
	WizardAnalyzed   WizardState = "analyzed"
	WizardCollecting WizardState = "collecting"
	WizardCompleted  WizardState = "completed"
)

// FormField describes one fillable field of an analyzed form.
type FormField struct {
	FieldName   string `json:"field_name"`
	FieldType   string `json:"field_type"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
	Example     string `json:"example"`
}

const FieldTypePhoto = "photo"

// FormAnalysis is the upstream reading of an uploaded form image.
type FormAnalysis struct {
	FormName    string      `json:"form_name"`
	Purpose     string      `json:"purpose"`
	Eligibility string      `json:"eligibility"`
	Fields      []FormField `json:"fields"`
	Warnings    []string    `json:"warnings"`
}

// FieldPrompt is the server-issued question for the current field. Total
// field count is only what the server reported for this step; the gateway
// assumes no knowledge beyond it.
type FieldPrompt struct {
	FieldName   string `json:"field_name"`
	FieldType   string `json:"field_type"`
	Prompt      string `json:"prompt"`
	FieldIndex  int    `json:"field_index"`
	TotalFields int    `json:"total_fields"`
	VoiceURL    string `json:"voice_url,omitempty"`
}

// StepResult is the upstream response to a start or submit-field call:
// either the next prompt or a completion signal.
type StepResult struct {
	Completed bool
	Message   string
	Prompt    *FieldPrompt
	VoiceURL  string
}

// FilledForm is the terminal summary of a completed session.
type FilledForm struct {
	Message        string            `json:"message"`
	FilledFormText string            `json:"filled_form_text,omitempty"`
	FieldResponses map[string]string `json:"field_responses,omitempty"`
	VoiceURL       string            `json:"voice_url,omitempty"`
}

// FormUpload carries an uploaded form image to the analyzer.
type FormUpload struct {
	Filename    string
	ContentType string
	Data        []byte
	Language    Language
}

// PhotoAttachment is a photo-field value; emptiness for photo fields is
// defined by the attachment being absent, not by string emptiness.
type PhotoAttachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AudioClip carries captured speech to the transcription endpoint.
type AudioClip struct {
	Filename    string
	ContentType string
	Data        []byte
	Language    Language
}

// FormSession is the gateway-side view of one wizard run. The upstream
// session id is the only cross-call correlation token.
type FormSession struct {
	ID           string            `json:"session_id"`
	Language     Language          `json:"language"`
	State        WizardState       `json:"state"`
	Analysis     FormAnalysis      `json:"form_analysis"`
	VoiceNoteURL string            `json:"voice_note_url,omitempty"`
	Current      *FieldPrompt      `json:"current_field,omitempty"`
	Values       map[string]string `json:"collected_values,omitempty"`
	Result       *FilledForm       `json:"result,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}
