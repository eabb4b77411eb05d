package backend

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sahajseva/seva-gateway/internal/core/domain"
	"github.com/sahajseva/seva-gateway/internal/infrastructure/resilience"
)

// Client talks to the upstream Sahaj Seva assistant backend. It owns only
// the wire shapes; all orchestration lives in the usecases.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

func (c *Client) ExtractProfile(ctx context.Context, text string, language domain.Language) (domain.CitizenProfile, error) {
	request := map[string]any{
		"text":     text,
		"language": language.OrEnglish(),
	}

	var profile domain.CitizenProfile
	err := c.call(ctx, "backend.extract_profile", func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/profile/extract", request, &profile, "extract_profile")
	})
	if err != nil {
		return domain.CitizenProfile{}, err
	}
	return profile, nil
}

func (c *Client) States(ctx context.Context) ([]domain.StateInfo, error) {
	var response struct {
		States []domain.StateInfo `json:"states"`
	}
	err := c.call(ctx, "backend.states", func(ctx context.Context) error {
		return c.getJSON(ctx, "/api/meta/states", &response, "states")
	})
	if err != nil {
		return nil, err
	}
	return response.States, nil
}

func (c *Client) FindSchemes(ctx context.Context, profile domain.CitizenProfile, language domain.Language) ([]domain.Scheme, error) {
	request := map[string]any{
		"age":        profile.Age,
		"gender":     profile.Gender,
		"occupation": profile.Occupation,
		"income":     profile.Income,
		"state":      profile.State,
		"language":   language.OrEnglish(),
	}

	var response struct {
		Schemes []domain.Scheme `json:"schemes"`
	}
	err := c.call(ctx, "backend.scheme_finder", func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/scheme-finder", request, &response, "scheme_finder")
	})
	if err != nil {
		return nil, err
	}
	if response.Schemes == nil {
		return []domain.Scheme{}, nil
	}
	return response.Schemes, nil
}

type stepResponse struct {
	Completed   bool   `json:"completed"`
	Message     string `json:"message"`
	FieldName   string `json:"field_name"`
	FieldType   string `json:"field_type"`
	Prompt      string `json:"prompt"`
	FieldIndex  int    `json:"field_index"`
	TotalFields int    `json:"total_fields"`
	VoiceURL    string `json:"voice_url"`
}

func (r stepResponse) toDomain() domain.StepResult {
	result := domain.StepResult{
		Completed: r.Completed,
		Message:   r.Message,
		VoiceURL:  r.VoiceURL,
	}
	if !r.Completed {
		result.Prompt = &domain.FieldPrompt{
			FieldName:   r.FieldName,
			FieldType:   r.FieldType,
			Prompt:      r.Prompt,
			FieldIndex:  r.FieldIndex,
			TotalFields: r.TotalFields,
			VoiceURL:    r.VoiceURL,
		}
	}
	return result
}

func (c *Client) AnalyzeForm(ctx context.Context, upload domain.FormUpload) (string, domain.FormAnalysis, string, error) {
	var response struct {
		SessionID    string              `json:"session_id"`
		FormAnalysis domain.FormAnalysis `json:"form_analysis"`
		VoiceNoteURL string              `json:"voice_note_url"`
	}

	err := c.call(ctx, "backend.analyze_form", func(ctx context.Context) error {
		return c.postMultipart(ctx, "/api/form/analyze",
			map[string]string{"language": string(upload.Language.OrEnglish())},
			[]filePart{{field: "file", filename: upload.Filename, contentType: upload.ContentType, data: upload.Data}},
			&response, "analyze_form")
	})
	if err != nil {
		return "", domain.FormAnalysis{}, "", err
	}
	return response.SessionID, response.FormAnalysis, response.VoiceNoteURL, nil
}

func (c *Client) StartFilling(ctx context.Context, sessionID string) (domain.StepResult, error) {
	request := map[string]any{"session_id": sessionID}

	var response stepResponse
	err := c.call(ctx, "backend.start_filling", func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/form/start", request, &response, "start_filling")
	})
	if err != nil {
		return domain.StepResult{}, err
	}
	return response.toDomain(), nil
}

func (c *Client) SubmitField(ctx context.Context, sessionID, value string, photo *domain.PhotoAttachment) (domain.StepResult, error) {
	var response stepResponse
	err := c.call(ctx, "backend.submit_field", func(ctx context.Context) error {
		if photo != nil {
			return c.postMultipart(ctx, "/api/form/submit-field",
				map[string]string{"session_id": sessionID, "field_value": value},
				[]filePart{{field: "photo", filename: photo.Filename, contentType: photo.ContentType, data: photo.Data}},
				&response, "submit_field")
		}
		request := map[string]any{"session_id": sessionID, "field_value": value}
		return c.postJSON(ctx, "/api/form/submit-field", request, &response, "submit_field")
	})
	if err != nil {
		return domain.StepResult{}, err
	}
	return response.toDomain(), nil
}

func (c *Client) GenerateFilledForm(ctx context.Context, sessionID string) (domain.FilledForm, error) {
	request := map[string]any{"session_id": sessionID}

	var filled domain.FilledForm
	err := c.call(ctx, "backend.generate_filled_form", func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/form/generate", request, &filled, "generate_filled_form")
	})
	if err != nil {
		return domain.FilledForm{}, err
	}
	return filled, nil
}

func (c *Client) Transcribe(ctx context.Context, clip domain.AudioClip) (string, error) {
	var response struct {
		Text string `json:"text"`
	}
	err := c.call(ctx, "backend.transcribe", func(ctx context.Context) error {
		return c.postMultipart(ctx, "/api/stt",
			map[string]string{"language": string(clip.Language.OrEnglish())},
			[]filePart{{field: "audio", filename: clip.Filename, contentType: clip.ContentType, data: clip.Data}},
			&response, "transcribe")
	})
	if err != nil {
		return "", err
	}
	return response.Text, nil
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, fn, classifyBackendError)
	} else {
		err = fn(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}
