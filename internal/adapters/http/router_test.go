package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sahajseva/seva-gateway/internal/core/domain"
	"github.com/sahajseva/seva-gateway/internal/core/usecase"
	"github.com/sahajseva/seva-gateway/internal/infrastructure/i18n"
	"github.com/sahajseva/seva-gateway/internal/observability/metrics"
)

type backendStub struct {
	findErr bool
}

func (b *backendStub) ExtractProfile(context.Context, string, domain.Language) (domain.CitizenProfile, error) {
	return domain.CitizenProfile{Age: "62", Occupation: "farmer"}, nil
}

func (b *backendStub) States(context.Context) ([]domain.StateInfo, error) {
	return []domain.StateInfo{{Key: "odisha", En: "Odisha", Hi: "ओडिशा", Type: "state"}}, nil
}

func (b *backendStub) FindSchemes(context.Context, domain.CitizenProfile, domain.Language) ([]domain.Scheme, error) {
	if b.findErr {
		return nil, domain.WrapError(domain.ErrUpstream, "scheme lookup", errors.New("status 502"))
	}
	return []domain.Scheme{{Name: "PM-KISAN", Benefits: "₹6000 per year"}}, nil
}

func (b *backendStub) AnalyzeForm(context.Context, domain.FormUpload) (string, domain.FormAnalysis, string, error) {
	return "sess-1", domain.FormAnalysis{
		FormName: "Ration Card Application Form",
		Fields:   []domain.FormField{{FieldName: "Full Name", FieldType: "text", Required: true}},
	}, "", nil
}

func (b *backendStub) StartFilling(context.Context, string) (domain.StepResult, error) {
	return domain.StepResult{Prompt: &domain.FieldPrompt{FieldName: "Full Name", FieldType: "text", TotalFields: 1}}, nil
}

func (b *backendStub) SubmitField(context.Context, string, string, *domain.PhotoAttachment) (domain.StepResult, error) {
	return domain.StepResult{Completed: true}, nil
}

func (b *backendStub) GenerateFilledForm(context.Context, string) (domain.FilledForm, error) {
	return domain.FilledForm{Message: "Form ready"}, nil
}

func (b *backendStub) Transcribe(context.Context, domain.AudioClip) (string, error) {
	return "I am 62 years old, a farmer", nil
}

type canonStub struct{ backend *backendStub }

func (c canonStub) Canonicalize(_ context.Context, profile domain.CitizenProfile) domain.CitizenProfile {
	return profile
}

func (c canonStub) ResolveStateKey(_ context.Context, raw string) (string, bool, error) {
	return raw, raw != "", nil
}

func (c canonStub) States(ctx context.Context) ([]domain.StateInfo, error) {
	return c.backend.States(ctx)
}

type historyRecorderStub struct {
	entries []domain.HistoryEntry
}

func (h *historyRecorderStub) Record(_ context.Context, entryType domain.HistoryEntryType, title string) (domain.HistoryEntry, error) {
	if entryType != domain.HistoryScheme && entryType != domain.HistoryForm {
		return domain.HistoryEntry{}, domain.WrapError(domain.ErrInvalidInput, "record history", errors.New("unknown entry type"))
	}
	entry := domain.HistoryEntry{ID: "e-1", Type: entryType, Title: title, TimestampMillis: 1}
	h.entries = append([]domain.HistoryEntry{entry}, h.entries...)
	return entry, nil
}

func (h *historyRecorderStub) List(context.Context) ([]domain.HistoryEntry, error) {
	return h.entries, nil
}

func (h *historyRecorderStub) Clear(context.Context) error {
	h.entries = nil
	return nil
}

type languageStoreStub struct {
	language domain.Language
}

func (l *languageStoreStub) Selected(context.Context) (domain.Language, error) {
	return l.language, nil
}

func (l *languageStoreStub) Select(_ context.Context, language domain.Language) error {
	l.language = language
	return nil
}

type extractionStub struct{}

func (extractionStub) Extract(_ context.Context, transcript string, _ domain.Language) (domain.ExtractionResult, error) {
	if strings.TrimSpace(transcript) == "" {
		return domain.ExtractionResult{}, domain.WrapError(domain.ErrInvalidInput, "extract profile", errors.New("empty transcript"))
	}
	return domain.ExtractionResult{
		Profile:  domain.CitizenProfile{Age: "62", Occupation: "farmer", Income: "2"},
		Fallback: true,
	}, nil
}

func newTestRouter(t *testing.T, backend *backendStub, options RouterOptions) (*Router, http.Handler) {
	t.Helper()
	canon := canonStub{backend: backend}
	discovery := usecase.NewDiscoveryUseCase(backend, extractionStub{}, canon, time.Minute, nil)
	wizard := usecase.NewFormWizardUseCase(backend, time.Minute, nil)
	catalog, err := i18n.NewCatalog(slog.Default())
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	router := NewRouter(
		extractionStub{},
		discovery,
		wizard,
		&historyRecorderStub{},
		&languageStoreStub{},
		catalog,
		canon,
		metrics.NewHTTPServerMetrics(serviceName),
		options,
	)
	return router, router.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestHealthz(t *testing.T) {
	_, handler := newTestRouter(t, &backendStub{}, RouterOptions{})

	res := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing X-Request-Id header")
	}
}

func TestExtractProfileEndpoint(t *testing.T) {
	_, handler := newTestRouter(t, &backendStub{}, RouterOptions{})

	res := doJSON(t, handler, http.MethodPost, "/v1/profile/extract", map[string]string{
		"transcript": "I am 62 years old, a farmer, income ₹2 lakh",
		"language":   "en",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", res.Code, res.Body.String())
	}

	var result domain.ExtractionResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Profile.Age != "62" || !result.Fallback {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestExtractProfileRejectsEmptyTranscript(t *testing.T) {
	_, handler := newTestRouter(t, &backendStub{}, RouterOptions{})

	res := doJSON(t, handler, http.MethodPost, "/v1/profile/extract", map[string]string{"transcript": " "})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestDiscoveryFlow(t *testing.T) {
	_, handler := newTestRouter(t, &backendStub{}, RouterOptions{})

	res := doJSON(t, handler, http.MethodPost, "/v1/schemes/discover", map[string]string{"language": "en"})
	if res.Code != http.StatusCreated {
		t.Fatalf("start status = %d, body %s", res.Code, res.Body.String())
	}
	var started usecase.DiscoveryResult
	if err := json.NewDecoder(res.Body).Decode(&started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}

	res = doJSON(t, handler, http.MethodPost, "/v1/schemes/discover/"+started.SessionID+"/submit", map[string]any{
		"profile": domain.CitizenProfile{Age: "62", Occupation: "farmer"},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", res.Code, res.Body.String())
	}
	var submitted usecase.DiscoveryResult
	if err := json.NewDecoder(res.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if len(submitted.Schemes) != 1 || submitted.Schemes[0].Name != "PM-KISAN" {
		t.Fatalf("schemes = %v", submitted.Schemes)
	}

	res = doJSON(t, handler, http.MethodPost, "/v1/schemes/discover/"+started.SessionID+"/language", map[string]string{"language": "hi"})
	if res.Code != http.StatusOK {
		t.Fatalf("language status = %d, body %s", res.Code, res.Body.String())
	}
}

func TestDiscoveryUpstreamFailureMapsTo502(t *testing.T) {
	_, handler := newTestRouter(t, &backendStub{findErr: true}, RouterOptions{})

	res := doJSON(t, handler, http.MethodPost, "/v1/schemes/discover", map[string]string{"language": "en"})
	var started usecase.DiscoveryResult
	if err := json.NewDecoder(res.Body).Decode(&started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}

	res = doJSON(t, handler, http.MethodPost, "/v1/schemes/discover/"+started.SessionID+"/submit", map[string]any{
		"profile": domain.CitizenProfile{Age: "62"},
	})
	if res.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", res.Code)
	}
}

func TestDiscoveryAutoLookupFailureKeepsSessionReachable(t *testing.T) {
	_, handler := newTestRouter(t, &backendStub{findErr: true}, RouterOptions{})

	res := doJSON(t, handler, http.MethodPost, "/v1/schemes/discover", map[string]string{
		"language":   "en",
		"transcript": "62 साल का किसान",
	})
	if res.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", res.Code)
	}

	var started usecase.DiscoveryResult
	if err := json.NewDecoder(res.Body).Decode(&started); err != nil {
		t.Fatalf("decode failure response: %v", err)
	}
	if started.SessionID == "" {
		t.Fatal("failure response dropped the session id")
	}
	if started.Error == "" {
		t.Fatal("failure response carries no error")
	}
	if started.Profile.Age != "62" {
		t.Fatalf("extracted profile lost: %+v", started.Profile)
	}
	if started.HasSubmitted {
		t.Fatal("failed lookup must not mark the session submitted")
	}

	// The retained session still accepts a manual retry.
	res = doJSON(t, handler, http.MethodPost, "/v1/schemes/discover/"+started.SessionID+"/submit", map[string]any{
		"profile": started.Profile,
	})
	if res.Code != http.StatusBadGateway {
		t.Fatalf("retry status = %d, want 502 while upstream is down", res.Code)
	}
}

func multipartForm(t *testing.T, fileField, filename string, fileData []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fileField, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(fileData); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestFormWizardFlow(t *testing.T) {
	_, handler := newTestRouter(t, &backendStub{}, RouterOptions{})

	body, contentType := multipartForm(t, "file", "ration.jpg", []byte("jpeg-bytes"), map[string]string{"language": "hi"})
	req := httptest.NewRequest(http.MethodPost, "/v1/forms/analyze", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusCreated {
		t.Fatalf("analyze status = %d, body %s", res.Code, res.Body.String())
	}
	var session domain.FormSession
	if err := json.NewDecoder(res.Body).Decode(&session); err != nil {
		t.Fatalf("decode analyze response: %v", err)
	}
	if session.ID != "sess-1" || session.State != domain.WizardAnalyzed {
		t.Fatalf("session = %+v", session)
	}

	res2 := doJSON(t, handler, http.MethodPost, "/v1/forms/sess-1/start", nil)
	if res2.Code != http.StatusOK {
		t.Fatalf("start status = %d, body %s", res2.Code, res2.Body.String())
	}

	res3 := doJSON(t, handler, http.MethodPost, "/v1/forms/sess-1/fields", map[string]string{"value": "Ram Kumar Sharma"})
	if res3.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", res3.Code, res3.Body.String())
	}
	var completed domain.FormSession
	if err := json.NewDecoder(res3.Body).Decode(&completed); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if completed.State != domain.WizardCompleted {
		t.Fatalf("state = %q, want completed", completed.State)
	}
	if completed.Result == nil || completed.Result.Message != "Form ready" {
		t.Fatalf("result = %+v", completed.Result)
	}
}

func TestSubmitFieldEmptyValueReturns400(t *testing.T) {
	_, handler := newTestRouter(t, &backendStub{}, RouterOptions{})

	body, contentType := multipartForm(t, "file", "ration.jpg", []byte("jpeg-bytes"), map[string]string{"language": "en"})
	req := httptest.NewRequest(http.MethodPost, "/v1/forms/analyze", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusCreated {
		t.Fatalf("analyze status = %d", res.Code)
	}
	if res2 := doJSON(t, handler, http.MethodPost, "/v1/forms/sess-1/start", nil); res2.Code != http.StatusOK {
		t.Fatalf("start status = %d", res2.Code)
	}

	res3 := doJSON(t, handler, http.MethodPost, "/v1/forms/sess-1/fields", map[string]string{"value": "   "})
	if res3.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res3.Code)
	}
}

func TestFormSessionNotFoundReturns404(t *testing.T) {
	_, handler := newTestRouter(t, &backendStub{}, RouterOptions{})

	res := doJSON(t, handler, http.MethodPost, "/v1/forms/missing/start", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Code)
	}
}

func TestTranscribeEndpoint(t *testing.T) {
	_, handler := newTestRouter(t, &backendStub{}, RouterOptions{})

	body, contentType := multipartForm(t, "audio", "clip.m4a", []byte("audio-bytes"), map[string]string{"language": "en"})
	req := httptest.NewRequest(http.MethodPost, "/v1/speech/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", res.Code, res.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["text"] == "" {
		t.Fatal("empty transcription")
	}
}

func TestHistoryEndpoints(t *testing.T) {
	_, handler := newTestRouter(t, &backendStub{}, RouterOptions{})

	res := doJSON(t, handler, http.MethodPost, "/v1/history", map[string]string{"type": "scheme", "title": "PM-KISAN"})
	if res.Code != http.StatusCreated {
		t.Fatalf("record status = %d, body %s", res.Code, res.Body.String())
	}

	res = doJSON(t, handler, http.MethodGet, "/v1/history", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("list status = %d", res.Code)
	}
	var listResp struct {
		Entries []domain.HistoryEntry `json:"entries"`
	}
	if err := json.NewDecoder(res.Body).Decode(&listResp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listResp.Entries) != 1 || listResp.Entries[0].Title != "PM-KISAN" {
		t.Fatalf("entries = %v", listResp.Entries)
	}

	if res = doJSON(t, handler, http.MethodDelete, "/v1/history", nil); res.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d", res.Code)
	}

	res = doJSON(t, handler, http.MethodPost, "/v1/history", map[string]string{"type": "bookmark", "title": "x"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("bad type status = %d, want 400", res.Code)
	}
}

func TestLanguageEndpoints(t *testing.T) {
	_, handler := newTestRouter(t, &backendStub{}, RouterOptions{})

	res := doJSON(t, handler, http.MethodGet, "/v1/language", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("get status = %d", res.Code)
	}

	res = doJSON(t, handler, http.MethodPut, "/v1/language", map[string]string{"language": "hi"})
	if res.Code != http.StatusOK {
		t.Fatalf("put status = %d", res.Code)
	}

	res = doJSON(t, handler, http.MethodPut, "/v1/language", map[string]string{"language": "fr"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("invalid language status = %d, want 400", res.Code)
	}
}

func TestTranslationsEndpoint(t *testing.T) {
	_, handler := newTestRouter(t, &backendStub{}, RouterOptions{})

	res := doJSON(t, handler, http.MethodGet, "/v1/translations/hi", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	var resp struct {
		Language     string            `json:"language"`
		Translations map[string]string `json:"translations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Translations["home"] != "होम" {
		t.Fatalf("translations[home] = %q", resp.Translations["home"])
	}
}

func TestStatesEndpoint(t *testing.T) {
	_, handler := newTestRouter(t, &backendStub{}, RouterOptions{})

	res := doJSON(t, handler, http.MethodGet, "/v1/meta/states", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	var resp struct {
		States []domain.StateInfo `json:"states"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.States) != 1 || resp.States[0].Key != "odisha" {
		t.Fatalf("states = %v", resp.States)
	}
}
