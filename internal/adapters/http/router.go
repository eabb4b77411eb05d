// Package httpadapter exposes the gateway's REST surface. Handlers parse
// and validate the request, call one usecase, and map typed errors to HTTP
// statuses; no business rules live here.
package httpadapter

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/sahajseva/seva-gateway/internal/core/domain"
	"github.com/sahajseva/seva-gateway/internal/core/ports"
	"github.com/sahajseva/seva-gateway/internal/core/usecase"
	"github.com/sahajseva/seva-gateway/internal/observability/metrics"
)

const serviceName = "seva-gateway-api"

type Router struct {
	extractUC  ports.ProfileExtraction
	discovery  *usecase.DiscoveryUseCase
	wizard     *usecase.FormWizardUseCase
	historyUC  ports.HistoryRecorder
	languages  ports.LanguageStore
	translator ports.Translator
	canon      ports.Canonicalizer
	metrics    *metrics.HTTPServerMetrics

	maxUploadBytes int64
	rateLimitRPS   int
	rateLimitBurst int
	maxInFlight    int
}

type RouterOptions struct {
	MaxUploadBytes int64
	RateLimitRPS   int
	RateLimitBurst int
	MaxInFlight    int
}

func NewRouter(
	extractUC ports.ProfileExtraction,
	discovery *usecase.DiscoveryUseCase,
	wizard *usecase.FormWizardUseCase,
	historyUC ports.HistoryRecorder,
	languages ports.LanguageStore,
	translator ports.Translator,
	canon ports.Canonicalizer,
	serverMetrics *metrics.HTTPServerMetrics,
	options RouterOptions,
) *Router {
	if options.MaxUploadBytes <= 0 {
		options.MaxUploadBytes = 10 << 20
	}
	return &Router{
		extractUC:      extractUC,
		discovery:      discovery,
		wizard:         wizard,
		historyUC:      historyUC,
		languages:      languages,
		translator:     translator,
		canon:          canon,
		metrics:        serverMetrics,
		maxUploadBytes: options.MaxUploadBytes,
		rateLimitRPS:   options.RateLimitRPS,
		rateLimitBurst: options.RateLimitBurst,
		maxInFlight:    options.MaxInFlight,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/profile/extract", rt.extractProfile)
	mux.HandleFunc("/v1/meta/states", rt.listStates)
	mux.HandleFunc("/v1/schemes/discover", rt.startDiscovery)
	mux.HandleFunc("/v1/schemes/discover/", rt.discoverySession)
	mux.HandleFunc("/v1/forms/analyze", rt.analyzeForm)
	mux.HandleFunc("/v1/forms/", rt.formSession)
	mux.HandleFunc("/v1/speech/transcribe", rt.transcribe)
	mux.HandleFunc("/v1/history", rt.history)
	mux.HandleFunc("/v1/language", rt.language)
	mux.HandleFunc("/v1/translations/", rt.translations)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = backpressureMiddleware(handler, rt.maxInFlight, 100*time.Millisecond)
	handler = rateLimitMiddleware(handler, float64(rt.rateLimitRPS), rt.rateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": serviceName})
}

func (rt *Router) extractProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Transcript string `json:"transcript"`
		Language   string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	language, ok := domain.ParseLanguage(req.Language)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported language"})
		return
	}

	result, err := rt.extractUC.Extract(r.Context(), req.Transcript, language)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordExtraction(serviceName, result.Fallback)
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) listStates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	states, err := rt.canon.States(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"states": states})
}

func (rt *Router) startDiscovery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Language   string                 `json:"language"`
		Transcript string                 `json:"transcript"`
		Profile    *domain.CitizenProfile `json:"profile"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	language, ok := domain.ParseLanguage(req.Language)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported language"})
		return
	}

	result, err := rt.discovery.Start(r.Context(), usecase.StartDiscoveryInput{
		Language:   language,
		Transcript: req.Transcript,
		Profile:    req.Profile,
	})
	if err != nil {
		// A failed auto lookup still opened a session holding the
		// extracted profile; hand the id back so a retry can reuse it.
		if result.SessionID != "" {
			result.Error = err.Error()
			writeJSON(w, mapErrorToHTTPStatus(err), result)
			return
		}
		writeError(w, err)
		return
	}
	if rt.metrics != nil && result.HasSubmitted {
		rt.metrics.RecordSchemeLookup(serviceName, string(result.Language), "auto", len(result.Schemes))
	}
	writeJSON(w, http.StatusCreated, result)
}

func (rt *Router) discoverySession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/schemes/discover/")
	sessionID, action, _ := strings.Cut(rest, "/")
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session id is required"})
		return
	}

	switch action {
	case "submit":
		rt.submitDiscovery(w, r, sessionID)
	case "language":
		rt.changeDiscoveryLanguage(w, r, sessionID)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown action"})
	}
}

func (rt *Router) submitDiscovery(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req struct {
		Profile domain.CitizenProfile `json:"profile"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := rt.discovery.Submit(r.Context(), sessionID, req.Profile)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordSchemeLookup(serviceName, string(result.Language), "manual", len(result.Schemes))
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) changeDiscoveryLanguage(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req struct {
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	language, ok := domain.ParseLanguage(req.Language)
	if !ok || language == domain.LanguageUnset {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported language"})
		return
	}

	result, err := rt.discovery.ChangeLanguage(r.Context(), sessionID, language)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil && result.HasSubmitted {
		rt.metrics.RecordSchemeLookup(serviceName, string(result.Language), "language_change", len(result.Schemes))
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) analyzeForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read upload"})
		return
	}
	language, ok := domain.ParseLanguage(r.FormValue("language"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported language"})
		return
	}

	session, err := rt.wizard.Analyze(r.Context(), domain.FormUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
		Language:    language,
	})
	if rt.metrics != nil {
		rt.metrics.RecordWizardTransition(serviceName, "analyze", err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (rt *Router) formSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/forms/")
	sessionID, action, _ := strings.Cut(rest, "/")
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session id is required"})
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		rt.getFormSession(w, sessionID)
	case action == "" && r.Method == http.MethodDelete:
		rt.cancelFormSession(w, sessionID)
	case action == "start" && r.Method == http.MethodPost:
		rt.startFilling(w, r, sessionID)
	case action == "fields" && r.Method == http.MethodPost:
		rt.submitField(w, r, sessionID)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) getFormSession(w http.ResponseWriter, sessionID string) {
	session, err := rt.wizard.Session(sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (rt *Router) cancelFormSession(w http.ResponseWriter, sessionID string) {
	if err := rt.wizard.Cancel(sessionID); err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordWizardTransition(serviceName, "cancel", nil)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) startFilling(w http.ResponseWriter, r *http.Request, sessionID string) {
	session, err := rt.wizard.StartFilling(r.Context(), sessionID)
	if rt.metrics != nil {
		rt.metrics.RecordWizardTransition(serviceName, "start", err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// submitField accepts a JSON body for plain values and multipart when a
// photo rides along.
func (rt *Router) submitField(w http.ResponseWriter, r *http.Request, sessionID string) {
	var value string
	var photo *domain.PhotoAttachment

	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if contentType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)
		value = r.FormValue("value")

		file, fileHeader, err := r.FormFile("photo")
		if err == nil {
			defer file.Close()
			data, readErr := io.ReadAll(file)
			if readErr != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read photo"})
				return
			}
			photo = &domain.PhotoAttachment{
				Filename:    fileHeader.Filename,
				ContentType: fileHeader.Header.Get("Content-Type"),
				Data:        data,
			}
		}
	} else {
		var req struct {
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		value = req.Value
	}

	session, err := rt.wizard.SubmitField(r.Context(), sessionID, value, photo)
	if rt.metrics != nil {
		rt.metrics.RecordWizardTransition(serviceName, "submit_field", err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (rt *Router) transcribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)

	file, fileHeader, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'audio' is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read audio"})
		return
	}
	language, ok := domain.ParseLanguage(r.FormValue("language"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported language"})
		return
	}

	text, err := rt.wizard.Transcribe(r.Context(), domain.AudioClip{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
		Language:    language,
	})
	if rt.metrics != nil {
		rt.metrics.RecordTranscription(serviceName, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (rt *Router) history(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries, err := rt.historyUC.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
	case http.MethodPost:
		var req struct {
			Type  string `json:"type"`
			Title string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		entry, err := rt.historyUC.Record(r.Context(), domain.HistoryEntryType(req.Type), req.Title)
		if err != nil {
			writeError(w, err)
			return
		}
		if rt.metrics != nil {
			rt.metrics.RecordHistoryEvent(serviceName, req.Type)
		}
		writeJSON(w, http.StatusCreated, entry)
	case http.MethodDelete:
		if err := rt.historyUC.Clear(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) language(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		language, err := rt.languages.Selected(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"language": string(language)})
	case http.MethodPut:
		var req struct {
			Language string `json:"language"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		language, ok := domain.ParseLanguage(req.Language)
		if !ok || language == domain.LanguageUnset {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported language"})
			return
		}
		if err := rt.languages.Select(r.Context(), language); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"language": string(language)})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) translations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/v1/translations/")
	language, ok := domain.ParseLanguage(raw)
	if !ok || language == domain.LanguageUnset {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported language"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"language":     string(language),
		"translations": rt.translator.Catalog(language),
	})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
