package httpadapter

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

func TestOpenAPIDocumentIsValid(t *testing.T) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile("../../../api/openapi.yaml")
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		t.Fatalf("validate document: %v", err)
	}
}

func TestOpenAPIDocumentCoversRoutes(t *testing.T) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile("../../../api/openapi.yaml")
	if err != nil {
		t.Fatalf("load document: %v", err)
	}

	routes := []struct {
		path   string
		method string
	}{
		{"/healthz", "GET"},
		{"/v1/profile/extract", "POST"},
		{"/v1/meta/states", "GET"},
		{"/v1/schemes/discover", "POST"},
		{"/v1/schemes/discover/{sessionId}/submit", "POST"},
		{"/v1/schemes/discover/{sessionId}/language", "POST"},
		{"/v1/forms/analyze", "POST"},
		{"/v1/forms/{sessionId}", "GET"},
		{"/v1/forms/{sessionId}", "DELETE"},
		{"/v1/forms/{sessionId}/start", "POST"},
		{"/v1/forms/{sessionId}/fields", "POST"},
		{"/v1/speech/transcribe", "POST"},
		{"/v1/history", "GET"},
		{"/v1/history", "POST"},
		{"/v1/history", "DELETE"},
		{"/v1/language", "GET"},
		{"/v1/language", "PUT"},
		{"/v1/translations/{lang}", "GET"},
		{"/metrics", "GET"},
	}
	for _, route := range routes {
		item := doc.Paths.Find(route.path)
		if item == nil {
			t.Errorf("path %s missing from document", route.path)
			continue
		}
		if item.GetOperation(route.method) == nil {
			t.Errorf("operation %s %s missing from document", route.method, route.path)
		}
	}
}
