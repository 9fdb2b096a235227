// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

var (
	openapiOnce sync.Once
	openapiDoc  *openapi3.T
	openapiErr  error
)

func loadOpenAPIDoc(t *testing.T) *openapi3.T {
	t.Helper()
	openapiOnce.Do(func() {
		specPath := "openapi.yaml"
		loader := openapi3.NewLoader()
		loader.IsExternalRefsAllowed = true
		doc, err := loader.LoadFromFile(specPath)
		if err != nil {
			openapiErr = err
			return
		}
		if err := doc.Validate(context.Background()); err != nil {
			openapiErr = err
			return
		}
		openapiDoc = doc
	})
	if openapiErr != nil {
		t.Fatalf("openapi load failed: %v", openapiErr)
	}
	return openapiDoc
}

func forEachOperation(t *testing.T, doc *openapi3.T, fn func(method, path string, op *openapi3.Operation)) {
	t.Helper()
	for path, pathItem := range doc.Paths.Map() {
		if pathItem == nil {
			continue
		}
		for method, op := range pathItem.Operations() {
			if op == nil || op.OperationID == "" {
				continue
			}
			fn(method, path, op)
		}
	}
}

// Route existence parity: every documented operation must be mounted by the
// production handler.
func TestRouterParity(t *testing.T) {
	doc := loadOpenAPIDoc(t)
	ts := newTestServer(t)

	forEachOperation(t, doc, func(method, path string, op *openapi3.Operation) {
		req := httptest.NewRequest(method, path, nil)
		if strings.HasSuffix(path, "/events") {
			// The stream only ends when the client goes away; a canceled
			// context lets the handler return once the headers are out.
			ctx, cancel := context.WithCancel(req.Context())
			cancel()
			req = req.WithContext(ctx)
		}
		rr := httptest.NewRecorder()
		ts.handler.ServeHTTP(rr, req)

		if rr.Code == http.StatusNotFound || rr.Code == http.StatusMethodNotAllowed {
			t.Fatalf("route not mounted: %s %s -> %d", method, path, rr.Code)
		}
	})
}

func TestOperationIDsUnique(t *testing.T) {
	doc := loadOpenAPIDoc(t)
	seen := map[string]string{}
	forEachOperation(t, doc, func(method, path string, op *openapi3.Operation) {
		key := method + " " + path
		if prev, dup := seen[op.OperationID]; dup {
			t.Fatalf("operationId %q reused by %s and %s", op.OperationID, prev, key)
		}
		seen[op.OperationID] = key
	})
}
