package generation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thumbfast/server/internal/module/catalog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingRecorder struct {
	mu      sync.Mutex
	results []*Result
	reqs    []*Request
}

func (r *recordingRecorder) Record(_ context.Context, req *Request, result *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	r.results = append(r.results, result)
}

func setupRouter(client ImageClient, recorder Recorder) *gin.Engine {
	router := gin.New()
	h := NewHandler(NewService(&ServiceConfig{Client: client}), recorder, nil)
	h.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func postJSON(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_Generate(t *testing.T) {
	recorder := &recordingRecorder{}
	router := setupRouter(&fakeClient{}, recorder)

	w := postJSON(router, `{"prompt":"A robot holding a sign","modes":["thumbnail"],"grid":1,"count":2,"model":"gemini-2.5-flash-image"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, catalog.ModelFlash, resp.Model)
	require.Len(t, resp.Images, 2)
	assert.Equal(t, "image/png", resp.Images[0].MediaType)
	data, err := base64.StdEncoding.DecodeString(resp.Images[0].Data)
	require.NoError(t, err)
	assert.Equal(t, "png-1", string(data))

	require.Len(t, recorder.results, 1)
	assert.Equal(t, "A robot holding a sign", recorder.reqs[0].Prompt)
}

func TestHandler_Generate_Defaults(t *testing.T) {
	client := &fakeClient{}
	router := setupRouter(client, nil)

	w := postJSON(router, `{"prompt":"cat"}`)
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, 1, client.callCount())
	text := client.calls[0].parts[0].Text
	assert.Contains(t, text, "YouTube thumbnail, 16:9 landscape")
	assert.NotContains(t, text, "Layout:")
}

func TestHandler_Generate_ValidationErrors(t *testing.T) {
	client := &fakeClient{}
	router := setupRouter(client, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing prompt", `{"modes":["logo"]}`, "Prompt is required"},
		{"blank prompt", `{"prompt":"   "}`, "Prompt is required"},
		{"empty modes", `{"prompt":"cat","modes":[]}`, "Select at least one mode"},
		{"unknown mode", `{"prompt":"cat","modes":["poster"]}`, `unknown mode: "poster"`},
		{"bad grid", `{"prompt":"cat","grid":7}`, "grid must be between 1 and 4"},
		{"malformed json", `{"prompt":`, "invalid request body"},
		{"wrong type", `{"prompt":"cat","count":"many"}`, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(router, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp["error"])
			assert.Equal(t, "VALIDATION_ERROR", resp["code"])
		})
	}

	assert.Equal(t, 0, client.callCount())
}

func TestHandler_Generate_EmptyResult(t *testing.T) {
	recorder := &recordingRecorder{}
	client := &fakeClient{
		respond: func(int, []Part) ([]Image, error) {
			return nil, errors.New("blocked")
		},
	}
	router := setupRouter(client, recorder)

	w := postJSON(router, `{"prompt":"cat","count":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"images":[],"model":"gemini-2.5-flash-image"}`, w.Body.String())
	assert.Empty(t, recorder.results)
}

func TestHandler_Generate_TotalFailure(t *testing.T) {
	client := &fakeClient{
		respond: func(int, []Part) ([]Image, error) {
			return nil, fmt.Errorf("%w: no route to host", ErrUnavailable)
		},
	}
	router := setupRouter(client, nil)

	w := postJSON(router, `{"prompt":"cat"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "no route to host")
	assert.Equal(t, "INTERNAL_ERROR", resp["code"])
}

func TestHandler_Options(t *testing.T) {
	router := setupRouter(&fakeClient{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/options", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp OptionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Modes, 7)
	assert.Len(t, resp.Grids, 4)
	assert.Len(t, resp.Models, 2)
	assert.Equal(t, catalog.DefaultModel, resp.DefaultModel)
	assert.Equal(t, 4, resp.MaxCount)
}

func TestGenerateRequest_ToRequest(t *testing.T) {
	grid := 3
	count := 2.6
	d := &GenerateRequest{
		Prompt:       "p",
		PersonImages: []string{"a"},
		Modes:        []string{"logo"},
		Grid:         &grid,
		Count:        &count,
		Blend:        true,
	}

	req := d.ToRequest()
	assert.Equal(t, 3, req.Layout)
	assert.Equal(t, 2.6, req.VariantCount)
	assert.Equal(t, []catalog.Mode{catalog.ModeLogo}, req.Modes)
	assert.Equal(t, []string{"a"}, req.Images.Persons)
	assert.True(t, req.Blend)

	empty := (&GenerateRequest{}).ToRequest()
	assert.Nil(t, empty.Modes)
	assert.Equal(t, 1, empty.Layout)
	assert.Equal(t, 1.0, empty.VariantCount)

	explicitEmpty := (&GenerateRequest{Modes: []string{}}).ToRequest()
	assert.NotNil(t, explicitEmpty.Modes)
	assert.Empty(t, explicitEmpty.Modes)
}
