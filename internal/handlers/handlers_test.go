package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Brownie44l1/crop-api/internal/catalog"
	"github.com/Brownie44l1/crop-api/internal/pipeline"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePredictor struct {
	out      pipeline.Outcome
	received []byte
}

func (f *fakePredictor) Predict(raw []byte) pipeline.Outcome {
	f.received = raw
	return f.out
}

func (f *fakePredictor) Labels() []string { return []string{"a", "b", "c"} }

func newTestRouter(p Predictor, maxUpload int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(p, zap.NewNop(), maxUpload)
	return NewRouter(h, zap.NewNop(), nil)
}

func multipartBody(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, "leaf.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func post(t *testing.T, r *gin.Engine, path, field string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, field, data)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAnalyzeDiagnosed(t *testing.T) {
	p := &fakePredictor{out: pipeline.Diagnosed{
		Label: "Tomato___Late_blight",
		Record: catalog.Record{
			Disease:       "Tomato Late Blight",
			Severity:      catalog.SeverityHigh,
			Treatment:     "Apply fungicide.",
			AffectedCrops: "Tomatoes",
			Prevention:    "Rotate crops.",
			NextSteps:     []string{"Isolate the crop area"},
		},
		ConfidencePercent: 94.3,
	}}
	r := newTestRouter(p, 1<<20)

	w := post(t, r, "/analyze", "image", []byte("image-bytes"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte("image-bytes"), p.received)
	assert.NotEmpty(t, w.Header().Get(RequestIDKey))

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Tomato Late Blight", got["disease"])
	assert.Equal(t, "High", got["severity"])
	assert.Equal(t, 94.3, got["confidence"])
	assert.Equal(t, "Tomatoes", got["affectedCrops"])
	assert.Equal(t, []any{"Isolate the crop area"}, got["nextSteps"])
}

func TestAnalyzeNoCrop(t *testing.T) {
	p := &fakePredictor{out: pipeline.NoCropDetected{Message: pipeline.NoCropMessage}}
	w := post(t, newTestRouter(p, 0), "/predict/image", "image", []byte("x"))

	require.Equal(t, http.StatusOK, w.Code)
	var got NoCropResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.NoCropDetected)
	assert.Equal(t, pipeline.NoCropMessage, got.Message)
}

func TestAnalyzeFailedIsGeneric(t *testing.T) {
	p := &fakePredictor{out: pipeline.Failed{Reason: pipeline.ReasonInference, Err: errors.New("onnx: secret detail")}}
	w := post(t, newTestRouter(p, 0), "/analyze", "image", []byte("x"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var got ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, pipeline.FailedMessage, got.Error)
	assert.NotContains(t, w.Body.String(), "secret detail")
}

func TestAnalyzeMissingImage(t *testing.T) {
	p := &fakePredictor{}
	w := post(t, newTestRouter(p, 0), "/analyze", "photo", []byte("x"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, p.received)
}

func TestAnalyzeTooLarge(t *testing.T) {
	p := &fakePredictor{}
	w := post(t, newTestRouter(p, 512), "/analyze", "image", bytes.Repeat([]byte("a"), 4096))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Nil(t, p.received)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&fakePredictor{}, 0)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "serving", got.Status)
	assert.Equal(t, 3, got.Labels)
}

func TestRequestIDIsPropagated(t *testing.T) {
	r := newTestRouter(&fakePredictor{}, 0)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDKey, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDKey))
}
