package handlers

import (
	"github.com/Brownie44l1/crop-api/internal/catalog"
	"github.com/Brownie44l1/crop-api/internal/pipeline"
)

// Predictor is the part of the pipeline the HTTP layer needs.
type Predictor interface {
	Predict(raw []byte) pipeline.Outcome
	Labels() []string
}

// DiagnosisResponse keeps the field names the web front end reads.
type DiagnosisResponse struct {
	Label         string           `json:"label"`
	Disease       string           `json:"disease"`
	Severity      catalog.Severity `json:"severity"`
	Confidence    float64          `json:"confidence"`
	Treatment     string           `json:"treatment"`
	AffectedCrops string           `json:"affectedCrops"`
	Prevention    string           `json:"prevention"`
	NextSteps     []string         `json:"nextSteps"`
}

type NoCropResponse struct {
	NoCropDetected bool   `json:"noCropDetected"`
	Message        string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Labels int    `json:"labels"`
}
