// Package clinicapi talks to the clinical backend: patient history, the
// doctors-view snapshot and the two analysis endpoints.
package clinicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clinician-dashboard-be/internal/model"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	EndpointMedicalAnalysis = "medical_analysis"
	EndpointDoctorAnalysis  = "doctor_analysis"
	doctorsViewSubject      = "doctors-view"
	maxErrorBody            = 512
)

type Client struct {
	BaseURL string
	Client  *http.Client
	tracer  trace.Tracer
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: timeout,
		},
		tracer: otel.Tracer("clinician-dashboard-be/clinicapi"),
	}
}

type analysisResponse struct {
	Content *string `json:"content"`
}

type doctorAnalysisRequest struct {
	Patients []json.RawMessage `json:"patients"`
}

// FetchPatientHistory returns the raw history payload for a patient. Any
// transport error or non-2xx status is a *model.HistoryFetchError.
func (c *Client) FetchPatientHistory(ctx context.Context, patientID string) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "clinicapi.FetchPatientHistory", trace.WithAttributes(attribute.String("patient.id", patientID)))
	defer span.End()

	body, status, err := c.do(ctx, http.MethodGet, "/patients/"+url.PathEscape(patientID)+"/history", nil)
	if err != nil || status/100 != 2 {
		herr := &model.HistoryFetchError{Subject: patientID, Status: status, Err: err}
		recordError(span, herr)
		return nil, herr
	}
	if !json.Valid(body) {
		herr := &model.HistoryFetchError{Subject: patientID, Err: fmt.Errorf("history is not valid JSON")}
		recordError(span, herr)
		return nil, herr
	}
	return json.RawMessage(body), nil
}

// FetchDoctorsView returns the aggregate snapshot of every patient.
func (c *Client) FetchDoctorsView(ctx context.Context) ([]json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "clinicapi.FetchDoctorsView")
	defer span.End()

	body, status, err := c.do(ctx, http.MethodGet, "/patients/doctors-view", nil)
	if err != nil || status/100 != 2 {
		herr := &model.HistoryFetchError{Subject: doctorsViewSubject, Status: status, Err: err}
		recordError(span, herr)
		return nil, herr
	}

	var patients []json.RawMessage
	if err := json.Unmarshal(body, &patients); err != nil {
		herr := &model.HistoryFetchError{Subject: doctorsViewSubject, Err: fmt.Errorf("unmarshal doctors view: %w", err)}
		recordError(span, herr)
		return nil, herr
	}
	return patients, nil
}

// AnalyzePatient posts the patient's history together with the query text.
func (c *Client) AnalyzePatient(ctx context.Context, query string, history json.RawMessage) (string, error) {
	return c.analyze(ctx, EndpointMedicalAnalysis, query, []byte(history))
}

// AnalyzeAggregate posts the doctors-view snapshot together with the query text.
func (c *Client) AnalyzeAggregate(ctx context.Context, query string, patients []json.RawMessage) (string, error) {
	if patients == nil {
		patients = []json.RawMessage{}
	}
	payload, err := json.Marshal(doctorAnalysisRequest{Patients: patients})
	if err != nil {
		return "", &model.AnalysisError{Endpoint: EndpointDoctorAnalysis, Err: fmt.Errorf("marshal request: %w", err)}
	}
	return c.analyze(ctx, EndpointDoctorAnalysis, query, payload)
}

// analyze returns *model.MalformedResponseError for a 2xx reply without content.
func (c *Client) analyze(ctx context.Context, endpoint, query string, payload []byte) (string, error) {
	ctx, span := c.tracer.Start(ctx, "clinicapi."+endpoint)
	defer span.End()

	body, status, err := c.do(ctx, http.MethodPost, "/"+endpoint+"/"+url.PathEscape(query), payload)
	if err != nil || status/100 != 2 {
		aerr := &model.AnalysisError{Endpoint: endpoint, Status: status, Err: err}
		if err == nil {
			aerr.Err = fmt.Errorf("body: %s", truncate(body))
		}
		recordError(span, aerr)
		return "", aerr
	}

	var resp analysisResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		aerr := &model.AnalysisError{Endpoint: endpoint, Status: status, Err: fmt.Errorf("unmarshal response: %w", err)}
		recordError(span, aerr)
		return "", aerr
	}
	if resp.Content == nil || strings.TrimSpace(*resp.Content) == "" {
		return "", &model.MalformedResponseError{Endpoint: endpoint}
	}
	return *resp.Content, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
