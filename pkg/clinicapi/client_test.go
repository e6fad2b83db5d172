package clinicapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinician-dashboard-be/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second)
}

func TestFetchPatientHistoryAndAnalyze(t *testing.T) {
	var gotPath, gotBody string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/patients/p1/history":
			_, _ = w.Write([]byte(`{"visits":[{"complaint":"headache"}]}`))
		case r.Method == http.MethodPost:
			gotPath = r.URL.EscapedPath()
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			_, _ = w.Write([]byte(`{"content":"Likely tension headache"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	history, err := client.FetchPatientHistory(context.Background(), "p1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"visits":[{"complaint":"headache"}]}`, string(history))

	content, err := client.AnalyzePatient(context.Background(), "what about headache?", history)
	require.NoError(t, err)
	assert.Equal(t, "Likely tension headache", content)
	assert.Equal(t, "/medical_analysis/what%20about%20headache%3F", gotPath)
	assert.JSONEq(t, string(history), gotBody)
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		malformed bool
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"detail":"boom"}`},
		{name: "not json", status: http.StatusOK, body: `<html>`},
		{name: "missing content", status: http.StatusOK, body: `{}`, malformed: true},
		{name: "blank content", status: http.StatusOK, body: `{"content":"  "}`, malformed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.AnalyzePatient(context.Background(), "headache", json.RawMessage(`{}`))
			require.Error(t, err)
			if tt.malformed {
				var merr *model.MalformedResponseError
				require.True(t, errors.As(err, &merr))
				assert.Equal(t, EndpointMedicalAnalysis, merr.Endpoint)
				return
			}
			var aerr *model.AnalysisError
			require.True(t, errors.As(err, &aerr))
			assert.Equal(t, tt.status, aerr.Status)
		})
	}
}

func TestFetchPatientHistoryFailure(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.FetchPatientHistory(context.Background(), "p404")
	var herr *model.HistoryFetchError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, "p404", herr.Subject)
	assert.Equal(t, http.StatusNotFound, herr.Status)
}

func TestFetchPatientHistoryUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client := NewClient(srv.URL, time.Second)
	srv.Close()

	_, err := client.FetchPatientHistory(context.Background(), "p1")
	var herr *model.HistoryFetchError
	require.True(t, errors.As(err, &herr))
	assert.Zero(t, herr.Status)
	assert.Error(t, herr.Err)
}

func TestDoctorsViewAndAggregate(t *testing.T) {
	var received doctorAnalysisRequest
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/patients/doctors-view":
			_, _ = w.Write([]byte(`[{"id":"p1"},{"id":"p2"}]`))
		case "/doctor_analysis/summary":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			_, _ = w.Write([]byte(`{"content":"Two patients need follow-up"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	patients, err := client.FetchDoctorsView(context.Background())
	require.NoError(t, err)
	require.Len(t, patients, 2)

	content, err := client.AnalyzeAggregate(context.Background(), "summary", patients)
	require.NoError(t, err)
	assert.Equal(t, "Two patients need follow-up", content)
	require.Len(t, received.Patients, 2)
	assert.JSONEq(t, `{"id":"p2"}`, string(received.Patients[1]))
}

func TestAggregateWithoutPatientsSendsEmptyArray(t *testing.T) {
	var raw string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
		_, _ = w.Write([]byte(`{"content":"ok"}`))
	})

	_, err := client.AnalyzeAggregate(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"patients":[]}`, raw)
}
