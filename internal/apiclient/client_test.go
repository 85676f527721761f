package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/rs/zerolog"
)

func enveloped(data interface{}) map[string]interface{} {
	return map[string]interface{}{"data": data}
}

func TestFetchAvailableExamsBareArray(t *testing.T) {
	examID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/student/exams" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(enveloped([]model.Exam{{ID: examID, ExamName: "Databases Final"}}))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", zerolog.Nop())
	exams, err := c.FetchAvailableExams(context.Background())
	if err != nil {
		t.Fatalf("FetchAvailableExams: %v", err)
	}
	if len(exams) != 1 || exams[0].ID != examID {
		t.Errorf("exams = %+v", exams)
	}
}

func TestFetchAvailableExamsWrappedObject(t *testing.T) {
	examID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(enveloped(map[string]interface{}{
			"exams": []model.Exam{{ID: examID, ExamName: "Networks Quiz"}},
		}))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", zerolog.Nop())
	exams, err := c.FetchAvailableExams(context.Background())
	if err != nil {
		t.Fatalf("FetchAvailableExams: %v", err)
	}
	if len(exams) != 1 || exams[0].ExamName != "Networks Quiz" {
		t.Errorf("exams = %+v", exams)
	}
}

func TestStartAttempt(t *testing.T) {
	examID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := "/api/v1/student/exams/" + examID.String() + "/attempts"
		if r.Method != http.MethodPost || r.URL.Path != want {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(enveloped(map[string]interface{}{
			"exam": model.ExamPayload{
				ExamID:          examID,
				ExamName:        "Algorithms Midterm",
				DurationMinutes: 90,
			},
			"attempt_number": 2,
		}))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", zerolog.Nop())
	payload, attempt, err := c.StartAttempt(context.Background(), examID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if payload.ExamID != examID || payload.DurationMinutes != 90 {
		t.Errorf("payload = %+v", payload)
	}
	if attempt != 2 {
		t.Errorf("attempt = %d, want 2", attempt)
	}
}

func TestCreateSubmissionSendsRequestBody(t *testing.T) {
	examID := uuid.New()
	var received model.CreateSubmissionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(enveloped(model.Submission{
			ID:     uuid.New(),
			ExamID: examID,
			Score:  1,
			Status: model.SubmissionStatusSubmitted,
		}))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", zerolog.Nop())
	sub, err := c.CreateSubmission(context.Background(), model.CreateSubmissionRequest{
		ExamID:        examID,
		AttemptNumber: 1,
		Answers: []model.CreateSubmissionAnswer{
			{QuestionID: uuid.New(), SelectedOption: "opt-a"},
		},
	})
	if err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}
	if sub.ExamID != examID {
		t.Errorf("submission = %+v", sub)
	}
	if received.AttemptNumber != 1 || len(received.Answers) != 1 {
		t.Errorf("server received %+v", received)
	}
}

func TestErrorEnvelopeBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{
				"code":    "ALREADY_SUBMITTED",
				"message": "This attempt has already been submitted",
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", zerolog.Nop())
	_, err := c.CreateSubmission(context.Background(), model.CreateSubmissionRequest{
		ExamID:        uuid.New(),
		AttemptNumber: 1,
	})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusConflict || apiErr.Code != "ALREADY_SUBMITTED" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestSaveCheatingLog(t *testing.T) {
	examID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/student/cheating-logs" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req model.SaveCheatingLogRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(enveloped(model.CheatingLog{
			ID:             uuid.New(),
			ExamID:         req.ExamID,
			Email:          req.Email,
			CellPhoneCount: req.CellPhoneCount,
		}))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", zerolog.Nop())
	entry, err := c.SaveCheatingLog(context.Background(), model.SaveCheatingLogRequest{
		ExamID:         examID,
		Username:       "alice",
		Email:          "alice@example.com",
		CellPhoneCount: 3,
	})
	if err != nil {
		t.Fatalf("SaveCheatingLog: %v", err)
	}
	if entry.ExamID != examID || entry.CellPhoneCount != 3 {
		t.Errorf("entry = %+v", entry)
	}
}

func TestReportViolation(t *testing.T) {
	examID := uuid.New()
	detected := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/student/violations" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(enveloped(nil))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", zerolog.Nop())
	err := c.ReportViolation(context.Background(), examID, model.ViolationCellPhone, "https://ucarecdn.com/x/", detected)
	if err != nil {
		t.Fatalf("ReportViolation: %v", err)
	}
	if received["type"] != string(model.ViolationCellPhone) {
		t.Errorf("type = %v", received["type"])
	}
	if int64(received["detected_at"].(float64)) != detected.Unix() {
		t.Errorf("detected_at = %v", received["detected_at"])
	}
}
