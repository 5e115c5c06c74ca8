package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onlearn-learner/internal/domain"
)

var learner = domain.Credential{Token: "tok-123", LearnerID: 42}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) domain.LMSClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewLMSClient(srv.URL, 2*time.Second)
}

func TestLMSClientSendsCredential(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "42", r.Header.Get("LearnerId"))
		assert.Equal(t, "/api/Module/course/7", r.URL.Path)
		writeJSON(w, http.StatusOK, []map[string]interface{}{
			{"id": 1, "name": "Intro", "filePath": "intro.mp4"},
			{"id": 2, "name": "Slides", "filePath": "slides.pdf"},
		})
	})

	modules, err := client.GetModulesByCourse(context.Background(), learner, 7)
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, "intro.mp4", modules[0].FilePath)
}

func TestLMSClientProgressPayload(t *testing.T) {
	var got domain.ProgressUpdate
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/Progress/update", r.URL.Path)

		var raw map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		for _, key := range []string{"LearnerId", "ModuleId", "CourseId", "ProgressPercentage", "IsCompleted"} {
			assert.Contains(t, raw, key)
		}
		got.ProgressPercentage = int(raw["ProgressPercentage"].(float64))
		got.IsCompleted = raw["IsCompleted"].(bool)
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})

	err := client.UpdateProgress(context.Background(), learner, domain.ProgressUpdate{
		LearnerID: 42, ModuleID: 3, CourseID: 7, ProgressPercentage: 99, IsCompleted: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 99, got.ProgressPercentage)
	assert.True(t, got.IsCompleted)
}

func TestLMSClientCourseProgress(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *float64
	}{
		{name: "value", body: `{"progress": 37.5}`, want: floatPtr(37.5)},
		{name: "null", body: `{"progress": null}`, want: nil},
		{name: "missing", body: `{}`, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/Progress/course/7", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})
			got, err := client.GetCourseProgress(context.Background(), learner, 7)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLMSClientAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Course not found"})
	})

	_, err := client.GetCourse(context.Background(), learner, 99)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.ErrorIs(t, err, domain.ErrCourseNotFound)
	assert.Contains(t, err.Error(), "Course not found")
}

func TestLMSClientRejectedToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
	})

	_, err := client.GetMyEnrollments(context.Background(), learner)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.NotErrorIs(t, err, domain.ErrCourseNotFound)

	_, err = client.GetCourse(context.Background(), learner, 7)
	assert.True(t, IsStatus(fmt.Errorf("fetch course: %w", err), http.StatusUnauthorized))
}

func TestLMSClientLogin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login/user", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "ann@example.com", r.FormValue("email"))
		assert.Equal(t, "secret", r.FormValue("password"))
		assert.Equal(t, "Learner", r.FormValue("role"))
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]string{"token": "new-token"})
	})

	token, err := client.Login(context.Background(), domain.LoginInput{Email: "ann@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "new-token", token)
}

func TestLMSClientSubmitFeedback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "42", r.FormValue("LearnerId"))
		assert.Equal(t, "7", r.FormValue("CourseId"))
		assert.Equal(t, "Great course overall", r.FormValue("Message"))
		assert.Equal(t, "5", r.FormValue("Rating"))
		writeJSON(w, http.StatusCreated, map[string]interface{}{"id": 11, "learnerId": 42, "courseId": 7, "message": "Great course overall", "rating": 5})
	})

	fb, err := client.SubmitFeedback(context.Background(), learner, 7, domain.FeedbackInput{Message: "Great course overall", Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, uint(11), fb.ID)
	assert.Equal(t, uint(42), fb.LearnerID)
}

func TestLMSClientEnrollment(t *testing.T) {
	var calls []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/api/enrollment/my-courses":
			writeJSON(w, http.StatusOK, []map[string]interface{}{
				{"id": 7, "enrollmentId": 70, "status": "Completed", "enrolledAt": "2024-03-01T10:00:00Z"},
			})
		default:
			writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
		}
	})
	ctx := context.Background()

	enrollments, err := client.GetMyEnrollments(ctx, learner)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, uint(7), enrollments[0].Course())
	assert.Equal(t, uint(70), enrollments[0].EnrollmentID)

	require.NoError(t, client.Enroll(ctx, learner, 8))
	require.NoError(t, client.Unenroll(ctx, learner, 70))
	assert.Equal(t, []string{
		"GET /api/enrollment/my-courses",
		"POST /api/Enrollment/enroll/8",
		"DELETE /api/Enrollment/70",
	}, calls)
}

func floatPtr(f float64) *float64 { return &f }

func TestLMSClientLoginRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid email or password"})
	})

	_, err := client.Login(context.Background(), domain.LoginInput{Email: "ann@example.com", Password: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidLogin)
}
