package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"onlearn-learner/internal/domain"
)

const defaultLearnerRole = "Learner"

// APIError is a non-2xx answer of the remote LMS API.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	msg := e.Body
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal([]byte(e.Body), &payload) == nil && payload.Message != "" {
		msg = payload.Message
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("lms api %s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type lmsClient struct {
	client *resty.Client
}

func NewLMSClient(baseURL string, timeout time.Duration) domain.LMSClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &lmsClient{client: client}
}

// request carries the credential of the calling learner on every call.
func (c *lmsClient) request(ctx context.Context, cred domain.Credential) *resty.Request {
	req := c.client.R().SetContext(ctx)
	if cred.Token != "" {
		req.SetAuthToken(cred.Token)
	}
	if cred.LearnerID != 0 {
		req.SetHeader("LearnerId", strconv.FormatUint(uint64(cred.LearnerID), 10))
	}
	return req
}

func (c *lmsClient) do(req *resty.Request, method, path string) error {
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("lms api %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &APIError{Method: method, Path: path, Status: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

func (c *lmsClient) Login(ctx context.Context, input domain.LoginInput) (string, error) {
	role := input.Role
	if role == "" {
		role = defaultLearnerRole
	}
	var out struct {
		Token string `json:"token"`
	}
	req := c.client.R().SetContext(ctx).
		SetMultipartFormData(map[string]string{
			"email":    input.Email,
			"password": input.Password,
			"role":     role,
		}).
		SetResult(&out)
	if err := c.do(req, resty.MethodPost, "/api/auth/login/user"); err != nil {
		if IsStatus(err, http.StatusBadRequest) || IsStatus(err, http.StatusUnauthorized) || IsStatus(err, http.StatusNotFound) {
			return "", fmt.Errorf("%w: %v", domain.ErrInvalidLogin, err)
		}
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("lms api login: empty token")
	}
	return out.Token, nil
}

func (c *lmsClient) GetCourse(ctx context.Context, cred domain.Credential, courseID uint) (*domain.Course, error) {
	var course domain.Course
	req := c.request(ctx, cred).SetResult(&course)
	if err := c.do(req, resty.MethodGet, fmt.Sprintf("/api/course/%d", courseID)); err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: %w", domain.ErrCourseNotFound, err)
		}
		return nil, err
	}
	return &course, nil
}

func (c *lmsClient) GetAllCourses(ctx context.Context, cred domain.Credential) ([]domain.Course, error) {
	var courses []domain.Course
	req := c.request(ctx, cred).SetResult(&courses)
	if err := c.do(req, resty.MethodGet, "/api/course/all"); err != nil {
		return nil, err
	}
	return courses, nil
}

func (c *lmsClient) GetMyEnrollments(ctx context.Context, cred domain.Credential) ([]domain.Enrollment, error) {
	var enrollments []domain.Enrollment
	req := c.request(ctx, cred).SetResult(&enrollments)
	if err := c.do(req, resty.MethodGet, "/api/enrollment/my-courses"); err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (c *lmsClient) Enroll(ctx context.Context, cred domain.Credential, courseID uint) error {
	req := c.request(ctx, cred).SetBody(map[string]interface{}{})
	return c.do(req, resty.MethodPost, fmt.Sprintf("/api/Enrollment/enroll/%d", courseID))
}

func (c *lmsClient) Unenroll(ctx context.Context, cred domain.Credential, enrollmentID uint) error {
	return c.do(c.request(ctx, cred), resty.MethodDelete, fmt.Sprintf("/api/Enrollment/%d", enrollmentID))
}

func (c *lmsClient) CountNotifications(ctx context.Context, cred domain.Credential) (int, error) {
	var notifications []json.RawMessage
	req := c.request(ctx, cred).SetResult(&notifications)
	if err := c.do(req, resty.MethodGet, "/api/notifications"); err != nil {
		return 0, err
	}
	return len(notifications), nil
}

func (c *lmsClient) GetModulesByCourse(ctx context.Context, cred domain.Credential, courseID uint) ([]domain.Module, error) {
	var modules []domain.Module
	req := c.request(ctx, cred).SetResult(&modules)
	if err := c.do(req, resty.MethodGet, fmt.Sprintf("/api/Module/course/%d", courseID)); err != nil {
		return nil, err
	}
	return modules, nil
}

func (c *lmsClient) GetModuleProgress(ctx context.Context, cred domain.Credential, courseID uint) ([]domain.ProgressRecord, error) {
	var records []domain.ProgressRecord
	req := c.request(ctx, cred).SetResult(&records)
	if err := c.do(req, resty.MethodGet, fmt.Sprintf("/api/Progress/modules/%d", courseID)); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *lmsClient) GetFeedbackByCourse(ctx context.Context, cred domain.Credential, courseID uint) ([]domain.Feedback, error) {
	var feedbacks []domain.Feedback
	req := c.request(ctx, cred).SetResult(&feedbacks)
	if err := c.do(req, resty.MethodGet, fmt.Sprintf("/api/Feedbacks/course/%d", courseID)); err != nil {
		return nil, err
	}
	return feedbacks, nil
}

func (c *lmsClient) UpdateProgress(ctx context.Context, cred domain.Credential, update domain.ProgressUpdate) error {
	req := c.request(ctx, cred).SetBody(update)
	return c.do(req, resty.MethodPost, "/api/Progress/update")
}

func (c *lmsClient) CompleteProgress(ctx context.Context, cred domain.Credential, update domain.ProgressUpdate) error {
	req := c.request(ctx, cred).SetBody(update)
	return c.do(req, resty.MethodPost, "/api/Progress/complete")
}

func (c *lmsClient) GetCourseProgress(ctx context.Context, cred domain.Credential, courseID uint) (*float64, error) {
	var out struct {
		Progress *float64 `json:"progress"`
	}
	req := c.request(ctx, cred).SetResult(&out)
	if err := c.do(req, resty.MethodGet, fmt.Sprintf("/api/Progress/course/%d", courseID)); err != nil {
		return nil, err
	}
	return out.Progress, nil
}

func (c *lmsClient) SubmitFeedback(ctx context.Context, cred domain.Credential, courseID uint, input domain.FeedbackInput) (*domain.Feedback, error) {
	var feedback domain.Feedback
	req := c.request(ctx, cred).
		SetMultipartFormData(map[string]string{
			"LearnerId": strconv.FormatUint(uint64(cred.LearnerID), 10),
			"CourseId":  strconv.FormatUint(uint64(courseID), 10),
			"Message":   input.Message,
			"Rating":    strconv.Itoa(input.Rating),
		}).
		SetResult(&feedback)
	if err := c.do(req, resty.MethodPost, "/api/Feedbacks"); err != nil {
		return nil, err
	}
	if feedback.LearnerID == 0 {
		feedback.LearnerID = cred.LearnerID
	}
	if feedback.CourseID == 0 {
		feedback.CourseID = courseID
	}
	if feedback.Message == "" {
		feedback.Message = input.Message
		feedback.Rating = input.Rating
	}
	return &feedback, nil
}
