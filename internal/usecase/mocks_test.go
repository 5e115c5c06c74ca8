package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"onlearn-learner/internal/domain"
	"onlearn-learner/internal/progress"
)

type MockLMSClient struct {
	mock.Mock
}

func (m *MockLMSClient) Login(ctx context.Context, input domain.LoginInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *MockLMSClient) GetCourse(ctx context.Context, cred domain.Credential, courseID uint) (*domain.Course, error) {
	args := m.Called(ctx, cred, courseID)
	course, _ := args.Get(0).(*domain.Course)
	return course, args.Error(1)
}

func (m *MockLMSClient) GetAllCourses(ctx context.Context, cred domain.Credential) ([]domain.Course, error) {
	args := m.Called(ctx, cred)
	courses, _ := args.Get(0).([]domain.Course)
	return courses, args.Error(1)
}

func (m *MockLMSClient) GetMyEnrollments(ctx context.Context, cred domain.Credential) ([]domain.Enrollment, error) {
	args := m.Called(ctx, cred)
	enrollments, _ := args.Get(0).([]domain.Enrollment)
	return enrollments, args.Error(1)
}

func (m *MockLMSClient) Enroll(ctx context.Context, cred domain.Credential, courseID uint) error {
	return m.Called(ctx, cred, courseID).Error(0)
}

func (m *MockLMSClient) Unenroll(ctx context.Context, cred domain.Credential, enrollmentID uint) error {
	return m.Called(ctx, cred, enrollmentID).Error(0)
}

func (m *MockLMSClient) CountNotifications(ctx context.Context, cred domain.Credential) (int, error) {
	args := m.Called(ctx, cred)
	return args.Int(0), args.Error(1)
}

func (m *MockLMSClient) GetModulesByCourse(ctx context.Context, cred domain.Credential, courseID uint) ([]domain.Module, error) {
	args := m.Called(ctx, cred, courseID)
	modules, _ := args.Get(0).([]domain.Module)
	return modules, args.Error(1)
}

func (m *MockLMSClient) GetModuleProgress(ctx context.Context, cred domain.Credential, courseID uint) ([]domain.ProgressRecord, error) {
	args := m.Called(ctx, cred, courseID)
	records, _ := args.Get(0).([]domain.ProgressRecord)
	return records, args.Error(1)
}

func (m *MockLMSClient) GetFeedbackByCourse(ctx context.Context, cred domain.Credential, courseID uint) ([]domain.Feedback, error) {
	args := m.Called(ctx, cred, courseID)
	feedbacks, _ := args.Get(0).([]domain.Feedback)
	return feedbacks, args.Error(1)
}

func (m *MockLMSClient) UpdateProgress(ctx context.Context, cred domain.Credential, update domain.ProgressUpdate) error {
	return m.Called(ctx, cred, update).Error(0)
}

func (m *MockLMSClient) CompleteProgress(ctx context.Context, cred domain.Credential, update domain.ProgressUpdate) error {
	return m.Called(ctx, cred, update).Error(0)
}

func (m *MockLMSClient) GetCourseProgress(ctx context.Context, cred domain.Credential, courseID uint) (*float64, error) {
	args := m.Called(ctx, cred, courseID)
	p, _ := args.Get(0).(*float64)
	return p, args.Error(1)
}

func (m *MockLMSClient) SubmitFeedback(ctx context.Context, cred domain.Credential, courseID uint, input domain.FeedbackInput) (*domain.Feedback, error) {
	args := m.Called(ctx, cred, courseID, input)
	fb, _ := args.Get(0).(*domain.Feedback)
	return fb, args.Error(1)
}

type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Save(ctx context.Context, learnerID, courseID uint, view *domain.CourseView) error {
	return m.Called(ctx, learnerID, courseID, view).Error(0)
}

func (m *MockSnapshotRepository) Get(ctx context.Context, learnerID, courseID uint) (*domain.CourseView, error) {
	args := m.Called(ctx, learnerID, courseID)
	view, _ := args.Get(0).(*domain.CourseView)
	return view, args.Error(1)
}

func (m *MockSnapshotRepository) Delete(ctx context.Context, learnerID, courseID uint) error {
	return m.Called(ctx, learnerID, courseID).Error(0)
}

type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) Record(ctx context.Context, activity *domain.Activity) error {
	return m.Called(ctx, activity).Error(0)
}

func (m *MockActivityRepository) GetRecentByLearner(ctx context.Context, learnerID uint, limit int) ([]domain.Activity, error) {
	args := m.Called(ctx, learnerID, limit)
	acts, _ := args.Get(0).([]domain.Activity)
	return acts, args.Error(1)
}

// manualClock holds timers until fire is called.
type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	clock *manualClock
	f     func()
	done  bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.done
	t.done = true
	return active
}

func (c *manualClock) AfterFunc(_ time.Duration, f func()) progress.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, f: f}
	c.timers = append(c.timers, t)
	return t
}

// fire runs every active timer in creation order.
func (c *manualClock) fire() int {
	c.mu.Lock()
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.done {
			t.done = true
			due = append(due, t)
		}
	}
	c.timers = nil
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}
