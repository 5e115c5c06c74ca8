package domain

import "context"

// LMSClient is the remote LMS REST API. Every call carries the credential.
type LMSClient interface {
	Login(ctx context.Context, input LoginInput) (string, error)

	GetCourse(ctx context.Context, cred Credential, courseID uint) (*Course, error)
	GetAllCourses(ctx context.Context, cred Credential) ([]Course, error)
	GetMyEnrollments(ctx context.Context, cred Credential) ([]Enrollment, error)
	Enroll(ctx context.Context, cred Credential, courseID uint) error
	Unenroll(ctx context.Context, cred Credential, enrollmentID uint) error
	CountNotifications(ctx context.Context, cred Credential) (int, error)

	GetModulesByCourse(ctx context.Context, cred Credential, courseID uint) ([]Module, error)
	GetModuleProgress(ctx context.Context, cred Credential, courseID uint) ([]ProgressRecord, error)
	GetFeedbackByCourse(ctx context.Context, cred Credential, courseID uint) ([]Feedback, error)

	UpdateProgress(ctx context.Context, cred Credential, update ProgressUpdate) error
	CompleteProgress(ctx context.Context, cred Credential, update ProgressUpdate) error
	// GetCourseProgress returns nil when the server has no aggregate for the course.
	GetCourseProgress(ctx context.Context, cred Credential, courseID uint) (*float64, error)

	SubmitFeedback(ctx context.Context, cred Credential, courseID uint, input FeedbackInput) (*Feedback, error)
}

type SnapshotRepository interface { // PostgreSQL
	Save(ctx context.Context, learnerID, courseID uint, view *CourseView) error
	Get(ctx context.Context, learnerID, courseID uint) (*CourseView, error)
	Delete(ctx context.Context, learnerID, courseID uint) error
}

type ActivityRepository interface { // MongoDB
	Record(ctx context.Context, activity *Activity) error
	GetRecentByLearner(ctx context.Context, learnerID uint, limit int) ([]Activity, error)
}

type AuthUsecase interface {
	Login(ctx context.Context, input LoginInput) (string, error)
}

type CourseViewUsecase interface {
	// Reconcile builds a fresh view model without touching any session.
	Reconcile(ctx context.Context, cred Credential, courseID uint) (*CourseView, error)

	Open(ctx context.Context, cred Credential, courseID uint) (*CourseView, error)
	Get(ctx context.Context, cred Credential, courseID uint) (*CourseView, error)
	Close(ctx context.Context, cred Credential, courseID uint) error

	SelectModule(ctx context.Context, cred Credential, courseID, moduleID uint) (*CourseView, error)
	SelectFeedback(ctx context.Context, cred Credential, courseID uint) (*CourseView, error)

	Pause(ctx context.Context, cred Credential, courseID uint, position, duration float64) (*CourseView, error)
	Ended(ctx context.Context, cred Credential, courseID uint) (*CourseView, error)

	SubmitFeedback(ctx context.Context, cred Credential, courseID uint, input FeedbackInput) (*CourseView, error)

	Enroll(ctx context.Context, cred Credential, courseID uint) (*CourseView, error)
	Unenroll(ctx context.Context, cred Credential, courseID uint) (*CourseView, error)
}

type DashboardUsecase interface {
	GetLearnerDashboard(ctx context.Context, cred Credential) (*LearnerDashboardData, error)
}
