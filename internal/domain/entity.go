package domain

import (
	"time"

	"gorm.io/datatypes"
)

// CompletionThreshold is the percentage at which a partial update is reported as complete.
const CompletionThreshold = 99

// ========== REMOTE LMS MODELS ==========

type Trainer struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Course - read-only for the lifetime of a view session
type Course struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Trainer     *Trainer `json:"trainer,omitempty"`
	Duration    float64  `json:"duration"` // hours
	Description string   `json:"description"`
	Type        string   `json:"type"`
}

type Module struct {
	ID          uint   `json:"id"`
	CourseID    uint   `json:"courseId,omitempty"`
	Name        string `json:"name"`
	FilePath    string `json:"filePath"`
	Description string `json:"description"`
}

// ProgressRecord - one per (learner, module)
type ProgressRecord struct {
	LearnerID          uint `json:"learnerId"`
	ModuleID           uint `json:"moduleId"`
	CourseID           uint `json:"courseId"`
	ProgressPercentage int  `json:"progressPercentage"`
	IsCompleted        bool `json:"isCompleted"`
}

// Enrollment as returned by my-courses. The remote API returns course rows,
// so ID carries the course id when CourseID is not set.
type Enrollment struct {
	ID           uint      `json:"id"`
	CourseID     uint      `json:"courseId,omitempty"`
	LearnerID    uint      `json:"learnerId,omitempty"`
	EnrollmentID uint      `json:"enrollmentId"`
	Name         string    `json:"name,omitempty"`
	Duration     float64   `json:"duration,omitempty"`
	Status       string    `json:"status"`
	EnrolledAt   time.Time `json:"enrolledAt"`
}

// Course returns the id of the enrolled course.
func (e Enrollment) Course() uint {
	if e.CourseID != 0 {
		return e.CourseID
	}
	return e.ID
}

const EnrollmentStatusCompleted = "Completed"

type Feedback struct {
	ID        uint   `json:"id"`
	LearnerID uint   `json:"learnerId"`
	CourseID  uint   `json:"courseId"`
	Message   string `json:"message"`
	Rating    int    `json:"rating"`
}

// ProgressUpdate is the payload of both partial and completion submissions.
type ProgressUpdate struct {
	LearnerID          uint `json:"LearnerId"`
	ModuleID           uint `json:"ModuleId"`
	CourseID           uint `json:"CourseId"`
	ProgressPercentage int  `json:"ProgressPercentage"`
	IsCompleted        bool `json:"IsCompleted"`
}

type FeedbackInput struct {
	Message string `json:"message" validate:"required,min=10"`
	Rating  int    `json:"rating" validate:"min=1,max=5"`
}

type LoginInput struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
	Role     string `json:"role" form:"role"`
}

// Credential is the per-request session context threaded through every
// remote call: the bearer token and the identity decoded from it.
type Credential struct {
	Token     string
	LearnerID uint
}

// ========== VIEW MODEL ==========

// ModuleView - Module annotated with the learner's progress
type ModuleView struct {
	Module
	FileURL            string `json:"fileUrl,omitempty"`
	Playable           bool   `json:"playable"`
	ProgressPercentage int    `json:"progressPercentage"`
	IsCompleted        bool   `json:"isCompleted"`
}

type SelectionKind string

const (
	SelectNone     SelectionKind = ""
	SelectModule   SelectionKind = "module"
	SelectFeedback SelectionKind = "feedback"
)

// Selection points at a module or at the feedback panel.
type Selection struct {
	Kind     SelectionKind `json:"kind"`
	ModuleID uint          `json:"module_id,omitempty"`
}

// CourseView is the merged, ephemeral view model of one learner on one course.
type CourseView struct {
	Course         *Course      `json:"course"`
	Enrolled       bool         `json:"enrolled"`
	Modules        []ModuleView `json:"modules"`
	Selected       Selection    `json:"selected"`
	CourseProgress int          `json:"course_progress"`
	Feedbacks      []Feedback   `json:"feedbacks"`
	HasFeedback    bool         `json:"has_feedback"`
	LoadedAt       time.Time    `json:"loaded_at"`
}

// Module returns the module entry with the given id, for in-place mutation.
func (v *CourseView) Module(id uint) *ModuleView {
	for i := range v.Modules {
		if v.Modules[i].ID == id {
			return &v.Modules[i]
		}
	}
	return nil
}

// SelectedModule returns the selected module entry or nil when the feedback
// panel or nothing is selected.
func (v *CourseView) SelectedModule() *ModuleView {
	if v.Selected.Kind != SelectModule {
		return nil
	}
	return v.Module(v.Selected.ModuleID)
}

// Clone copies the view so it can be serialized while the session keeps mutating.
func (v *CourseView) Clone() *CourseView {
	if v == nil {
		return nil
	}
	out := *v
	out.Modules = append(make([]ModuleView, 0, len(v.Modules)), v.Modules...)
	out.Feedbacks = append(make([]Feedback, 0, len(v.Feedbacks)), v.Feedbacks...)
	return &out
}

// ========== STORED MODELS ==========

// ViewSnapshot - last successfully reconciled view, kept as the prior view model
type ViewSnapshot struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	LearnerID uint           `json:"learner_id" gorm:"not null;uniqueIndex:idx_snapshot_learner_course"`
	CourseID  uint           `json:"course_id" gorm:"not null;uniqueIndex:idx_snapshot_learner_course"`
	View      CourseView     `json:"view" gorm:"-"`
	Payload   datatypes.JSON `json:"-"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

type ActivityType string

const (
	ActivityPartialSent      ActivityType = "partial_sent"
	ActivityPartialFailed    ActivityType = "partial_failed"
	ActivityModuleCompleted  ActivityType = "module_completed"
	ActivityCompletionFailed ActivityType = "completion_failed"
	ActivityFeedbackSent     ActivityType = "feedback_sent"
)

// Activity - journal entry of a progress or feedback write
type Activity struct {
	ID        string       `json:"id" bson:"_id,omitempty"`
	Type      ActivityType `json:"type" bson:"type"`
	LearnerID uint         `json:"learner_id" bson:"learner_id"`
	CourseID  uint         `json:"course_id" bson:"course_id"`
	ModuleID  uint         `json:"module_id,omitempty" bson:"module_id,omitempty"`
	Percent   int          `json:"percent" bson:"percent"`
	Error     string       `json:"error,omitempty" bson:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp" bson:"timestamp"`
}

// ========== RESPONSE DTOs ==========

// EnrollmentWithCourse - enrollment enriched with trainer info from the course catalogue
type EnrollmentWithCourse struct {
	Enrollment
	Trainer Trainer `json:"trainer"`
}

type LearnerDashboardData struct {
	LearnerID         uint                   `json:"learner_id"`
	TotalEnrollments  int                    `json:"total_enrollments"`
	CompletedCourses  int                    `json:"completed_courses"`
	InProgressCourses int                    `json:"in_progress_courses"`
	Notifications     int                    `json:"notifications"`
	Enrollments       []EnrollmentWithCourse `json:"enrollments"`
	RecentEnrollments []EnrollmentWithCourse `json:"recent_enrollments"`
	RecentActivities  []Activity             `json:"recent_activities"`
}
