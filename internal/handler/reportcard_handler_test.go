package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/reportcard-api/internal/middleware"
	"github.com/classbridge/reportcard-api/internal/models"
	"github.com/classbridge/reportcard-api/internal/service"
)

type fakeEnrollments struct{}

func (fakeEnrollments) FindActiveByStudent(ctx context.Context, schoolID, studentID string) (*models.EnrollmentDetail, error) {
	if studentID != "stu-1" {
		return nil, sql.ErrNoRows
	}
	return &models.EnrollmentDetail{
		Enrollment:  models.Enrollment{ID: "enr-1", SchoolID: schoolID, StudentID: studentID, SectionID: "sec-1"},
		StudentName: "Alice", ClassName: "Grade 8", SectionName: "B",
	}, nil
}

func (fakeEnrollments) ListActiveBySection(ctx context.Context, schoolID, sectionID string) ([]models.EnrollmentDetail, error) {
	return []models.EnrollmentDetail{{
		Enrollment:  models.Enrollment{ID: "enr-1", SchoolID: schoolID, StudentID: "stu-1", SectionID: sectionID},
		StudentName: "Alice", ClassName: "Grade 8", SectionName: "B",
	}}, nil
}

type fakeAssessments struct{}

func (fakeAssessments) ListPublishedBySection(ctx context.Context, schoolID, sectionID string, termLabel *string) ([]models.Assessment, error) {
	return []models.Assessment{{ID: "as-1", SectionID: sectionID, Title: "Quiz", MaxMarks: 50, IsPublished: true}}, nil
}

func (fakeAssessments) ListByIDs(ctx context.Context, schoolID string, ids []string) ([]models.Assessment, error) {
	return []models.Assessment{{ID: "as-1", SectionID: "sec-1", Title: "Quiz", MaxMarks: 50, IsPublished: true}}, nil
}

type fakeMarks struct{}

func (fakeMarks) ListByStudent(ctx context.Context, schoolID, studentID string) ([]models.Mark, error) {
	score := 40.0
	return []models.Mark{{StudentID: studentID, AssessmentID: "as-1", Score: &score}}, nil
}

func (fakeMarks) FetchByAssessments(ctx context.Context, schoolID string, assessmentIDs []string) (map[string]map[string]*float64, error) {
	score := 40.0
	return map[string]map[string]*float64{"stu-1": {"as-1": &score}}, nil
}

type fakeSubjects struct{}

func (fakeSubjects) MapNamesByIDs(ctx context.Context, schoolID string, ids []string) (map[string]string, error) {
	return map[string]string{}, nil
}

type fakeScale struct{}

func (fakeScale) ListBySchool(ctx context.Context, schoolID string) ([]models.GradeThreshold, error) {
	return nil, nil
}

type fakeAttendance struct{}

func (fakeAttendance) TallyBySection(ctx context.Context, schoolID, sectionID string) (map[string]models.AttendanceTally, error) {
	return map[string]models.AttendanceTally{}, nil
}

type fakeStudents struct{}

func (fakeStudents) FindByID(ctx context.Context, schoolID, id string) (*models.Student, error) {
	if id != "stu-1" {
		return nil, sql.ErrNoRows
	}
	return &models.Student{ID: id, FullName: "Alice"}, nil
}

func newReportCardHandler() *ReportCardHandler {
	reports := service.NewReportCardService(
		fakeEnrollments{}, fakeAssessments{}, fakeMarks{}, fakeSubjects{},
		fakeScale{}, fakeAttendance{}, fakeStudents{},
		service.ReportCardConfig{}, nil,
	)
	return NewReportCardHandler(reports, nil, nil)
}

func newGinContext(method, path string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, nil)
	c.Request = req
	return c, w
}

func testSchool() *models.School {
	return &models.School{ID: "sch1", Slug: "greenfield", Name: "Greenfield High", Active: true}
}

func TestSectionReports(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newReportCardHandler()

	c, w := newGinContext(http.MethodGet, "/report-cards/sections/sec-1")
	c.Params = gin.Params{{Key: "id", Value: "sec-1"}}
	c.Set(middleware.ContextSchoolKey, testSchool())

	handler.SectionReports(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.ReportCard `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	require.Equal(t, "Alice", envelope.Data[0].StudentName)
	require.Equal(t, 80.0, envelope.Data[0].OverallPercentage)
	require.Equal(t, "A", envelope.Data[0].OverallGrade)
}

func TestStudentReportStaffAccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newReportCardHandler()

	c, w := newGinContext(http.MethodGet, "/report-cards/students/stu-1")
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}
	c.Set(middleware.ContextSchoolKey, testSchool())
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "usr-1", Role: models.RoleTeacher})

	handler.StudentReport(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestStudentReportSelfAccessOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newReportCardHandler()
	linked := "stu-1"

	// A student reading their own card succeeds.
	c, w := newGinContext(http.MethodGet, "/report-cards/students/stu-1")
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}
	c.Set(middleware.ContextSchoolKey, testSchool())
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "usr-2", Role: models.RoleStudent, StudentID: &linked})
	handler.StudentReport(c)
	require.Equal(t, http.StatusOK, w.Code)

	// Reading another student's card is forbidden.
	c, w = newGinContext(http.MethodGet, "/report-cards/students/stu-2")
	c.Params = gin.Params{{Key: "id", Value: "stu-2"}}
	c.Set(middleware.ContextSchoolKey, testSchool())
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "usr-2", Role: models.RoleStudent, StudentID: &linked})
	handler.StudentReport(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestStudentReportUnknownStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newReportCardHandler()

	c, w := newGinContext(http.MethodGet, "/report-cards/students/stu-ghost")
	c.Params = gin.Params{{Key: "id", Value: "stu-ghost"}}
	c.Set(middleware.ContextSchoolKey, testSchool())
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "usr-1", Role: models.RolePrincipal})

	handler.StudentReport(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
