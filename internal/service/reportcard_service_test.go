package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classbridge/reportcard-api/internal/models"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
)

type stubEnrollmentReader struct {
	active map[string]*models.EnrollmentDetail
	cohort []models.EnrollmentDetail
}

func (s *stubEnrollmentReader) FindActiveByStudent(ctx context.Context, schoolID, studentID string) (*models.EnrollmentDetail, error) {
	if enrollment, ok := s.active[studentID]; ok {
		return enrollment, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubEnrollmentReader) ListActiveBySection(ctx context.Context, schoolID, sectionID string) ([]models.EnrollmentDetail, error) {
	var result []models.EnrollmentDetail
	for _, member := range s.cohort {
		if member.SectionID == sectionID {
			result = append(result, member)
		}
	}
	return result, nil
}

type stubAssessmentReader struct {
	assessments []models.Assessment
}

func (s *stubAssessmentReader) ListPublishedBySection(ctx context.Context, schoolID, sectionID string, termLabel *string) ([]models.Assessment, error) {
	var result []models.Assessment
	for _, assessment := range s.assessments {
		if !assessment.IsPublished || assessment.SectionID != sectionID {
			continue
		}
		if termLabel != nil && *termLabel != "" {
			if assessment.TermLabel == nil || *assessment.TermLabel != *termLabel {
				continue
			}
		}
		result = append(result, assessment)
	}
	return result, nil
}

func (s *stubAssessmentReader) ListByIDs(ctx context.Context, schoolID string, ids []string) ([]models.Assessment, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var result []models.Assessment
	for _, assessment := range s.assessments {
		if assessment.IsPublished && wanted[assessment.ID] {
			result = append(result, assessment)
		}
	}
	return result, nil
}

type stubMarkReader struct {
	byStudent map[string][]models.Mark
	grid      map[string]map[string]*float64
}

func (s *stubMarkReader) ListByStudent(ctx context.Context, schoolID, studentID string) ([]models.Mark, error) {
	return s.byStudent[studentID], nil
}

func (s *stubMarkReader) FetchByAssessments(ctx context.Context, schoolID string, assessmentIDs []string) (map[string]map[string]*float64, error) {
	return s.grid, nil
}

type stubSubjectReader struct {
	names map[string]string
}

func (s *stubSubjectReader) MapNamesByIDs(ctx context.Context, schoolID string, ids []string) (map[string]string, error) {
	result := make(map[string]string)
	for _, id := range ids {
		if name, ok := s.names[id]; ok {
			result[id] = name
		}
	}
	return result, nil
}

type stubScaleReader struct {
	bands []models.GradeThreshold
}

func (s *stubScaleReader) ListBySchool(ctx context.Context, schoolID string) ([]models.GradeThreshold, error) {
	return s.bands, nil
}

type stubAttendanceReader struct {
	tallies map[string]models.AttendanceTally
}

func (s *stubAttendanceReader) TallyBySection(ctx context.Context, schoolID, sectionID string) (map[string]models.AttendanceTally, error) {
	return s.tallies, nil
}

type stubStudentReader struct {
	students map[string]*models.Student
}

func (s *stubStudentReader) FindByID(ctx context.Context, schoolID, id string) (*models.Student, error) {
	if student, ok := s.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

type pipelineFixture struct {
	enrollments *stubEnrollmentReader
	assessments *stubAssessmentReader
	marks       *stubMarkReader
	subjects    *stubSubjectReader
	scale       *stubScaleReader
	attendance  *stubAttendanceReader
	students    *stubStudentReader
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

// newPipelineFixture builds a three student section: Alice scores 130/150,
// Bob 70/150, Carol 90/150 across two math assessments and one english
// assessment.
func newPipelineFixture() *pipelineFixture {
	enrollment := func(studentID, name string) models.EnrollmentDetail {
		return models.EnrollmentDetail{
			Enrollment: models.Enrollment{
				ID:        "enr-" + studentID,
				SchoolID:  "sch1",
				StudentID: studentID,
				SectionID: "sec1",
			},
			StudentName: name,
			ClassName:   "Grade 8",
			SectionName: "B",
		}
	}
	marks := map[string][]models.Mark{
		"stu-a": {
			{StudentID: "stu-a", AssessmentID: "as-quiz", Score: floatPtr(45)},
			{StudentID: "stu-a", AssessmentID: "as-exam", Score: floatPtr(45)},
			{StudentID: "stu-a", AssessmentID: "as-essay", Score: floatPtr(40)},
		},
		"stu-b": {
			{StudentID: "stu-b", AssessmentID: "as-quiz", Score: floatPtr(20)},
			{StudentID: "stu-b", AssessmentID: "as-exam", Score: floatPtr(30)},
			{StudentID: "stu-b", AssessmentID: "as-essay", Score: floatPtr(20)},
		},
		"stu-c": {
			{StudentID: "stu-c", AssessmentID: "as-quiz", Score: floatPtr(30)},
			{StudentID: "stu-c", AssessmentID: "as-exam", Score: floatPtr(30)},
			{StudentID: "stu-c", AssessmentID: "as-essay", Score: floatPtr(30)},
		},
	}
	grid := make(map[string]map[string]*float64)
	for studentID, studentMarks := range marks {
		grid[studentID] = make(map[string]*float64)
		for _, mark := range studentMarks {
			grid[studentID][mark.AssessmentID] = mark.Score
		}
	}
	return &pipelineFixture{
		enrollments: &stubEnrollmentReader{
			active: map[string]*models.EnrollmentDetail{
				"stu-a": {Enrollment: models.Enrollment{ID: "enr-stu-a", SchoolID: "sch1", StudentID: "stu-a", SectionID: "sec1"}, StudentName: "Alice", ClassName: "Grade 8", SectionName: "B"},
				"stu-b": {Enrollment: models.Enrollment{ID: "enr-stu-b", SchoolID: "sch1", StudentID: "stu-b", SectionID: "sec1"}, StudentName: "Bob", ClassName: "Grade 8", SectionName: "B"},
				"stu-c": {Enrollment: models.Enrollment{ID: "enr-stu-c", SchoolID: "sch1", StudentID: "stu-c", SectionID: "sec1"}, StudentName: "Carol", ClassName: "Grade 8", SectionName: "B"},
			},
			cohort: []models.EnrollmentDetail{
				enrollment("stu-a", "Alice"),
				enrollment("stu-b", "Bob"),
				enrollment("stu-c", "Carol"),
			},
		},
		assessments: &stubAssessmentReader{
			assessments: []models.Assessment{
				{ID: "as-quiz", SectionID: "sec1", SubjectID: strPtr("sub-math"), Title: "Quiz 1", MaxMarks: 50, IsPublished: true},
				{ID: "as-exam", SectionID: "sec1", SubjectID: strPtr("sub-math"), Title: "Final Exam", MaxMarks: 50, IsPublished: true},
				{ID: "as-essay", SectionID: "sec1", SubjectID: strPtr("sub-eng"), Title: "Essay", MaxMarks: 50, IsPublished: true},
				{ID: "as-draft", SectionID: "sec1", SubjectID: strPtr("sub-math"), Title: "Draft", MaxMarks: 100, IsPublished: false},
			},
		},
		marks:      &stubMarkReader{byStudent: marks, grid: grid},
		subjects:   &stubSubjectReader{names: map[string]string{"sub-math": "Mathematics", "sub-eng": "English"}},
		scale:      &stubScaleReader{},
		attendance: &stubAttendanceReader{tallies: map[string]models.AttendanceTally{}},
		students: &stubStudentReader{students: map[string]*models.Student{
			"stu-a": {ID: "stu-a", FullName: "Alice"},
			"stu-b": {ID: "stu-b", FullName: "Bob"},
			"stu-c": {ID: "stu-c", FullName: "Carol"},
		}},
	}
}

func (f *pipelineFixture) service(tie models.TieStrategy) *ReportCardService {
	svc := NewReportCardService(
		f.enrollments, f.assessments, f.marks, f.subjects, f.scale, f.attendance, f.students,
		ReportCardConfig{TieStrategy: tie},
		zap.NewNop(),
	)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestGenerateSectionRanksAndTotals(t *testing.T) {
	f := newPipelineFixture()
	svc := f.service(models.TiePositional)

	cards, err := svc.GenerateSection(context.Background(), "sch1", "sec1", nil)
	require.NoError(t, err)
	require.Len(t, cards, 3)

	byStudent := make(map[string]models.ReportCard)
	for _, card := range cards {
		byStudent[card.StudentID] = card
	}

	alice := byStudent["stu-a"]
	assert.InDelta(t, 130, alice.GrandTotalObtained, 0.001)
	assert.InDelta(t, 150, alice.GrandTotalMax, 0.001)
	assert.InDelta(t, 86.67, alice.OverallPercentage, 0.001)
	assert.Equal(t, "A", alice.OverallGrade)
	require.NotNil(t, alice.Rank)
	assert.Equal(t, 1, *alice.Rank)
	assert.Equal(t, 3, alice.CohortSize)

	carol := byStudent["stu-c"]
	assert.InDelta(t, 60, carol.OverallPercentage, 0.001)
	assert.Equal(t, "C", carol.OverallGrade)
	require.NotNil(t, carol.Rank)
	assert.Equal(t, 2, *carol.Rank)

	bob := byStudent["stu-b"]
	assert.InDelta(t, 46.67, bob.OverallPercentage, 0.001)
	assert.Equal(t, "F", bob.OverallGrade)
	require.NotNil(t, bob.Rank)
	assert.Equal(t, 3, *bob.Rank)
}

func TestGenerateSectionSubjectsSortedAlphabetically(t *testing.T) {
	f := newPipelineFixture()
	svc := f.service(models.TiePositional)

	cards, err := svc.GenerateSection(context.Background(), "sch1", "sec1", nil)
	require.NoError(t, err)
	require.Len(t, cards[0].Subjects, 2)
	assert.Equal(t, "English", cards[0].Subjects[0].SubjectName)
	assert.Equal(t, "Mathematics", cards[0].Subjects[1].SubjectName)
}

func TestGenerateSectionNullMarkCountsMaxOnly(t *testing.T) {
	f := newPipelineFixture()
	// Alice's essay score becomes ungraded: obtained 90, max still 150.
	f.marks.grid["stu-a"]["as-essay"] = nil
	svc := f.service(models.TiePositional)

	cards, err := svc.GenerateSection(context.Background(), "sch1", "sec1", nil)
	require.NoError(t, err)

	var alice models.ReportCard
	for _, card := range cards {
		if card.StudentID == "stu-a" {
			alice = card
		}
	}
	assert.InDelta(t, 90, alice.GrandTotalObtained, 0.001)
	assert.InDelta(t, 150, alice.GrandTotalMax, 0.001)
	assert.InDelta(t, 60, alice.OverallPercentage, 0.001)

	for _, subject := range alice.Subjects {
		if subject.SubjectName != "English" {
			continue
		}
		require.Len(t, subject.Lines, 1)
		assert.Nil(t, subject.Lines[0].Obtained)
		assert.InDelta(t, 50, subject.Lines[0].Max, 0.001)
		assert.InDelta(t, 0, subject.Percentage, 0.001)
	}
}

func TestGenerateSectionMissingStudentRowScoresZero(t *testing.T) {
	f := newPipelineFixture()
	delete(f.marks.grid, "stu-b")
	svc := f.service(models.TiePositional)

	cards, err := svc.GenerateSection(context.Background(), "sch1", "sec1", nil)
	require.NoError(t, err)

	for _, card := range cards {
		if card.StudentID != "stu-b" {
			continue
		}
		assert.InDelta(t, 0, card.GrandTotalObtained, 0.001)
		assert.InDelta(t, 150, card.GrandTotalMax, 0.001)
		assert.InDelta(t, 0, card.OverallPercentage, 0.001)
		assert.Equal(t, "F", card.OverallGrade)
	}
}

func TestGenerateSectionSubjectBuckets(t *testing.T) {
	f := newPipelineFixture()
	// One assessment without a subject, one pointing at an unknown id.
	f.assessments.assessments = append(f.assessments.assessments,
		models.Assessment{ID: "as-general", SectionID: "sec1", Title: "Orientation", MaxMarks: 10, IsPublished: true},
		models.Assessment{ID: "as-ghost", SectionID: "sec1", SubjectID: strPtr("sub-deleted"), Title: "Ghost", MaxMarks: 10, IsPublished: true},
	)
	svc := f.service(models.TiePositional)

	cards, err := svc.GenerateSection(context.Background(), "sch1", "sec1", nil)
	require.NoError(t, err)

	names := make([]string, 0, len(cards[0].Subjects))
	for _, subject := range cards[0].Subjects {
		names = append(names, subject.SubjectName)
	}
	assert.Equal(t, []string{"English", "General", "Mathematics", "Unknown"}, names)
}

func TestGenerateSectionAttendance(t *testing.T) {
	f := newPipelineFixture()
	f.attendance.tallies = map[string]models.AttendanceTally{
		// 18 present + 2 late count as 20 of 22 days.
		"stu-a": {StudentID: "stu-a", Present: 18, Late: 2, Absent: 1, Excused: 1},
	}
	svc := f.service(models.TiePositional)

	cards, err := svc.GenerateSection(context.Background(), "sch1", "sec1", nil)
	require.NoError(t, err)

	for _, card := range cards {
		switch card.StudentID {
		case "stu-a":
			require.NotNil(t, card.Attendance)
			assert.Equal(t, 20, card.Attendance.Present)
			assert.Equal(t, 2, card.Attendance.Absent)
			assert.Equal(t, 22, card.Attendance.Total)
			assert.InDelta(t, 90.91, card.Attendance.Percent, 0.001)
		default:
			assert.Nil(t, card.Attendance)
		}
	}
}

func TestGenerateSectionIdempotent(t *testing.T) {
	f := newPipelineFixture()
	svc := f.service(models.TiePositional)

	first, err := svc.GenerateSection(context.Background(), "sch1", "sec1", nil)
	require.NoError(t, err)
	second, err := svc.GenerateSection(context.Background(), "sch1", "sec1", nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateSectionTermFilter(t *testing.T) {
	f := newPipelineFixture()
	for i := range f.assessments.assessments {
		f.assessments.assessments[i].TermLabel = strPtr("T1")
	}
	svc := f.service(models.TiePositional)

	_, err := svc.GenerateSection(context.Background(), "sch1", "sec1", strPtr("T2"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNoPublishedAssessments.Code, appErr.Code)

	cards, err := svc.GenerateSection(context.Background(), "sch1", "sec1", strPtr("T1"))
	require.NoError(t, err)
	assert.Len(t, cards, 3)
}

func TestGenerateSectionErrors(t *testing.T) {
	f := newPipelineFixture()
	svc := f.service(models.TiePositional)

	_, err := svc.GenerateSection(context.Background(), "sch1", "sec-empty", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoActiveEnrollment.Code, appErrors.FromError(err).Code)

	f.assessments.assessments = nil
	_, err = svc.GenerateSection(context.Background(), "sch1", "sec1", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoPublishedAssessments.Code, appErrors.FromError(err).Code)
}

func TestRankTiesPositional(t *testing.T) {
	f := newPipelineFixture()
	// Carol's scores match Alice's exactly.
	f.marks.grid["stu-c"] = map[string]*float64{
		"as-quiz": floatPtr(45), "as-exam": floatPtr(45), "as-essay": floatPtr(40),
	}
	svc := f.service(models.TiePositional)

	cards, err := svc.GenerateSection(context.Background(), "sch1", "sec1", nil)
	require.NoError(t, err)

	ranks := make(map[string]int)
	for _, card := range cards {
		require.NotNil(t, card.Rank)
		ranks[card.StudentID] = *card.Rank
	}
	// Alice precedes Carol in enrollment order, so the stable sort keeps
	// her first on the shared percentage.
	assert.Equal(t, 1, ranks["stu-a"])
	assert.Equal(t, 2, ranks["stu-c"])
	assert.Equal(t, 3, ranks["stu-b"])
}

func TestRankTiesCompetition(t *testing.T) {
	f := newPipelineFixture()
	f.marks.grid["stu-c"] = map[string]*float64{
		"as-quiz": floatPtr(45), "as-exam": floatPtr(45), "as-essay": floatPtr(40),
	}
	svc := f.service(models.TieCompetition)

	cards, err := svc.GenerateSection(context.Background(), "sch1", "sec1", nil)
	require.NoError(t, err)

	ranks := make(map[string]int)
	for _, card := range cards {
		require.NotNil(t, card.Rank)
		ranks[card.StudentID] = *card.Rank
	}
	assert.Equal(t, 1, ranks["stu-a"])
	assert.Equal(t, 1, ranks["stu-c"])
	assert.Equal(t, 3, ranks["stu-b"])
}

func TestGenerateStudentStaffPath(t *testing.T) {
	f := newPipelineFixture()
	svc := f.service(models.TiePositional)

	card, err := svc.GenerateStudent(context.Background(), "sch1", "stu-c", nil, models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, "Carol", card.StudentName)
	require.NotNil(t, card.Rank)
	assert.Equal(t, 2, *card.Rank)
	assert.Equal(t, 3, card.CohortSize)
}

func TestGenerateStudentMarksFirstPath(t *testing.T) {
	f := newPipelineFixture()
	svc := f.service(models.TiePositional)

	card, err := svc.GenerateStudent(context.Background(), "sch1", "stu-b", nil, models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "Bob", card.StudentName)
	assert.InDelta(t, 46.67, card.OverallPercentage, 0.001)
	require.NotNil(t, card.Rank)
	assert.Equal(t, 3, *card.Rank)
}

func TestGenerateStudentMarksFirstFiltersForeignSections(t *testing.T) {
	f := newPipelineFixture()
	// A leftover mark from a previous section must not leak in.
	f.assessments.assessments = append(f.assessments.assessments,
		models.Assessment{ID: "as-old", SectionID: "sec0", SubjectID: strPtr("sub-math"), Title: "Old Quiz", MaxMarks: 50, IsPublished: true})
	f.marks.byStudent["stu-b"] = append(f.marks.byStudent["stu-b"],
		models.Mark{StudentID: "stu-b", AssessmentID: "as-old", Score: floatPtr(50)})
	svc := f.service(models.TiePositional)

	card, err := svc.GenerateStudent(context.Background(), "sch1", "stu-b", nil, models.RoleStudent)
	require.NoError(t, err)
	assert.InDelta(t, 150, card.GrandTotalMax, 0.001)
}

func TestGenerateStudentNoMarksRecorded(t *testing.T) {
	f := newPipelineFixture()
	f.marks.byStudent["stu-b"] = nil
	svc := f.service(models.TiePositional)

	_, err := svc.GenerateStudent(context.Background(), "sch1", "stu-b", nil, models.RoleParent)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoMarksRecorded.Code, appErrors.FromError(err).Code)
}

func TestGenerateStudentErrors(t *testing.T) {
	f := newPipelineFixture()
	svc := f.service(models.TiePositional)

	_, err := svc.GenerateStudent(context.Background(), "sch1", "stu-missing", nil, models.RoleTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStudentNotFound.Code, appErrors.FromError(err).Code)

	f.students.students["stu-d"] = &models.Student{ID: "stu-d", FullName: "Dana"}
	_, err = svc.GenerateStudent(context.Background(), "sch1", "stu-d", nil, models.RoleTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoActiveEnrollment.Code, appErrors.FromError(err).Code)
}
