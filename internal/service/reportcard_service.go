package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/classbridge/reportcard-api/internal/models"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
)

type reportEnrollmentReader interface {
	FindActiveByStudent(ctx context.Context, schoolID, studentID string) (*models.EnrollmentDetail, error)
	ListActiveBySection(ctx context.Context, schoolID, sectionID string) ([]models.EnrollmentDetail, error)
}

type reportAssessmentReader interface {
	ListPublishedBySection(ctx context.Context, schoolID, sectionID string, termLabel *string) ([]models.Assessment, error)
	ListByIDs(ctx context.Context, schoolID string, ids []string) ([]models.Assessment, error)
}

type reportMarkReader interface {
	ListByStudent(ctx context.Context, schoolID, studentID string) ([]models.Mark, error)
	FetchByAssessments(ctx context.Context, schoolID string, assessmentIDs []string) (map[string]map[string]*float64, error)
}

type reportSubjectReader interface {
	MapNamesByIDs(ctx context.Context, schoolID string, ids []string) (map[string]string, error)
}

type reportScaleReader interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.GradeThreshold, error)
}

type reportAttendanceReader interface {
	TallyBySection(ctx context.Context, schoolID, sectionID string) (map[string]models.AttendanceTally, error)
}

type reportStudentReader interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.Student, error)
}

// AssessmentDiscovery resolves the assessments eligible for a generation
// pass. Staff roles read the section's published assessments directly; the
// student/parent path anchors on the student's own mark rows so it never
// needs section-wide read access.
type AssessmentDiscovery interface {
	Discover(ctx context.Context, schoolID string, enrollment *models.EnrollmentDetail, termLabel *string) ([]models.Assessment, error)
}

type sectionFirstDiscovery struct {
	assessments reportAssessmentReader
}

func (d sectionFirstDiscovery) Discover(ctx context.Context, schoolID string, enrollment *models.EnrollmentDetail, termLabel *string) ([]models.Assessment, error) {
	assessments, err := d.assessments.ListPublishedBySection(ctx, schoolID, enrollment.SectionID, termLabel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessments")
	}
	return assessments, nil
}

type marksFirstDiscovery struct {
	marks       reportMarkReader
	assessments reportAssessmentReader
}

func (d marksFirstDiscovery) Discover(ctx context.Context, schoolID string, enrollment *models.EnrollmentDetail, termLabel *string) ([]models.Assessment, error) {
	marks, err := d.marks.ListByStudent(ctx, schoolID, enrollment.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks")
	}
	if len(marks) == 0 {
		return nil, appErrors.ErrNoMarksRecorded
	}
	ids := make([]string, 0, len(marks))
	seen := make(map[string]bool, len(marks))
	for _, mark := range marks {
		if !seen[mark.AssessmentID] {
			ids = append(ids, mark.AssessmentID)
			seen[mark.AssessmentID] = true
		}
	}
	assessments, err := d.assessments.ListByIDs(ctx, schoolID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessments")
	}
	// Marks can outlive section moves; keep only assessments belonging to
	// the active section and requested term.
	filtered := assessments[:0]
	for _, assessment := range assessments {
		if assessment.SectionID != enrollment.SectionID {
			continue
		}
		if termLabel != nil && *termLabel != "" {
			if assessment.TermLabel == nil || *assessment.TermLabel != *termLabel {
				continue
			}
		}
		filtered = append(filtered, assessment)
	}
	return filtered, nil
}

// ReportCardService runs the report-card generation and ranking pipeline.
// Each generation pass builds its own maps; nothing is shared or persisted
// between passes.
type ReportCardService struct {
	enrollments reportEnrollmentReader
	assessments reportAssessmentReader
	marks       reportMarkReader
	subjects    reportSubjectReader
	scale       reportScaleReader
	attendance  reportAttendanceReader
	students    reportStudentReader

	resolver    GradeResolver
	tieStrategy models.TieStrategy
	logger      *zap.Logger
	now         func() time.Time
}

// ReportCardConfig carries pipeline tuning derived from app config.
type ReportCardConfig struct {
	TieStrategy         models.TieStrategy
	UnmatchedBandPolicy models.UnmatchedBandPolicy
}

// NewReportCardService constructs the pipeline service.
func NewReportCardService(
	enrollments reportEnrollmentReader,
	assessments reportAssessmentReader,
	marks reportMarkReader,
	subjects reportSubjectReader,
	scale reportScaleReader,
	attendance reportAttendanceReader,
	students reportStudentReader,
	cfg ReportCardConfig,
	logger *zap.Logger,
) *ReportCardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	tie := cfg.TieStrategy
	if !tie.Valid() {
		tie = models.TiePositional
	}
	return &ReportCardService{
		enrollments: enrollments,
		assessments: assessments,
		marks:       marks,
		subjects:    subjects,
		scale:       scale,
		attendance:  attendance,
		students:    students,
		resolver:    NewGradeResolver(cfg.UnmatchedBandPolicy),
		tieStrategy: tie,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// GenerateSection produces ranked report cards for every active student in a
// section, ordered alphabetically by student name for display.
func (s *ReportCardService) GenerateSection(ctx context.Context, schoolID, sectionID string, termLabel *string) ([]models.ReportCard, error) {
	cohort, err := s.enrollments.ListActiveBySection(ctx, schoolID, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section enrollments")
	}
	if len(cohort) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoActiveEnrollment, "section has no active students")
	}

	assessments, err := s.assessments.ListPublishedBySection(ctx, schoolID, sectionID, termLabel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessments")
	}
	if len(assessments) == 0 {
		return nil, noPublishedAssessments(termLabel)
	}

	cards, err := s.buildCohort(ctx, schoolID, sectionID, cohort, assessments, termLabel)
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// GenerateStudent produces a single student's ranked report card. The whole
// cohort is still aggregated so the rank and cohort size are correct; only
// the requested card is returned.
func (s *ReportCardService) GenerateStudent(ctx context.Context, schoolID, studentID string, termLabel *string, role models.UserRole) (*models.ReportCard, error) {
	if _, err := s.students.FindByID(ctx, schoolID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	enrollment, err := s.enrollments.FindActiveByStudent(ctx, schoolID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNoActiveEnrollment
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	assessments, err := s.discoveryFor(role).Discover(ctx, schoolID, enrollment, termLabel)
	if err != nil {
		return nil, err
	}
	if len(assessments) == 0 {
		return nil, noPublishedAssessments(termLabel)
	}

	cohort, err := s.enrollments.ListActiveBySection(ctx, schoolID, enrollment.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section enrollments")
	}

	cards, err := s.buildCohort(ctx, schoolID, enrollment.SectionID, cohort, assessments, termLabel)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		if cards[i].StudentID == studentID {
			return &cards[i], nil
		}
	}
	return nil, appErrors.ErrStudentNotFound
}

func (s *ReportCardService) discoveryFor(role models.UserRole) AssessmentDiscovery {
	if role.Staff() {
		return sectionFirstDiscovery{assessments: s.assessments}
	}
	return marksFirstDiscovery{marks: s.marks, assessments: s.assessments}
}

// buildCohort aggregates each cohort member and runs the ranking pass. The
// per-pass fetches (marks, thresholds, subject names, attendance) are issued
// concurrently and awaited jointly before aggregation begins.
func (s *ReportCardService) buildCohort(ctx context.Context, schoolID, sectionID string, cohort []models.EnrollmentDetail, assessments []models.Assessment, termLabel *string) ([]models.ReportCard, error) {
	assessmentIDs := make([]string, len(assessments))
	subjectIDs := make([]string, 0, len(assessments))
	seenSubjects := make(map[string]bool)
	for i, assessment := range assessments {
		assessmentIDs[i] = assessment.ID
		if assessment.SubjectID != nil && !seenSubjects[*assessment.SubjectID] {
			subjectIDs = append(subjectIDs, *assessment.SubjectID)
			seenSubjects[*assessment.SubjectID] = true
		}
	}

	var (
		wg           sync.WaitGroup
		marksByStu   map[string]map[string]*float64
		thresholds   []models.GradeThreshold
		subjectNames map[string]string
		tallies      map[string]models.AttendanceTally

		marksErr, scaleErr, subjectsErr, attendanceErr error
	)
	wg.Add(4)
	go func() {
		defer wg.Done()
		marksByStu, marksErr = s.marks.FetchByAssessments(ctx, schoolID, assessmentIDs)
	}()
	go func() {
		defer wg.Done()
		thresholds, scaleErr = s.scale.ListBySchool(ctx, schoolID)
	}()
	go func() {
		defer wg.Done()
		subjectNames, subjectsErr = s.subjects.MapNamesByIDs(ctx, schoolID, subjectIDs)
	}()
	go func() {
		defer wg.Done()
		tallies, attendanceErr = s.attendance.TallyBySection(ctx, schoolID, sectionID)
	}()
	wg.Wait()

	for _, err := range []error{marksErr, scaleErr, subjectsErr, attendanceErr} {
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report data")
		}
	}

	generatedAt := s.now()
	cards := make([]models.ReportCard, 0, len(cohort))
	for _, member := range cohort {
		subjects, err := s.aggregateSubjects(assessments, marksByStu[member.StudentID], subjectNames, thresholds)
		if err != nil {
			return nil, err
		}
		card, err := s.buildCard(member, subjects, tallies[member.StudentID], thresholds, termLabel, generatedAt)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *card)
	}

	s.rankCohort(cards)
	return cards, nil
}

// aggregateSubjects groups assessments by subject and sums each student's
// obtained and maximum marks. An ungraded mark contributes nothing to the
// obtained total while its assessment still counts toward the denominator.
func (s *ReportCardService) aggregateSubjects(assessments []models.Assessment, studentMarks map[string]*float64, subjectNames map[string]string, thresholds []models.GradeThreshold) ([]models.SubjectResult, error) {
	grouped := make(map[string][]models.Assessment)
	order := make([]string, 0)
	for _, assessment := range assessments {
		name := models.SubjectBucketGeneral
		if assessment.SubjectID != nil {
			name = models.SubjectBucketUnknown
			if resolved, ok := subjectNames[*assessment.SubjectID]; ok {
				name = resolved
			}
		}
		if _, ok := grouped[name]; !ok {
			order = append(order, name)
		}
		grouped[name] = append(grouped[name], assessment)
	}

	results := make([]models.SubjectResult, 0, len(order))
	for _, name := range order {
		result := models.SubjectResult{SubjectName: name}
		for _, assessment := range grouped[name] {
			var obtained *float64
			if studentMarks != nil {
				obtained = studentMarks[assessment.ID]
			}
			result.Lines = append(result.Lines, models.AssessmentLine{
				AssessmentID: assessment.ID,
				Title:        assessment.Title,
				Obtained:     obtained,
				Max:          assessment.MaxMarks,
			})
			result.TotalMax += assessment.MaxMarks
			if obtained != nil {
				result.TotalObtained += *obtained
			}
		}
		result.Percentage = percentage(result.TotalObtained, result.TotalMax)
		grade, err := s.resolver.Resolve(result.Percentage, thresholds)
		if err != nil {
			return nil, err
		}
		result.Grade = grade
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SubjectName < results[j].SubjectName
	})
	return results, nil
}

// buildCard sums subject totals into a card. Attendance is attached only
// when at least one entry exists; an empty tally stays absent so "no data"
// is distinguishable from 0% attendance.
func (s *ReportCardService) buildCard(member models.EnrollmentDetail, subjects []models.SubjectResult, tally models.AttendanceTally, thresholds []models.GradeThreshold, termLabel *string, generatedAt time.Time) (*models.ReportCard, error) {
	card := &models.ReportCard{
		StudentID:   member.StudentID,
		StudentName: member.StudentName,
		ClassName:   member.ClassName,
		SectionName: member.SectionName,
		Subjects:    subjects,
		TermLabel:   termLabel,
		GeneratedAt: generatedAt,
	}
	for _, subject := range subjects {
		card.GrandTotalObtained += subject.TotalObtained
		card.GrandTotalMax += subject.TotalMax
	}
	card.OverallPercentage = percentage(card.GrandTotalObtained, card.GrandTotalMax)
	grade, err := s.resolver.Resolve(card.OverallPercentage, thresholds)
	if err != nil {
		return nil, err
	}
	card.OverallGrade = grade

	if total := tally.Total(); total > 0 {
		present := tally.Present + tally.Late
		card.Attendance = &models.AttendanceSummary{
			Present: present,
			Absent:  total - present,
			Total:   total,
			Percent: percentage(float64(present), float64(total)),
		}
	}
	return card, nil
}

// rankCohort back-fills ranks onto the cards without disturbing their order.
// A copy of the index set is sorted by overall percentage descending; the
// positional strategy assigns strictly sequential ranks even on exact ties,
// the competition strategy shares ranks and leaves gaps (1,2,2,4).
func (s *ReportCardService) rankCohort(cards []models.ReportCard) {
	indexes := make([]int, len(cards))
	for i := range indexes {
		indexes[i] = i
	}
	sort.SliceStable(indexes, func(a, b int) bool {
		return cards[indexes[a]].OverallPercentage > cards[indexes[b]].OverallPercentage
	})

	for pos, idx := range indexes {
		rank := pos + 1
		if s.tieStrategy == models.TieCompetition && pos > 0 {
			prev := cards[indexes[pos-1]]
			if prev.OverallPercentage == cards[idx].OverallPercentage && prev.Rank != nil {
				rank = *prev.Rank
			}
		}
		r := rank
		cards[idx].Rank = &r
		cards[idx].CohortSize = len(cards)
	}
}

func percentage(obtained, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return round2(obtained / max * 100)
}

func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

func noPublishedAssessments(termLabel *string) *appErrors.Error {
	if termLabel != nil && *termLabel != "" {
		return appErrors.Clone(appErrors.ErrNoPublishedAssessments,
			fmt.Sprintf("no published assessments for term %q", *termLabel))
	}
	return appErrors.ErrNoPublishedAssessments
}
