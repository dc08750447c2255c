package service

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type assignmentFixture struct {
	svc         *AssignmentService
	students    *studentRepoStub
	assignments *assignmentRepoStub
	audit       *auditStub
	metrics     *MetricsService
	mock        sqlmock.Sqlmock
}

func gradeStudents(grade string, n int) []models.Student {
	out := make([]models.Student, n)
	for i := range out {
		out[i] = models.Student{
			ID:         fmt.Sprintf("student-%02d", i+1),
			SchoolID:   "school-1",
			FullName:   fmt.Sprintf("Student %d", i+1),
			GradeLevel: grade,
			IsActive:   true,
		}
	}
	return out
}

func templateSchedules() []models.PaymentSchedule {
	return []models.PaymentSchedule{
		{ID: "schedule-a", StructureID: "structure-existing", Name: "Annual", ScheduleType: models.ScheduleAnnual,
			Installments: []models.PaymentInstallment{{Amount: decimal.NewFromInt(450), Percentage: decimal.NewFromInt(100)}}},
		{ID: "schedule-b", StructureID: "structure-existing", Name: "Per Term", ScheduleType: models.SchedulePerTerm},
		{ID: "schedule-other", StructureID: "structure-other", Name: "Annual"},
	}
}

func newAssignmentFixture(t *testing.T, previewLimit int) *assignmentFixture {
	t.Helper()
	tx, mock := newTxMock(t)
	f := &assignmentFixture{
		students:    &studentRepoStub{students: append(gradeStudents("Grade 1", 10), gradeStudents("Grade 2", 4)...)},
		assignments: &assignmentRepoStub{},
		audit:       &auditStub{},
		metrics:     NewMetricsService(),
		mock:        mock,
	}
	for i := range f.students.students[10:] {
		f.students.students[10+i].ID = fmt.Sprintf("student-g2-%d", i+1)
	}
	f.svc = NewAssignmentService(AssignmentServiceParams{
		Students:     f.students,
		Assignments:  f.assignments,
		Structures:   newStructureRepoStub(gradeOneTuition()),
		Schedules:    &scheduleRepoStub{schedules: templateSchedules()},
		Audit:        f.audit,
		Tx:           tx,
		Metrics:      f.metrics,
		PreviewLimit: previewLimit,
	})
	return f
}

func autoAssignRequest(dryRun bool) dto.AutoAssignRequest {
	return dto.AutoAssignRequest{
		AcademicYearID: "year-2025",
		GradeLevel:     "Grade 1",
		TemplateID:     "structure-existing",
		ScheduleIDs:    []string{"schedule-a", "schedule-b"},
		DryRun:         dryRun,
	}
}

func threeExistingOnA() []models.AssignmentKey {
	return []models.AssignmentKey{
		{StudentID: "student-01", ScheduleID: "schedule-a"},
		{StudentID: "student-02", ScheduleID: "schedule-a"},
		{StudentID: "student-03", ScheduleID: "schedule-a"},
	}
}

func TestAutoAssignDryRunSummary(t *testing.T) {
	f := newAssignmentFixture(t, 0)
	f.assignments.existing = threeExistingOnA()

	result, err := f.svc.AutoAssign(context.Background(), adminActor, autoAssignRequest(true))
	require.NoError(t, err)
	assert.Equal(t, dto.AutoAssignSummary{
		TotalStudents:       10,
		NewAssignments:      17,
		ExistingAssignments: 3,
		TotalAssignments:    20,
		SchedulesCount:      2,
	}, result.Summary)
	assert.True(t, result.DryRun)
	assert.Len(t, result.Preview, 17)
	assert.Zero(t, result.Remaining)
	assert.Empty(t, f.assignments.inserted)
	assert.True(t, result.Preview[0].TemplateTotalAmount.Equal(decimal.NewFromInt(500)))
	for _, row := range result.Preview {
		assert.False(t, row.ScheduleID == "schedule-a" && row.StudentID <= "student-03", "existing pair %s/%s previewed", row.StudentID, row.ScheduleID)
	}
}

func TestAutoAssignDryRunPreviewLimit(t *testing.T) {
	f := newAssignmentFixture(t, 5)

	result, err := f.svc.AutoAssign(context.Background(), adminActor, autoAssignRequest(true))
	require.NoError(t, err)
	assert.Equal(t, 20, result.Summary.NewAssignments)
	assert.Len(t, result.Preview, 5)
	assert.Equal(t, 15, result.Remaining)
}

func TestAutoAssignCommitWritesOnlyNewPairs(t *testing.T) {
	f := newAssignmentFixture(t, 0)
	f.assignments.existing = threeExistingOnA()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.svc.AutoAssign(context.Background(), adminActor, autoAssignRequest(false))
	require.NoError(t, err)
	assert.Equal(t, int64(17), result.Created)
	assert.Equal(t, "17 fee assignments created", result.Message)
	require.Len(t, f.assignments.inserted, 17)

	for _, row := range f.assignments.inserted {
		assert.Equal(t, models.AssignmentActive, row.Status)
		assert.Equal(t, "year-2025", row.AcademicYearID)
		switch row.ScheduleID {
		case "schedule-a":
			assert.True(t, row.TotalDue.Equal(decimal.NewFromInt(450)))
		case "schedule-b":
			assert.True(t, row.TotalDue.Equal(decimal.NewFromInt(500)))
		}
	}
	assert.Equal(t, []string{models.AuditAutoAssignCommit}, f.audit.actions())
	snapshot := f.metrics.Snapshot()
	assert.Equal(t, uint64(17), snapshot.AssignmentsCreated)
	assert.Equal(t, uint64(1), snapshot.AutoAssignRuns)
}

func TestAutoAssignCommitReportsConcurrentSkips(t *testing.T) {
	f := newAssignmentFixture(t, 0)
	f.assignments.insertLimit = 12
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.svc.AutoAssign(context.Background(), adminActor, autoAssignRequest(false))
	require.NoError(t, err)
	assert.Equal(t, int64(12), result.Created)
	assert.Equal(t, 20, result.Summary.NewAssignments)
}

func TestAutoAssignCommitNothingPending(t *testing.T) {
	f := newAssignmentFixture(t, 0)
	for _, s := range gradeStudents("Grade 1", 10) {
		f.assignments.existing = append(f.assignments.existing,
			models.AssignmentKey{StudentID: s.ID, ScheduleID: "schedule-a"},
			models.AssignmentKey{StudentID: s.ID, ScheduleID: "schedule-b"},
		)
	}

	result, err := f.svc.AutoAssign(context.Background(), adminActor, autoAssignRequest(false))
	require.NoError(t, err)
	assert.Zero(t, result.Created)
	assert.Equal(t, "all matching students are already assigned", result.Message)
	assert.Empty(t, f.audit.entries)
}

func TestAutoAssignFallsBackToTemplateGrade(t *testing.T) {
	f := newAssignmentFixture(t, 0)
	req := autoAssignRequest(true)
	req.GradeLevel = ""

	result, err := f.svc.AutoAssign(context.Background(), adminActor, req)
	require.NoError(t, err)
	assert.Equal(t, "Grade 1", f.students.lastFilter.GradeLevel)
	assert.True(t, f.students.lastFilter.ActiveOnly)
	assert.Equal(t, 10, result.Summary.TotalStudents)
}

func TestAutoAssignDeduplicatesScheduleIDs(t *testing.T) {
	f := newAssignmentFixture(t, 0)
	req := autoAssignRequest(true)
	req.ScheduleIDs = []string{"schedule-a", "schedule-a"}

	result, err := f.svc.AutoAssign(context.Background(), adminActor, req)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.SchedulesCount)
	assert.Equal(t, 10, result.Summary.TotalAssignments)
}

func TestAutoAssignRejections(t *testing.T) {
	programType := "boarding"
	cases := map[string]struct {
		mutate func(*dto.AutoAssignRequest)
		status int
	}{
		"missing schedules":  {func(r *dto.AutoAssignRequest) { r.ScheduleIDs = nil }, http.StatusBadRequest},
		"missing template":   {func(r *dto.AutoAssignRequest) { r.TemplateID = "" }, http.StatusBadRequest},
		"unknown template":   {func(r *dto.AutoAssignRequest) { r.TemplateID = "ghost" }, http.StatusNotFound},
		"other year":         {func(r *dto.AutoAssignRequest) { r.AcademicYearID = "year-2024" }, http.StatusBadRequest},
		"foreign schedule":   {func(r *dto.AutoAssignRequest) { r.ScheduleIDs = []string{"schedule-a", "schedule-other"} }, http.StatusBadRequest},
		"program mismatch":   {func(r *dto.AutoAssignRequest) { r.ProgramType = programType }, http.StatusBadRequest},
		"blank schedule ids": {func(r *dto.AutoAssignRequest) { r.ScheduleIDs = []string{""} }, http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newAssignmentFixture(t, 0)
			req := autoAssignRequest(false)
			tc.mutate(&req)
			_, err := f.svc.AutoAssign(context.Background(), adminActor, req)
			require.Error(t, err)
			assert.Equal(t, tc.status, appErrors.FromError(err).Status)
			assert.Empty(t, f.assignments.inserted)
		})
	}
}

func TestAssignmentServiceList(t *testing.T) {
	f := newAssignmentFixture(t, 0)
	f.assignments.details = []models.AssignmentDetail{{
		StudentFeeAssignment: models.StudentFeeAssignment{ID: "a-1", TotalDue: decimal.NewFromInt(500), PaidAmount: decimal.NewFromInt(120)},
		StudentName:          "Student 1",
	}}

	views, pagination, err := f.svc.List(context.Background(), "school-1", models.AssignmentFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].Balance.Equal(decimal.NewFromInt(380)))
	assert.Equal(t, 20, pagination.PageSize)

	_, _, err = f.svc.List(context.Background(), "school-1", models.AssignmentFilter{Status: "overdue"})
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}
