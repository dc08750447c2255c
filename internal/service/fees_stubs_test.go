package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
	"github.com/noah-isme/school-fees-api/pkg/jobs"
)

var adminActor = &models.Profile{UserID: "user-1", SchoolID: "school-1", Role: models.RoleSchoolAdmin, IsActive: true}

type sqlTxProvider struct {
	db *sqlx.DB
}

func (p *sqlTxProvider) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return p.db.BeginTxx(ctx, opts)
}

// newTxMock returns a provider whose transactions are scripted through mock.
func newTxMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return &sqlTxProvider{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func mustDate(raw string) time.Time {
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		panic(err)
	}
	return d
}

type cacheRepoStub struct {
	mu      sync.Mutex
	values  map[string][]byte
	deleted []string
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{values: map[string][]byte{}}
}

func (c *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = raw
	return nil
}

func (c *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.values {
		if strings.HasPrefix(key, prefix) {
			delete(c.values, key)
		}
	}
	return nil
}

type auditStub struct {
	entries []models.FeeAuditTrail
	err     error
}

func (a *auditStub) Record(ctx context.Context, exec sqlx.ExtContext, entry *models.FeeAuditTrail) error {
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, *entry)
	return nil
}

func (a *auditStub) actions() []string {
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Action
	}
	return out
}

type yearRepoStub struct {
	years       map[string]*models.AcademicYear
	stats       models.AcademicYearStats
	listCalls   int
	nameTaken   bool
	deactivated []string
	activated   []string
	created     []*models.AcademicYear
	setErr      error
}

func newYearRepoStub(years ...models.AcademicYear) *yearRepoStub {
	stub := &yearRepoStub{years: map[string]*models.AcademicYear{}}
	for i := range years {
		y := years[i]
		stub.years[y.ID] = &y
	}
	return stub
}

func (s *yearRepoStub) List(ctx context.Context, schoolID string, page, size int) ([]models.AcademicYear, int, error) {
	s.listCalls++
	var out []models.AcademicYear
	for _, y := range s.years {
		out = append(out, *y)
	}
	return out, len(out), nil
}

func (s *yearRepoStub) Stats(ctx context.Context, schoolID string) (models.AcademicYearStats, error) {
	return s.stats, nil
}

func (s *yearRepoStub) FindByID(ctx context.Context, schoolID, id string) (*models.AcademicYear, error) {
	y, ok := s.years[id]
	if !ok || y.SchoolID != schoolID {
		return nil, sql.ErrNoRows
	}
	cp := *y
	return &cp, nil
}

func (s *yearRepoStub) ExistsByName(ctx context.Context, schoolID, name, excludeID string) (bool, error) {
	return s.nameTaken, nil
}

func (s *yearRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, year *models.AcademicYear) error {
	year.ID = "year-new"
	s.created = append(s.created, year)
	return nil
}

func (s *yearRepoStub) Update(ctx context.Context, exec sqlx.ExtContext, year *models.AcademicYear) error {
	if _, ok := s.years[year.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *year
	s.years[year.ID] = &cp
	return nil
}

func (s *yearRepoStub) DeactivateOthers(ctx context.Context, exec sqlx.ExtContext, schoolID, keepID string) error {
	s.deactivated = append(s.deactivated, keepID)
	return nil
}

func (s *yearRepoStub) SetActive(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.activated = append(s.activated, id)
	return nil
}

type termRepoStub struct {
	terms     []models.AcademicTerm
	createErr error
}

func (s *termRepoStub) ListByYear(ctx context.Context, schoolID, yearID string) ([]models.AcademicTerm, error) {
	return s.terms, nil
}

func (s *termRepoStub) Create(ctx context.Context, term *models.AcademicTerm) error {
	if s.createErr != nil {
		return s.createErr
	}
	term.ID = "term-new"
	s.terms = append(s.terms, *term)
	return nil
}

type cascadeStub struct {
	summary dto.DeletionSummary
	err     error
	calls   []string
}

func (s *cascadeStub) DeleteAcademicYear(ctx context.Context, schoolID, yearID string) (dto.DeletionSummary, error) {
	s.calls = append(s.calls, "year:"+yearID)
	return s.summary, s.err
}

func (s *cascadeStub) DeleteFeeStructure(ctx context.Context, schoolID, structureID string) (dto.DeletionSummary, error) {
	s.calls = append(s.calls, "structure:"+structureID)
	return s.summary, s.err
}

type categoryRepoStub struct {
	categories []models.FeeCategory
	createErr  error
}

func (s *categoryRepoStub) List(ctx context.Context, schoolID string) ([]models.FeeCategory, error) {
	return s.categories, nil
}

func (s *categoryRepoStub) FindByIDs(ctx context.Context, schoolID string, ids []string) ([]models.FeeCategory, error) {
	var out []models.FeeCategory
	for _, c := range s.categories {
		for _, id := range ids {
			if c.ID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (s *categoryRepoStub) FindByID(ctx context.Context, schoolID, id string) (*models.FeeCategory, error) {
	for _, c := range s.categories {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *categoryRepoStub) Create(ctx context.Context, category *models.FeeCategory) error {
	if s.createErr != nil {
		return s.createErr
	}
	category.ID = "cat-new"
	s.categories = append(s.categories, *category)
	return nil
}

func (s *categoryRepoStub) Update(ctx context.Context, category *models.FeeCategory) error {
	for i, c := range s.categories {
		if c.ID == category.ID {
			s.categories[i] = *category
			return nil
		}
	}
	return sql.ErrNoRows
}

type structureRepoStub struct {
	structures map[string]*models.FeeStructure
	items      []models.FeeStructureItem
	createErr  error
	itemsErr   error
	published  []string
	onCreate   func()
}

func newStructureRepoStub(structures ...models.FeeStructure) *structureRepoStub {
	stub := &structureRepoStub{structures: map[string]*models.FeeStructure{}}
	for i := range structures {
		s := structures[i]
		stub.structures[s.ID] = &s
	}
	return stub
}

func (s *structureRepoStub) List(ctx context.Context, schoolID string, filter models.StructureFilter) ([]models.FeeStructure, int, error) {
	var out []models.FeeStructure
	for _, st := range s.structures {
		if filter.AcademicYearID == "" || st.AcademicYearID == filter.AcademicYearID {
			out = append(out, *st)
		}
	}
	return out, len(out), nil
}

func (s *structureRepoStub) FindByID(ctx context.Context, schoolID, id string) (*models.FeeStructure, error) {
	st, ok := s.structures[id]
	if !ok || st.SchoolID != schoolID {
		return nil, sql.ErrNoRows
	}
	cp := *st
	return &cp, nil
}

func (s *structureRepoStub) FindByScope(ctx context.Context, schoolID, yearID, gradeLevel string, appliesTo models.AppliesTo) (*models.FeeStructure, error) {
	for _, st := range s.structures {
		if st.SchoolID == schoolID && st.AcademicYearID == yearID && st.GradeLevel == gradeLevel && st.AppliesTo == appliesTo {
			cp := *st
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *structureRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, structure *models.FeeStructure) error {
	if s.onCreate != nil {
		s.onCreate()
	}
	if s.createErr != nil {
		return s.createErr
	}
	structure.ID = "structure-" + strings.ReplaceAll(strings.ToLower(structure.Name), " ", "-")
	cp := *structure
	s.structures[structure.ID] = &cp
	return nil
}

func (s *structureRepoStub) InsertItems(ctx context.Context, exec sqlx.ExtContext, structureID string, items []models.FeeStructureItem) error {
	if s.itemsErr != nil {
		return s.itemsErr
	}
	for _, item := range items {
		item.StructureID = structureID
		s.items = append(s.items, item)
	}
	return nil
}

func (s *structureRepoStub) ListItems(ctx context.Context, structureIDs []string) ([]models.FeeStructureItem, error) {
	var out []models.FeeStructureItem
	for _, item := range s.items {
		for _, id := range structureIDs {
			if item.StructureID == id {
				out = append(out, item)
			}
		}
	}
	return out, nil
}

func (s *structureRepoStub) SetPublished(ctx context.Context, schoolID, id string) error {
	if _, ok := s.structures[id]; !ok {
		return sql.ErrNoRows
	}
	s.published = append(s.published, id)
	return nil
}

type scheduleRepoStub struct {
	schedules []models.PaymentSchedule
	createErr error
}

func (s *scheduleRepoStub) ListByStructure(ctx context.Context, structureID string) ([]models.PaymentSchedule, error) {
	var out []models.PaymentSchedule
	for _, sc := range s.schedules {
		if sc.StructureID == structureID {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *scheduleRepoStub) FindByIDs(ctx context.Context, structureID string, ids []string) ([]models.PaymentSchedule, error) {
	var out []models.PaymentSchedule
	for _, sc := range s.schedules {
		for _, id := range ids {
			if sc.ID == id && sc.StructureID == structureID {
				out = append(out, sc)
			}
		}
	}
	return out, nil
}

func (s *scheduleRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.PaymentSchedule) error {
	if s.createErr != nil {
		return s.createErr
	}
	schedule.ID = "schedule-new"
	s.schedules = append(s.schedules, *schedule)
	return nil
}

type studentRepoStub struct {
	students   []models.Student
	lastFilter models.StudentFilter
}

func (s *studentRepoStub) List(ctx context.Context, schoolID string, filter models.StudentFilter) ([]models.Student, int, error) {
	s.lastFilter = filter
	return s.students, len(s.students), nil
}

func (s *studentRepoStub) ListAll(ctx context.Context, schoolID string, filter models.StudentFilter) ([]models.Student, error) {
	s.lastFilter = filter
	var out []models.Student
	for _, st := range s.students {
		if filter.GradeLevel == "" || st.GradeLevel == filter.GradeLevel {
			out = append(out, st)
		}
	}
	return out, nil
}

type assignmentRepoStub struct {
	existing    []models.AssignmentKey
	inserted    []models.StudentFeeAssignment
	insertLimit int64
	details     []models.AssignmentDetail
	locked      *models.StudentFeeAssignment
	updates     []models.StudentFeeAssignment
}

func (s *assignmentRepoStub) ExistingKeys(ctx context.Context, schoolID, structureID string, scheduleIDs []string) ([]models.AssignmentKey, error) {
	return s.existing, nil
}

func (s *assignmentRepoStub) BulkInsert(ctx context.Context, exec sqlx.ExtContext, rows []models.StudentFeeAssignment) (int64, error) {
	s.inserted = append(s.inserted, rows...)
	if s.insertLimit > 0 && int64(len(rows)) > s.insertLimit {
		return s.insertLimit, nil
	}
	return int64(len(rows)), nil
}

func (s *assignmentRepoStub) List(ctx context.Context, schoolID string, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error) {
	return s.details, len(s.details), nil
}

func (s *assignmentRepoStub) ListByYear(ctx context.Context, schoolID, yearID string) ([]models.AssignmentDetail, error) {
	return s.details, nil
}

func (s *assignmentRepoStub) LockByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.StudentFeeAssignment, error) {
	if s.locked == nil || s.locked.ID != id {
		return nil, sql.ErrNoRows
	}
	cp := *s.locked
	return &cp, nil
}

func (s *assignmentRepoStub) UpdateBalance(ctx context.Context, exec sqlx.ExtContext, id string, paid decimal.Decimal, status models.AssignmentStatus) error {
	s.updates = append(s.updates, models.StudentFeeAssignment{ID: id, PaidAmount: paid, Status: status})
	return nil
}

type paymentRepoStub struct {
	payments []models.StudentFeePayment
}

func (s *paymentRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, payment *models.StudentFeePayment) error {
	payment.ID = "payment-new"
	s.payments = append(s.payments, *payment)
	return nil
}

type queueStub struct {
	tasks []jobs.Task
	err   error
}

func (q *queueStub) Submit(ctx context.Context, task jobs.Task) error {
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}
