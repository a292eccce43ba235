package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/dto"
	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
	"github.com/noah-isme/campus-attendance-api/pkg/export"
	"github.com/noah-isme/campus-attendance-api/pkg/token"
)

type attendanceSessionRepository interface {
	Create(ctx context.Context, session *models.AttendanceSession) error
	FindByID(ctx context.Context, id string) (*models.AttendanceSession, error)
	ListByTeacher(ctx context.Context, teacherID string, date models.Date) ([]models.AttendanceSession, error)
	Close(ctx context.Context, id string, closedAt time.Time) error
	CreateRecord(ctx context.Context, record *models.AttendanceRecord) error
	ListRecords(ctx context.Context, sessionID string) ([]models.AttendanceRecordDetail, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
}

type odApprovalChecker interface {
	ApprovedOn(ctx context.Context, studentID string, date models.Date) (bool, error)
}

type sessionMatcher interface {
	Match(ctx context.Context, teacherID string, state models.DayOrderState) (*models.ScheduledSessions, error)
}

type rosterRenderer interface {
	Render(r export.Roster) ([]byte, error)
	ContentType() string
	Extension() string
}

// AttendanceSessionConfig tunes session lifetimes and QR payloads.
type AttendanceSessionConfig struct {
	DefaultDuration time.Duration
	PublicBaseURL   string
	Location        *time.Location
}

// ExportFile is a rendered roster ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AttendanceSessionService opens attendance sessions, issues their QR tokens and records
// student marks.
type AttendanceSessionService struct {
	sessions  attendanceSessionRepository
	students  studentReader
	classes   classReader
	subjects  subjectReader
	od        odApprovalChecker
	resolver  dayOrderResolver
	matcher   sessionMatcher
	signer    *token.Signer
	renderers map[string]rosterRenderer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AttendanceSessionConfig
	now       func() time.Time
}

// NewAttendanceSessionService constructs the service.
func NewAttendanceSessionService(
	sessions attendanceSessionRepository,
	students studentReader,
	classes classReader,
	subjects subjectReader,
	od odApprovalChecker,
	resolver dayOrderResolver,
	matcher sessionMatcher,
	signer *token.Signer,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg AttendanceSessionConfig,
) *AttendanceSessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = 10 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	csvWriter, pdfWriter := export.NewCSVWriter(), export.NewPDFWriter()
	return &AttendanceSessionService{
		sessions:  sessions,
		students:  students,
		classes:   classes,
		subjects:  subjects,
		od:        od,
		resolver:  resolver,
		matcher:   matcher,
		signer:    signer,
		renderers: map[string]rosterRenderer{csvWriter.Extension(): csvWriter, pdfWriter.Extension(): pdfWriter},
		metrics:   metrics,
		validator: ensureValidator(validate),
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Get returns a session.
func (s *AttendanceSessionService) Get(ctx context.Context, id string) (*models.AttendanceSession, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "attendance session")
	}
	return session, nil
}

// Open starts a session for one class and subject and returns its ticket.
func (s *AttendanceSessionService) Open(ctx context.Context, req dto.OpenSessionRequest) (*models.SessionTicket, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid session payload")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		return nil, lookupError(err, "class")
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		return nil, lookupError(err, "subject")
	}
	duration := s.cfg.DefaultDuration
	if req.DurationMinutes > 0 {
		duration = time.Duration(req.DurationMinutes) * time.Minute
	}
	session := s.newSession(req.TeacherID, req.ClassID, req.SubjectID, duration)
	if req.AssignmentID != "" {
		assignmentID := req.AssignmentID
		session.AssignmentID = &assignmentID
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open attendance session")
	}
	return s.ticket(session)
}

// AutoStart opens a session for every auto-session assignment on the teacher's current day
// order, skipping assignments that already have a session today. Holidays open nothing.
func (s *AttendanceSessionService) AutoStart(ctx context.Context, req dto.AutoSessionRequest) (*models.AutoSessionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid auto session payload")
	}
	state := s.resolver.Resolve(ctx, req.Department, nil)
	result := &models.AutoSessionResult{DayOrder: state, Created: []models.AttendanceSession{}, Skipped: []string{}}

	matched, err := s.matcher.Match(ctx, req.TeacherID, state)
	if err != nil {
		return nil, err
	}
	if matched.IsHoliday || matched.Count == 0 {
		return result, nil
	}

	existing, err := s.sessions.ListByTeacher(ctx, req.TeacherID, s.today())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load today's sessions")
	}
	started := make(map[string]struct{}, len(existing))
	for _, sess := range existing {
		if sess.AssignmentID != nil {
			started[*sess.AssignmentID] = struct{}{}
		}
	}

	for _, scheduled := range matched.ScheduledSessions {
		if _, ok := started[scheduled.ID]; ok {
			result.Skipped = append(result.Skipped, scheduled.ID)
			continue
		}
		session := s.newSession(req.TeacherID, scheduled.ClassID, scheduled.SubjectID, s.cfg.DefaultDuration)
		assignmentID := scheduled.ID
		session.AssignmentID = &assignmentID
		session.DayOrder = state.DayOrder
		if err := s.sessions.Create(ctx, session); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open attendance session")
		}
		result.Created = append(result.Created, *session)
	}
	s.logger.Info("auto sessions started",
		zap.String("teacher_id", req.TeacherID),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Bool("day_order_fallback", state.Fallback),
	)
	return result, nil
}

func (s *AttendanceSessionService) newSession(teacherID, classID, subjectID string, duration time.Duration) *models.AttendanceSession {
	now := s.now().UTC()
	return &models.AttendanceSession{
		TeacherID:   teacherID,
		ClassID:     classID,
		SubjectID:   subjectID,
		SessionDate: s.today(),
		Status:      models.SessionStatusOpen,
		OpenedAt:    now,
		ClosesAt:    now.Add(duration),
	}
}

func (s *AttendanceSessionService) today() models.Date {
	return models.NewDate(s.now().In(s.cfg.Location))
}

// Ticket reissues the signed token of an open session.
func (s *AttendanceSessionService) Ticket(ctx context.Context, sessionID string) (*models.SessionTicket, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.AcceptsMarks(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrSessionClosed, "")
	}
	return s.ticket(session)
}

func (s *AttendanceSessionService) ticket(session *models.AttendanceSession) (*models.SessionTicket, error) {
	tok, err := s.signer.Issue(session.ID, session.ClosesAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session token")
	}
	return &models.SessionTicket{
		Session:   *session,
		Token:     tok,
		URL:       s.cfg.PublicBaseURL + "/attend?token=" + url.QueryEscape(tok),
		ExpiresAt: session.ClosesAt,
	}, nil
}

// QRCode renders the session ticket URL as a PNG.
func (s *AttendanceSessionService) QRCode(ctx context.Context, sessionID string) ([]byte, error) {
	ticket, err := s.Ticket(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(ticket.URL, qrcode.Medium, 256)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render qr code")
	}
	return png, nil
}

// Mark records the student's attendance for the session named by the token. Students on an
// approved OD for the session date are recorded as od.
func (s *AttendanceSessionService) Mark(ctx context.Context, studentID string, req dto.MarkAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "token is required")
	}
	claims, err := s.signer.Parse(strings.TrimSpace(req.Token))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, appErrors.ErrInvalidToken.Message)
	}
	session, err := s.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if !session.AcceptsMarks(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrSessionClosed, "")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, lookupError(err, "student")
	}
	if student.ClassID != session.ClassID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is not enrolled in this class")
	}

	status := models.RecordStatusPresent
	onDuty, err := s.od.ApprovedOn(ctx, studentID, session.SessionDate)
	if err != nil {
		s.logger.Warn("od lookup failed, recording present", zap.String("student_id", studentID), zap.Error(err))
	} else if onDuty {
		status = models.RecordStatusOD
	}

	record := &models.AttendanceRecord{SessionID: session.ID, StudentID: studentID, Status: status, MarkedAt: s.now().UTC()}
	if err := s.sessions.CreateRecord(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "attendance already marked")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	s.metrics.RecordAttendanceMark(string(status))
	return record, nil
}

// Close ends a session.
func (s *AttendanceSessionService) Close(ctx context.Context, sessionID string) (*models.AttendanceSession, error) {
	if err := s.sessions.Close(ctx, sessionID, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, findErr := s.Get(ctx, sessionID); findErr != nil {
				return nil, findErr
			}
			return nil, appErrors.Clone(appErrors.ErrSessionClosed, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close attendance session")
	}
	return s.Get(ctx, sessionID)
}

// Records lists the marks of a session.
func (s *AttendanceSessionService) Records(ctx context.Context, sessionID string) ([]models.AttendanceRecordDetail, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	records, err := s.sessions.ListRecords(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance records")
	}
	if records == nil {
		records = []models.AttendanceRecordDetail{}
	}
	return records, nil
}

// Export renders the full class roster with each student's status (absent when unmarked).
func (s *AttendanceSessionService) Export(ctx context.Context, sessionID, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	class, err := s.classes.FindByID(ctx, session.ClassID)
	if err != nil {
		return nil, lookupError(err, "class")
	}
	subject, err := s.subjects.FindByID(ctx, session.SubjectID)
	if err != nil {
		return nil, lookupError(err, "subject")
	}
	students, err := s.students.ListByClass(ctx, session.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	records, err := s.sessions.ListRecords(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance records")
	}

	roster := buildRoster(session, class, subject, students, records, s.cfg.Location)
	data, err := renderer.Render(roster)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("attendance_%s_%s_%s.%s", sanitizeFilename(class.Name+class.Section), sanitizeFilename(subject.Code), session.SessionDate, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

func buildRoster(session *models.AttendanceSession, class *models.Class, subject *models.Subject, students []models.Student, records []models.AttendanceRecordDetail, loc *time.Location) export.Roster {
	marks := make(map[string]models.AttendanceRecordDetail, len(records))
	for _, rec := range records {
		marks[rec.StudentID] = rec
	}
	present, od := 0, 0
	rows := make([]map[string]string, 0, len(students))
	for _, st := range students {
		row := map[string]string{"register_no": st.RegisterNo, "name": st.FullName, "status": "absent", "marked_at": ""}
		if rec, ok := marks[st.ID]; ok {
			row["status"] = string(rec.Status)
			row["marked_at"] = rec.MarkedAt.In(loc).Format("15:04:05")
			if rec.Status == models.RecordStatusOD {
				od++
			} else {
				present++
			}
		}
		rows = append(rows, row)
	}
	return export.Roster{
		Title: "Attendance Roster",
		Facts: [][2]string{
			{"Class", strings.TrimSpace(class.Name + " " + class.Section)},
			{"Subject", subject.Code + " " + subject.Name},
			{"Date", session.SessionDate.String()},
			{"Summary", fmt.Sprintf("%d present, %d on duty, %d absent", present, od, len(students)-present-od)},
		},
		Columns: []export.Column{
			{Key: "register_no", Label: "Register No", Width: 40},
			{Key: "name", Label: "Name"},
			{Key: "status", Label: "Status", Width: 30},
			{Key: "marked_at", Label: "Marked At", Width: 30},
		},
		Rows: rows,
	}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 60 {
		return result[:60]
	}
	return result
}
