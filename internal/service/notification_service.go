package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/pkg/jobs"
	"github.com/noah-isme/campus-attendance-api/pkg/notify"
)

const (
	emailKindTransfer   = "transfer_assigned"
	emailKindODDecision = "od_decision"
)

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type emailJob struct {
	Kind    string
	Message notify.Message
}

// NotificationService sends best-effort emails on a background queue. Delivery failures are
// logged and counted but never reach the request that triggered them.
type NotificationService struct {
	mailer  notify.Mailer
	queue   jobEnqueuer
	worker  *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService wires the mailer behind an in-memory worker pool. Retries are
// disabled regardless of cfg.
func NewNotificationService(mailer notify.Mailer, metrics *MetricsService, logger *zap.Logger, cfg jobs.QueueConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{mailer: mailer, metrics: metrics, logger: logger}
	cfg.MaxRetries = 0
	cfg.Logger = logger
	svc.worker = jobs.NewQueue("email", svc.deliver, cfg)
	svc.queue = svc.worker
	return svc
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s == nil || s.worker == nil {
		return
	}
	s.worker.Start(ctx)
}

// Stop waits for in-flight deliveries; queued messages are dropped.
func (s *NotificationService) Stop() {
	if s == nil || s.worker == nil {
		return
	}
	s.worker.Stop()
}

// NotifySubstitutes sends each substitute one email listing the classes they cover.
func (s *NotificationService) NotifySubstitutes(absentTeacher string, transfers []models.ClassTransferDetail) {
	if s == nil || len(transfers) == 0 {
		return
	}
	bySubstitute := make(map[string][]models.ClassTransferDetail)
	for _, tr := range transfers {
		bySubstitute[tr.SubstituteTeacherID] = append(bySubstitute[tr.SubstituteTeacherID], tr)
	}
	ids := make([]string, 0, len(bySubstitute))
	for id := range bySubstitute {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		duties := bySubstitute[id]
		first := duties[0]
		if first.SubstituteEmail == "" {
			s.logger.Warn("substitute has no email address", zap.String("teacher_id", id))
			continue
		}
		var body strings.Builder
		fmt.Fprintf(&body, "Hello %s,\n\nYou are covering for %s on the following classes:\n\n", first.SubstituteName, absentTeacher)
		for _, d := range duties {
			fmt.Fprintf(&body, "- %s: %s %s, %s (%s)\n", d.TransferDate, d.ClassName, d.ClassSection, d.SubjectName, d.SubjectCode)
		}
		s.enqueue(emailKindTransfer, notify.Message{
			ToName:    first.SubstituteName,
			ToAddress: first.SubstituteEmail,
			Subject:   fmt.Sprintf("Class cover assigned (%d)", len(duties)),
			PlainText: body.String(),
		})
	}
}

// NotifyODDecision tells the student whether their OD request was approved.
func (s *NotificationService) NotifyODDecision(req models.ODRequestDetail) {
	if s == nil {
		return
	}
	if req.StudentEmail == "" {
		s.logger.Warn("student has no email address", zap.String("student_id", req.StudentID))
		return
	}
	text := fmt.Sprintf("Hello %s,\n\nYour OD request for %q (%s to %s) was %s.\n", req.StudentName, req.EventName, req.StartDate, req.EndDate, req.Status)
	if req.Remarks != nil && *req.Remarks != "" {
		text += "\nRemarks: " + *req.Remarks + "\n"
	}
	s.enqueue(emailKindODDecision, notify.Message{
		ToName:    req.StudentName,
		ToAddress: req.StudentEmail,
		Subject:   "OD request " + string(req.Status),
		PlainText: text,
	})
}

func (s *NotificationService) enqueue(kind string, msg notify.Message) {
	job := jobs.Job{ID: uuid.NewString(), Type: kind, Payload: emailJob{Kind: kind, Message: msg}}
	if err := s.queue.Enqueue(job); err != nil {
		s.metrics.RecordEmail(kind, false)
		s.logger.Warn("email not queued", zap.String("kind", kind), zap.String("to", msg.ToAddress), zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(emailJob)
	if !ok {
		return fmt.Errorf("unexpected email payload %T", job.Payload)
	}
	id, err := s.mailer.Send(ctx, payload.Message)
	s.metrics.RecordEmail(payload.Kind, err == nil)
	if err != nil {
		return fmt.Errorf("send %s email to %s: %w", payload.Kind, payload.Message.ToAddress, err)
	}
	s.logger.Debug("email delivered", zap.String("kind", payload.Kind), zap.String("message_id", id))
	return nil
}
