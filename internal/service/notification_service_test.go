package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/pkg/jobs"
	"github.com/noah-isme/campus-attendance-api/pkg/notify"
)

type captureQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *captureQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type mailerStub struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (m *mailerStub) Send(ctx context.Context, msg notify.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, msg)
	return "msg-1", nil
}

func (m *mailerStub) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func transferDetail(substitute, email, date string) models.ClassTransferDetail {
	return models.ClassTransferDetail{
		ClassTransfer: models.ClassTransfer{
			SubstituteTeacherID: substitute,
			TransferDate:        models.MustParseDate(date),
		},
		SubstituteName:  "Sub " + substitute,
		SubstituteEmail: email,
		ClassName:       "CSE",
		ClassSection:    "A",
		SubjectName:     "Data Structures",
		SubjectCode:     "CS201",
	}
}

func TestNotifySubstitutesGroupsBySubstitute(t *testing.T) {
	queue := &captureQueue{}
	svc := NewNotificationService(&mailerStub{}, nil, nil, jobs.QueueConfig{})
	svc.queue = queue

	svc.NotifySubstitutes("Meena", []models.ClassTransferDetail{
		transferDetail("T2", "t2@campus.edu", "2025-03-10"),
		transferDetail("T3", "t3@campus.edu", "2025-03-10"),
		transferDetail("T2", "t2@campus.edu", "2025-03-11"),
		transferDetail("T4", "", "2025-03-11"),
	})

	require.Len(t, queue.jobs, 2)
	first := queue.jobs[0].Payload.(emailJob)
	assert.Equal(t, emailKindTransfer, first.Kind)
	assert.Equal(t, "t2@campus.edu", first.Message.ToAddress)
	assert.Contains(t, first.Message.PlainText, "2025-03-10")
	assert.Contains(t, first.Message.PlainText, "2025-03-11")
	assert.Contains(t, first.Message.PlainText, "covering for Meena")
}

func TestNotifyODDecision(t *testing.T) {
	queue := &captureQueue{}
	svc := NewNotificationService(&mailerStub{}, nil, nil, jobs.QueueConfig{})
	svc.queue = queue

	remarks := "bring the letter"
	req := models.ODRequestDetail{
		ODRequest:    models.ODRequest{StudentID: "S1", EventName: "Hackathon", Status: models.ODStatusApproved, StartDate: models.MustParseDate("2025-03-10"), EndDate: models.MustParseDate("2025-03-11"), Remarks: &remarks},
		StudentName:  "Asha",
		StudentEmail: "asha@campus.edu",
	}
	svc.NotifyODDecision(req)

	require.Len(t, queue.jobs, 1)
	msg := queue.jobs[0].Payload.(emailJob).Message
	assert.Equal(t, "OD request approved", msg.Subject)
	assert.Contains(t, msg.PlainText, "bring the letter")

	req.StudentEmail = ""
	svc.NotifyODDecision(req)
	assert.Len(t, queue.jobs, 1)
}

func TestNotificationEnqueueFailureIsSwallowed(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewNotificationService(&mailerStub{}, metrics, nil, jobs.QueueConfig{})
	svc.queue = &captureQueue{err: jobs.ErrQueueFull}

	assert.NotPanics(t, func() {
		svc.NotifySubstitutes("Meena", []models.ClassTransferDetail{transferDetail("T2", "t2@campus.edu", "2025-03-10")})
	})
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.emailDeliveries.WithLabelValues(emailKindTransfer, "failed")))
}

func TestNotificationDeliveryThroughQueue(t *testing.T) {
	mailer := &mailerStub{}
	metrics := NewMetricsService()
	svc := NewNotificationService(mailer, metrics, nil, jobs.QueueConfig{Workers: 1, BufferSize: 4})
	svc.Start(context.Background())
	defer svc.Stop()

	svc.NotifySubstitutes("Meena", []models.ClassTransferDetail{transferDetail("T2", "t2@campus.edu", "2025-03-10")})

	require.Eventually(t, func() bool { return mailer.count() == 1 }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.emailDeliveries.WithLabelValues(emailKindTransfer, "sent")) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestNotificationDeliverReportsMailerError(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewNotificationService(&mailerStub{err: errors.New("smtp down")}, metrics, nil, jobs.QueueConfig{})

	err := svc.deliver(context.Background(), jobs.Job{Payload: emailJob{Kind: emailKindODDecision, Message: notify.Message{ToAddress: "a@b.c"}}})
	assert.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.emailDeliveries.WithLabelValues(emailKindODDecision, "failed")))

	err = svc.deliver(context.Background(), jobs.Job{Payload: "nope"})
	assert.Error(t, err)
}
