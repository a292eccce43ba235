package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Message is a single outbound email.
type Message struct {
	ToName    string
	ToAddress string
	Subject   string
	PlainText string
	HTML      string
}

// Mailer delivers messages and returns the provider's message identifier.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Sender identifies the From header.
type Sender struct {
	Name    string
	Address string
}

var (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// SendGridMailer sends through the SendGrid v3 API.
type SendGridMailer struct {
	key    string
	from   *sgmail.Email
	prefix string
	api    func(req sendgridRequest) (int, map[string][]string, string, error)
}

type sendgridRequest struct {
	key  string
	body []byte
}

// NewSendGridMailer builds a mailer bound to the provided API key.
func NewSendGridMailer(key string, from Sender) *SendGridMailer {
	return &SendGridMailer{
		key:    key,
		from:   sgmail.NewEmail(from.Name, from.Address),
		prefix: "[" + from.Name + "] ",
		api:    callSendGrid,
	}
}

// Send delivers the message synchronously.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) (string, error) {
	if msg.ToAddress == "" {
		return "", fmt.Errorf("recipient address required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	status, headers, body, err := m.api(sendgridRequest{key: m.key, body: sgmail.GetRequestBody(m.prepare(msg))})
	if err != nil {
		return "", fmt.Errorf("sendgrid request: %w", err)
	}
	if status >= http.StatusBadRequest {
		return "", fmt.Errorf("sendgrid rejected message: status %d: %s", status, body)
	}
	if ids := headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}

func (m *SendGridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.prefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToAddress))

	mail := sgmail.NewV3Mail()
	mail.SetFrom(m.from)
	mail.AddPersonalizations(p)
	mail.AddContent(sgmail.NewContent("text/plain", msg.PlainText))
	if msg.HTML != "" {
		mail.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return mail
}

func callSendGrid(r sendgridRequest) (int, map[string][]string, string, error) {
	req := sendgrid.GetRequest(r.key, sendGridEndpoint, sendGridHost)
	req.Method = http.MethodPost
	req.Body = r.body
	res, err := sendgrid.API(req)
	if err != nil {
		return 0, nil, "", err
	}
	return res.StatusCode, res.Headers, res.Body, nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds a development mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message and returns a synthetic id.
func (m *LogMailer) Send(_ context.Context, msg Message) (string, error) {
	if msg.ToAddress == "" {
		return "", fmt.Errorf("recipient address required")
	}
	id := "log-" + uuid.NewString()
	m.logger.Info("email message",
		zap.String("message_id", id),
		zap.String("to", msg.ToAddress),
		zap.String("subject", msg.Subject),
	)
	return id, nil
}
