package notify

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log"

	"github.com/wneessen/go-mail"

	"github.com/kendall-kelly/quickfix-api/config"
	"github.com/kendall-kelly/quickfix-api/dispatch"
	"github.com/kendall-kelly/quickfix-api/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(
	template.New("").
		Funcs(template.FuncMap{"deref": func(s *string) string { return *s }}).
		ParseFS(templateFS, "templates/*.html"),
)

type statusCopy struct {
	Title   string
	Message string
}

var statusMessages = map[models.BookingStatus]statusCopy{
	models.StatusPending:    {"Booking Pending", "Your booking is currently pending review."},
	models.StatusAccepted:   {"Booking Accepted", "Great news! Your booking has been accepted by a technician."},
	models.StatusInProgress: {"Work In Progress", "The technician is currently working on your service request."},
	models.StatusCompleted:  {"Service Completed", "Your service request has been completed successfully!"},
	models.StatusCancelled:  {"Booking Cancelled", "Your booking has been cancelled."},
}

// sender is the part of *mail.Client used to deliver messages
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailNotifier sends HTML emails to the customer and assigned technician
type EmailNotifier struct {
	from   string
	client sender
}

// NewEmailNotifier builds a notifier from the MAIL_* settings. When the SMTP
// credentials are missing the notifier logs and skips every message.
func NewEmailNotifier(cfg *config.Config) (*EmailNotifier, error) {
	n := &EmailNotifier{from: cfg.MailFrom}
	if cfg.MailHost == "" || cfg.MailUsername == "" || cfg.MailPassword == "" {
		log.Printf("[notify] SMTP not configured, email notifications disabled")
		return n, nil
	}

	policy := mail.NoTLS
	if cfg.MailTLS {
		policy = mail.TLSMandatory
	}
	client, err := mail.NewClient(cfg.MailHost,
		mail.WithPort(cfg.MailPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.MailUsername),
		mail.WithPassword(cfg.MailPassword),
		mail.WithTLSPortPolicy(policy),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	n.client = client
	return n, nil
}

func (n *EmailNotifier) NotifyBookingCreated(ctx context.Context, evt dispatch.Event) error {
	subject := fmt.Sprintf("Booking Confirmation - QuickFix #%d", evt.Booking.ID)
	return n.send(ctx, evt.Customer, subject, "booking_confirmation.html", newEmailData(evt))
}

func (n *EmailNotifier) NotifyStatusChanged(ctx context.Context, evt dispatch.Event) error {
	data := newEmailData(evt)
	subject := fmt.Sprintf("Booking Update - QuickFix #%d - %s", evt.Booking.ID, data.Title)
	return n.send(ctx, evt.Customer, subject, "status_update.html", data)
}

func (n *EmailNotifier) NotifyTechnicianAssigned(ctx context.Context, evt dispatch.Event) error {
	if evt.Technician == nil {
		return nil
	}
	subject := fmt.Sprintf("New Job Assignment - QuickFix #%d", evt.Booking.ID)
	return n.send(ctx, *evt.Technician, subject, "technician_assignment.html", newEmailData(evt))
}

func (n *EmailNotifier) send(ctx context.Context, to dispatch.Contact, subject, tmpl string, data emailData) error {
	if n.client == nil {
		log.Printf("[notify] skipping email %q to %s: SMTP not configured", subject, to.Email)
		return nil
	}
	if to.Email == "" {
		return fmt.Errorf("no recipient for %q", subject)
	}

	msg, err := n.compose(to, subject, tmpl, data)
	if err != nil {
		return err
	}
	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send %q to %s: %w", subject, to.Email, err)
	}
	log.Printf("[notify] sent %q to %s", subject, to.Email)
	return nil
}

func (n *EmailNotifier) compose(to dispatch.Contact, subject, tmpl string, data emailData) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", n.from, err)
	}
	if err := msg.AddToFormat(to.Name, to.Email); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to.Email, err)
	}
	msg.Subject(subject)
	if err := msg.SetBodyHTMLTemplate(templates.Lookup(tmpl), data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", tmpl, err)
	}
	return msg, nil
}

// emailData is what the templates render
type emailData struct {
	dispatch.Event
	ServiceName string
	Date        string
	Title       string
	Message     string
}

func newEmailData(evt dispatch.Event) emailData {
	data := emailData{
		Event:       evt,
		ServiceName: "N/A",
		Date:        evt.Booking.PreferredDate.Format("January 2, 2006"),
	}
	if evt.Service != nil {
		data.ServiceName = evt.Service.Name
	}
	if text, ok := statusMessages[evt.Booking.Status]; ok {
		data.Title, data.Message = text.Title, text.Message
	} else {
		data.Title = "Booking Update"
		data.Message = fmt.Sprintf("Your booking status is now %s.", evt.Booking.Status)
	}
	return data
}
