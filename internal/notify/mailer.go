// Package notify delivers verification notices: HTML email over SMTP to the
// applicant and an optional Telegram alert to the administrators.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/smartcity-intake/internal/model"
)

// DefaultSMTPTimeout bounds one delivery when the caller's context has no
// earlier deadline.
const DefaultSMTPTimeout = 15 * time.Second

// SMTPConfig holds mail server settings.  Without User and Pass the mailer
// only logs the message.
type SMTPConfig struct {
	Host    string
	Port    int
	User    string
	Pass    string
	From    string
	Timeout time.Duration
}

type sendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends notifications as HTML email.
type Mailer struct {
	cfg  SMTPConfig
	log  *zap.Logger
	send sendFunc
}

func NewMailer(cfg SMTPConfig, log *zap.Logger) *Mailer {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSMTPTimeout
	}
	return &Mailer{cfg: cfg, log: log, send: sendMail}
}

// Configured reports whether real delivery is possible.
func (m *Mailer) Configured() bool { return m.cfg.User != "" && m.cfg.Pass != "" }

// Notify renders n and sends it.  With no credentials the message is logged
// and reported as not delivered.
func (m *Mailer) Notify(ctx context.Context, n model.Notification) (bool, error) {
	msg, err := render(n)
	if err != nil {
		return false, err
	}
	if !m.Configured() {
		m.log.Warn("smtp credentials missing, mock email logged",
			zap.String("to", n.Recipient), zap.String("subject", msg.Subject), zap.String("body", msg.Text))
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()
	raw := buildMIME(m.cfg.From, msg.FromName, n.Recipient, msg.Subject, msg.HTML, time.Now())
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprint(m.cfg.Port))
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	if err := m.send(ctx, addr, auth, m.cfg.From, []string{n.Recipient}, raw); err != nil {
		return false, fmt.Errorf("send mail to %s: %w", n.Recipient, err)
	}
	m.log.Info("email sent", zap.String("to", n.Recipient), zap.String("kind", string(n.Kind)))
	return true, nil
}

// sendMail is smtp.SendMail bounded by ctx: the dial honours ctx and every
// read and write on the connection fails once ctx is done.
func sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if err == nil {
			return
		}
		if cerr := ctx.Err(); cerr != nil {
			err = fmt.Errorf("%w: %w", cerr, err)
		} else if dl, ok := ctx.Deadline(); ok && !time.Now().Before(dl) {
			err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
	}()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	host, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func buildMIME(from, fromName, to, subject, html string, at time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", fromName), from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", at.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(html)
	return []byte(b.String())
}
