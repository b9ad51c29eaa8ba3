package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/iliyamo/smartcity-intake/internal/model"
)

// message is a rendered notification ready for a transport.
type message struct {
	FromName string
	Subject  string
	HTML     string
	Text     string
}


const layout = `<html>
<body style="font-family: 'Segoe UI', Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="background-color: {{.Color}}; padding: 25px; text-align: center; border-radius: 8px 8px 0 0;">
<h1 style="color: white; margin: 0; font-size: 24px;">{{.Org}}</h1>
</div>
<div style="padding: 30px; border: 1px solid #e2e8f0; border-top: none; border-radius: 0 0 8px 8px;">
<p>Dear <strong>{{.Name}}</strong>,</p>
<p>{{.Lead}}</p>
<div style="background-color: #f8fafc; padding: 20px; border-radius: 8px; margin: 20px 0;">
<table style="width: 100%; border-collapse: collapse;">
{{range .Rows}}<tr><td style="padding: 8px 0; color: #64748b;">{{.Label}}:</td><td style="font-weight: 600;">{{.Value}}</td></tr>
{{end}}</table>
</div>
<p><strong>Next Steps:</strong></p>
<ul style="color: #475569;">
{{range .Steps}}<li>{{.}}</li>
{{end}}</ul>
<p style="margin-top: 25px; font-size: 13px; color: #94a3b8;">This is an automated message from {{.Org}}. Please do not reply.</p>
</div>
</body>
</html>`

var page = template.Must(template.New("page").Parse(layout))

type row struct{ Label, Value string }

type pageData struct {
	Org, Color, Name, Lead string
	Rows                   []row
	Steps                  []string
}

func render(n model.Notification) (message, error) {
	var d pageData
	var msg message
	switch n.Kind {
	case model.NotifyBookingVerified:
		msg.FromName = "Smart City Hostel"
		msg.Subject = "OFFICIAL: Booking Verified - Smart City Hostel"
		d = pageData{
			Org:   msg.FromName,
			Color: "#1e40af",
			Lead:  "We are pleased to inform you that your booking has been Verified.",
			Rows: []row{
				{"Room Number", n.Fields["room_number"]},
				{"Bed ID", n.Fields["bed_id"]},
				{"Check-in Date", n.Fields["check_in_date"]},
			},
			Steps: []string{
				"Bring your original CNIC.",
				"Keep your fee deposit slip (Physical/Digital) ready.",
				"Report to the Warden office upon arrival.",
			},
		}
	case model.NotifyAdmissionVerified:
		msg.FromName = "Next Gen School"
		msg.Subject = "OFFICIAL: Admission Verified - Next Gen School"
		d = pageData{
			Org:   msg.FromName,
			Color: "#047857",
			Lead:  "Congratulations! We are pleased to inform you that your admission application has been Verified.",
			Rows: []row{
				{"Registration No", n.Fields["registration_no"]},
				{"Admission Class", n.Fields["admission_class"]},
				{"Father's Name", n.Fields["father_name"]},
			},
			Steps: []string{
				"Visit the school accounts office to collect your fee challan.",
				"Submit the required physical documents (Original B-Form & Photos).",
				"The orientation date will be communicated shortly.",
			},
		}
	default:
		return message{}, fmt.Errorf("unknown notification kind %q", n.Kind)
	}
	d.Name = n.Name

	var buf bytes.Buffer
	if err := page.Execute(&buf, d); err != nil {
		return message{}, fmt.Errorf("render %s: %w", n.Kind, err)
	}
	msg.HTML = buf.String()

	var text bytes.Buffer
	fmt.Fprintf(&text, "%s: %s is verified.", msg.FromName, n.Name)
	for _, r := range d.Rows {
		fmt.Fprintf(&text, " %s: %s.", r.Label, r.Value)
	}
	msg.Text = text.String()
	return msg, nil
}
