package fanout

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"
)

const mapsBaseURL = "https://www.google.com/maps"

// MapLink renders a Google Maps link for the coordinate without rounding.
func MapLink(loc Location) string {
	return fmt.Sprintf("%s?q=%s,%s", mapsBaseURL, formatCoordinate(loc.Latitude), formatCoordinate(loc.Longitude))
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// EmailSubject returns the subject line for an alert email.
func EmailSubject(emergencyType string) string {
	return "🚨 EMERGENCY ALERT: " + strings.ToUpper(emergencyType)
}

// SMSBody returns the plain text message sent to every SMS-eligible contact.
func SMSBody(req Request) string {
	return fmt.Sprintf("🚨 %s\n%s\nLocation: %s", req.EmergencyType, req.Situation, MapLink(req.Location))
}

type emailView struct {
	ContactName   string
	TypeUpper     string
	EmergencyType string
	Situation     string
	Latitude      string
	Longitude     string
	MapURL        string
	Evidence      []EvidenceFile
}

var emailTemplate = template.Must(template.New("alert-email").Parse(`<!DOCTYPE html>
<html>
  <head>
    <style>
      body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
      .container { max-width: 600px; margin: 0 auto; padding: 20px; }
      .alert-header { background-color: #e74c3c; color: white; padding: 20px; border-radius: 5px; text-align: center; }
      .content { background-color: #f9f9f9; padding: 20px; margin-top: 20px; border-radius: 5px; }
      .button { display: inline-block; background-color: #e74c3c; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; margin-top: 15px; }
      .info-box { background-color: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin: 15px 0; }
    </style>
  </head>
  <body>
    <div class="container">
      <div class="alert-header">
        <h1>🚨 EMERGENCY ALERT</h1>
        <p style="font-size: 18px;">{{.TypeUpper}}</p>
      </div>
      <div class="content">
        <h2 style="color: #e74c3c;">Dear {{.ContactName}},</h2>
        <p>Your emergency contact has triggered an alert and needs assistance.</p>
        <div class="info-box">
          <strong>Emergency Type:</strong> {{.EmergencyType}}<br>
          <strong>Situation:</strong> {{.Situation}}
        </div>
        <h3>📍 Location:</h3>
        <p>Latitude: {{.Latitude}}<br>Longitude: {{.Longitude}}</p>
        <a href="{{.MapURL}}" class="button" target="_blank">View Location on Map</a>
        {{- if .Evidence}}
        <h3 style="color: #333; margin-top: 20px;">Evidence Files:</h3>
        <ul style="list-style: none; padding: 0;">
          {{- range .Evidence}}
          <li style="margin: 10px 0;"><a href="{{.URL}}" style="color: #e74c3c; text-decoration: none;">📎 View {{.Type}}</a></li>
          {{- end}}
        </ul>
        {{- end}}
        <div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #ddd;">
          <p style="color: #666; font-size: 14px;">
            <strong>Instructions:</strong><br>
            1. Try to contact immediately<br>
            2. If unreachable, contact emergency services<br>
            3. Share location info with authorities if needed
          </p>
        </div>
      </div>
      <div style="text-align: center; margin-top: 20px; color: #666; font-size: 12px;">
        <p>Automated emergency notification.</p>
      </div>
    </div>
  </body>
</html>
`))

// EmailBody renders the HTML body addressed to a single contact.
func EmailBody(req Request, contact Contact) (string, error) {
	view := emailView{
		ContactName:   contact.Name,
		TypeUpper:     strings.ToUpper(req.EmergencyType),
		EmergencyType: req.EmergencyType,
		Situation:     req.Situation,
		Latitude:      formatCoordinate(req.Location.Latitude),
		Longitude:     formatCoordinate(req.Location.Longitude),
		MapURL:        MapLink(req.Location),
		Evidence:      req.EvidenceFiles,
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render alert email: %w", err)
	}
	return buf.String(), nil
}
