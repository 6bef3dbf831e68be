package fanout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapLinkKeepsInputPrecision(t *testing.T) {
	cases := []struct {
		loc  Location
		want string
	}{
		{Location{Latitude: 14.5995, Longitude: 120.9842}, "https://www.google.com/maps?q=14.5995,120.9842"},
		{Location{Latitude: -33.8688197, Longitude: 151.2092955}, "https://www.google.com/maps?q=-33.8688197,151.2092955"},
		{Location{Latitude: 0, Longitude: -0.5}, "https://www.google.com/maps?q=0,-0.5"},
		{Location{Latitude: 10, Longitude: 123.000001}, "https://www.google.com/maps?q=10,123.000001"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, MapLink(tc.loc))
	}
}

func TestSMSBody(t *testing.T) {
	body := SMSBody(fireRequest())
	require.Equal(t, "🚨 fire\nbuilding fire\nLocation: https://www.google.com/maps?q=14.5995,120.9842", body)
}

func TestEmailSubject(t *testing.T) {
	require.Equal(t, "🚨 EMERGENCY ALERT: MEDICAL", EmailSubject("medical"))
}

func TestEmailBodyEmbedsAlertDetails(t *testing.T) {
	req := fireRequest()
	req.Situation = "smoke <b>everywhere</b>"
	req.EvidenceFiles = []EvidenceFile{
		{URL: "https://cdn.example.com/emergency-photos/u1/1.jpg", Type: "photo"},
		{URL: "https://cdn.example.com/emergency-audio/u1/2.webm", Type: "audio"},
	}

	html, err := EmailBody(req, Contact{Name: "Ana"})
	require.NoError(t, err)

	require.Contains(t, html, "Dear Ana,")
	require.Contains(t, html, "FIRE")
	require.Contains(t, html, "smoke &lt;b&gt;everywhere&lt;/b&gt;")
	require.Contains(t, html, "Latitude: 14.5995")
	require.Contains(t, html, "Longitude: 120.9842")
	require.Contains(t, html, `href="https://www.google.com/maps?q=14.5995,120.9842"`)
	require.Contains(t, html, "📎 View photo")
	require.Contains(t, html, "📎 View audio")
	require.Contains(t, html, "Evidence Files:")
}

func TestEmailBodyOmitsEmptyEvidence(t *testing.T) {
	html, err := EmailBody(fireRequest(), Contact{Name: "Bo"})
	require.NoError(t, err)
	require.False(t, strings.Contains(html, "Evidence Files:"))
}
