package mailer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAlertMessage(t *testing.T) {
	m := buildAlertMessage("desk@clinic.example", "Clinic Desk", "alerts@clinic.example", EscalationAlert{
		OrganizationName: "Harbor Clinic",
		ChatSessionId:    "s-1",
		EscalationId:     "e-1",
		Priority:         "high",
	})

	assert.Equal(t, []string{"alerts@clinic.example"}, m.GetHeader("To"))
	assert.Equal(t, []string{"[Harbor Clinic] New high priority escalation"}, m.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "e-1")
	assert.NotContains(t, buf.String(), "Open the escalation queue")
}
