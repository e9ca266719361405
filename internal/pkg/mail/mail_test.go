package mail

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessageStripsHeaderInjection(t *testing.T) {
	msg := string(BuildMessage("a@x.test", "b@x.test\r\nBcc: evil@x.test", "Hi", "<p>body</p>"))
	assert.NotContains(t, msg, "\r\nBcc:")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>body</p>"))
}

func TestSendUsesConfiguredServer(t *testing.T) {
	var gotAddr string
	var gotTo []string
	m := &SMTPMailer{Host: "smtp.test", Port: "2525", Sender: "no-reply@x.test",
		send: func(addr string, _ smtp.Auth, _ string, to []string, _ []byte) error {
			gotAddr, gotTo = addr, to
			return nil
		}}

	require.NoError(t, m.Send("juan@x.test", "s", "b"))
	assert.Equal(t, "smtp.test:2525", gotAddr)
	assert.Equal(t, []string{"juan@x.test"}, gotTo)

	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }
	assert.Error(t, m.Send("juan@x.test", "s", "b"))

	assert.Error(t, (&SMTPMailer{}).Send("juan@x.test", "s", "b"))
}

func TestRenderStatusUpdateEscapesNotes(t *testing.T) {
	subject, body, err := RenderStatusUpdate(StatusUpdate{
		Name: "Juan", TrackingCode: "BD-ABCDEFGH", Type: "pothole", Status: "verified",
		Notes: "<script>x</script>", At: time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "Report BD-ABCDEFGH is verified", subject)
	assert.Contains(t, body, "&lt;script&gt;")
	assert.Contains(t, body, "Jul 1, 2024")
}
