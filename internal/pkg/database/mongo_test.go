package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactURI(t *testing.T) {
	assert.Equal(t, "mongodb://localhost:27017", redactURI("mongodb://localhost:27017"))
	redacted := redactURI("mongodb://user:secret@db:27017/x")
	assert.NotContains(t, redacted, "secret")
	assert.Contains(t, redacted, "@db:27017/x")
	assert.Equal(t, "", redactURI(""))
}

func TestUseMongoReports(t *testing.T) {
	t.Setenv("REPORT_STORE", "Mongo")
	assert.True(t, UseMongoReports())
	t.Setenv("REPORT_STORE", "sql")
	assert.False(t, UseMongoReports())
}
