package middleware

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateMessageText(t *testing.T) {
	assert.NoError(t, ValidateMessageText("hello"))
	assert.Error(t, ValidateMessageText(""))
	assert.Error(t, ValidateMessageText(strings.Repeat("x", 100001)))
	assert.Error(t, ValidateMessageText("bad \xff utf8"))
}

func TestValidateSessionID(t *testing.T) {
	assert.NoError(t, ValidateSessionID("018f0000-0000-7000-8000-000000000001"))
	assert.Error(t, ValidateSessionID("not-a-uuid"))
	assert.Error(t, ValidateSessionID(""))
}

func TestValidateFileName(t *testing.T) {
	assert.NoError(t, ValidateFileName("report.pdf"))
	assert.Error(t, ValidateFileName(""))
	assert.Error(t, ValidateFileName(strings.Repeat("x", 257)))
}
