package log4gox

import (
	"strings"
	"testing"
	"time"

	l4g "github.com/alecthomas/log4go"
	"github.com/stretchr/testify/assert"
)

func Test_ParseLevel(t *testing.T) {
	assert.Equal(t, l4g.INFO, ParseLevel("INFO"))
	assert.Equal(t, l4g.WARNING, ParseLevel("warn"))
	assert.Equal(t, l4g.CRITICAL, ParseLevel("critical"))
	assert.Equal(t, l4g.DEBUG, ParseLevel("nonsense"))
}

func Test_Format(t *testing.T) {
	rec := &l4g.LogRecord{
		Level:   l4g.WARNING,
		Created: time.Now(),
		Source:  "room.go:10",
		Message: "[room(1)] hello",
	}
	plain := format(rec, "01/02/06 15:04:05", false)
	assert.Equal(t, "[01/02/06 15:04:05] [WARN] (room.go:10) [room(1)] hello\n", plain)

	colored := format(rec, "01/02/06 15:04:05", true)
	assert.True(t, strings.HasPrefix(colored, "\x1b[33m"))
	assert.True(t, strings.HasSuffix(colored, "\x1b[0m"))
}
