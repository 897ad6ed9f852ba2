package log4gox

import (
	"fmt"
	"io"
	"os"
	"strings"

	l4g "github.com/alecthomas/log4go"
)

var stdout io.Writer = os.Stdout

/*
前景色            背景色           颜色
---------------------------------------
30                40              黑色
31                41              红色
32                42              绿色
33                43              黃色
34                44              蓝色
35                45              紫红色
36                46              青蓝色
37                47              白色
*/
var (
	levelColor   = [...]int{30, 30, 32, 37, 37, 33, 31, 34}
	levelStrings = [...]string{"FNST", "FINE", "DEBG", "TRAC", "INFO", "WARN", "EROR", "CRIT"}
)

const (
	colorSymbol = 0x1B
)

// ConsoleLogWriter 输出到标准输出
type ConsoleLogWriter chan *l4g.LogRecord

// NewColorConsoleLogWriter 带颜色
func NewColorConsoleLogWriter() ConsoleLogWriter {
	return newConsoleLogWriter(stdout, true)
}

// NewPlainConsoleLogWriter 不带颜色, 重定向到文件时用
func NewPlainConsoleLogWriter() ConsoleLogWriter {
	return newConsoleLogWriter(stdout, false)
}

func newConsoleLogWriter(out io.Writer, color bool) ConsoleLogWriter {
	records := make(ConsoleLogWriter, l4g.LogBufferLength)
	go records.run(out, color)
	return records
}

func (w ConsoleLogWriter) run(out io.Writer, color bool) {
	var timestr string
	var timestrAt int64

	for rec := range w {
		if at := rec.Created.UnixNano() / 1e9; at != timestrAt {
			timestr, timestrAt = rec.Created.Format("01/02/06 15:04:05"), at
		}
		fmt.Fprint(out, format(rec, timestr, color))
	}
}

func format(rec *l4g.LogRecord, timestr string, color bool) string {
	if !color {
		return fmt.Sprintf("[%s] [%s] (%s) %s\n", timestr, levelStrings[rec.Level], rec.Source, rec.Message)
	}
	return fmt.Sprintf("%c[%dm[%s] [%s] (%s) %s\n%c[0m",
		colorSymbol,
		levelColor[rec.Level],
		timestr,
		levelStrings[rec.Level],
		rec.Source,
		rec.Message,
		colorSymbol)
}

// ParseLevel 配置里的级别名, 不认识的返回 DEBUG
func ParseLevel(s string) l4g.Level {
	switch strings.ToLower(s) {
	case "finest":
		return l4g.FINEST
	case "fine":
		return l4g.FINE
	case "debug":
		return l4g.DEBUG
	case "trace":
		return l4g.TRACE
	case "info":
		return l4g.INFO
	case "warn", "warning":
		return l4g.WARNING
	case "error":
		return l4g.ERROR
	case "critical":
		return l4g.CRITICAL
	}
	return l4g.DEBUG
}

// Setup 替换全局 logger 的控制台输出
func Setup(level string, color bool) {
	var w l4g.LogWriter
	if color {
		w = NewColorConsoleLogWriter()
	} else {
		w = NewPlainConsoleLogWriter()
	}
	l4g.Close()
	l4g.AddFilter("stdout", ParseLevel(level), w)
}

// LogWrite 缓冲满了会阻塞
func (w ConsoleLogWriter) LogWrite(rec *l4g.LogRecord) {
	w <- rec
}

// Close 之后不能再写
func (w ConsoleLogWriter) Close() {
	close(w)
}
