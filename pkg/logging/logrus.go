package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Logrus builds the per-component loggers of the monitor.
type Logrus struct {
	level  string
	format string
	output io.Writer
	fields logrus.Fields
}

// NewLogrus creates a new logrus factory writing text logs to output.
func NewLogrus(level string, output io.Writer) *Logrus {
	return &Logrus{level: level, format: FormatText, output: output, fields: logrus.Fields{}}
}

// WithFormat switches between the text and json formatters.
func (l *Logrus) WithFormat(format string) *Logrus {
	l.format = format
	return l
}

// WithField adds a field carried by every logger the factory hands out.
func (l *Logrus) WithField(key string, value interface{}) *Logrus {
	l.fields[key] = value
	return l
}

// Get returns a logrus instance based on the specific context
func (l *Logrus) Get(context string) *logrus.Entry {
	log := logrus.New()
	level, err := logrus.ParseLevel(l.level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if l.format == FormatJSON {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	log.SetOutput(l.output)

	fields := logrus.Fields{"Context": context}
	for key, value := range l.fields {
		fields[key] = value
	}
	return log.WithFields(fields)
}
