package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/LeventeLantos/modem-sms/internal/model"
)

type Format string

const (
	Text Format = "txt"
	JSON Format = "json"
	YAML Format = "yaml"
)

const (
	fileTimeLayout   = "20060102_150405"
	headerTimeLayout = "2006-01-02 15:04:05"
)

// ErrNoMessages is returned when there is nothing to write.
var ErrNoMessages = errors.New("no messages to save")

type writeFunc func(w io.Writer, now time.Time, source string, msgs []model.Message) error

type Exporter struct {
	Dir     string
	nowFunc func() time.Time
	writers map[Format]writeFunc
}

func New(dir string) *Exporter {
	return &Exporter{
		Dir:     dir,
		nowFunc: time.Now,
		writers: map[Format]writeFunc{
			Text: writeText,
			JSON: writeJSON,
			YAML: writeYAML,
		},
	}
}

type document struct {
	ExportDate   string          `json:"export_date" yaml:"export_date"`
	Source       string          `json:"source" yaml:"source"`
	MessageCount int             `json:"message_count" yaml:"message_count"`
	Messages     []model.Message `json:"messages" yaml:"messages"`
}

// Write saves msgs to a new timestamped file under Dir and returns its path.
func (e *Exporter) Write(format Format, source string, msgs []model.Message) (string, error) {
	if len(msgs) == 0 {
		return "", ErrNoMessages
	}
	write, ok := e.writers[format]
	if !ok {
		return "", fmt.Errorf("unknown export format %q", format)
	}

	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	now := e.nowFunc()
	f, err := e.create(now, format)
	if err != nil {
		return "", err
	}
	path := f.Name()

	err = write(f, now, source, msgs)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// maxSuffix bounds the search for a free file name within one second.
const maxSuffix = 100

// create opens a new export file without clobbering an earlier export
// from the same second: later ones get a _1, _2, ... suffix.
func (e *Exporter) create(now time.Time, format Format) (*os.File, error) {
	base := "sms_messages_" + now.Format(fileTimeLayout)
	for i := 0; i < maxSuffix; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		path := filepath.Join(e.Dir, name+"."+string(format))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	return nil, fmt.Errorf("no free export file name for %s", base)
}

func newDocument(now time.Time, source string, msgs []model.Message) document {
	return document{
		ExportDate:   now.Format(time.RFC3339),
		Source:       source,
		MessageCount: len(msgs),
		Messages:     msgs,
	}
}

func writeJSON(w io.Writer, now time.Time, source string, msgs []model.Message) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(newDocument(now, source, msgs))
}

func writeYAML(w io.Writer, now time.Time, source string, msgs []model.Message) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newDocument(now, source, msgs)); err != nil {
		return err
	}
	return enc.Close()
}

func writeText(w io.Writer, now time.Time, source string, msgs []model.Message) error {
	var b strings.Builder
	fmt.Fprintf(&b, "SMS Messages - %s\n", now.Format(headerTimeLayout))
	if source != "" {
		b.WriteString(source + "\n")
	}
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	for i, m := range msgs {
		fmt.Fprintf(&b, "Message #%d:\n", i+1)
		WriteBlock(&b, m)
		b.WriteString(strings.Repeat("-", 40) + "\n\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteBlock writes the text rendering of a single message.
func WriteBlock(w io.Writer, m model.Message) {
	fmt.Fprintf(w, "From: %s\n", From(m))
	fmt.Fprintf(w, "Time: %s\n", m.Timestamp)
	fmt.Fprintf(w, "Type: %s\n", m.Direction)
	fmt.Fprintf(w, "Status: %s\n", m.Status)
	fmt.Fprintf(w, "Content:\n%s\n", m.Body)
}

// From renders a message's phone numbers for display.
func From(m model.Message) string {
	if len(m.PhoneNumbers) == 0 {
		return "Unknown"
	}
	return strings.Join(m.PhoneNumbers, ", ")
}
