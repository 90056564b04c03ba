package logging

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// PrettyHandler is a slog.Handler that prints one indented JSON object per
// record. It is meant for a developer watching a local server play; use
// FormatJSON in production.
type PrettyHandler struct {
	w         io.Writer
	mu        *sync.Mutex
	level     slog.Leveler
	addSource bool

	attrs  []groupedAttr
	groups []string
}

// groupedAttr remembers which groups were open when WithAttrs was called.
type groupedAttr struct {
	groups []string
	attr   slog.Attr
}

func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	var level slog.Leveler = slog.LevelInfo
	addSource := false
	if opts != nil {
		if opts.Level != nil {
			level = opts.Level
		}
		addSource = opts.AddSource
	}
	return &PrettyHandler{w: w, mu: &sync.Mutex{}, level: level, addSource: addSource}
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	payload := make(map[string]any, 8)

	when := r.Time
	if when.IsZero() {
		when = time.Now()
	}
	payload["time"] = when.Format(time.RFC3339Nano)
	payload["level"] = r.Level.String()
	payload["msg"] = r.Message
	if h.addSource {
		if src := sourceFromPC(r.PC); src != "" {
			payload["source"] = src
		}
	}

	for _, ga := range h.attrs {
		addAttr(payload, ga.groups, ga.attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(payload, h.groups, a)
		return true
	})

	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		// Never drop a record because one attribute does not marshal.
		b = []byte(`{"time":` + strconv.Quote(payload["time"].(string)) +
			`,"level":` + strconv.Quote(r.Level.String()) +
			`,"msg":` + strconv.Quote(r.Message) + `}`)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(append(b, '\n'))
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]groupedAttr(nil), h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, groupedAttr{groups: h.groups, attr: a})
	}
	return &clone
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

func addAttr(root map[string]any, groups []string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	dst := root
	for _, g := range groups {
		m, ok := dst[g].(map[string]any)
		if !ok {
			m = map[string]any{}
			dst[g] = m
		}
		dst = m
	}

	if attr.Value.Kind() == slog.KindGroup {
		// Inline groups (empty key) merge into the parent.
		child := dst
		if attr.Key != "" {
			child = map[string]any{}
			dst[attr.Key] = child
		}
		for _, ga := range attr.Value.Group() {
			addAttr(child, nil, ga)
		}
		return
	}
	dst[attr.Key] = valueToAny(attr.Value)
}

func valueToAny(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	default:
		return v.String()
	}
}

func sourceFromPC(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	f, _ := frames.Next()
	if f.File == "" {
		return ""
	}
	file := f.File
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		file = file[idx+1:]
	}
	return file + ":" + strconv.Itoa(f.Line)
}
