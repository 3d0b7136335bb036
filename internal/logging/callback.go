package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// CallbackLogger returns a logger that renders each record to a single line
// and hands it to fn. It bridges packages that log through slog into sinks
// that consume plain lines, such as the download worker's event stream.
func CallbackLogger(fn func(string)) *slog.Logger {
	if fn == nil {
		return Discard()
	}
	return slog.New(&callbackHandler{fn: fn})
}

type callbackHandler struct {
	fn    func(string)
	attrs []slog.Attr
}

func (h *callbackHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *callbackHandler) Handle(_ context.Context, record slog.Record) error {
	var sb strings.Builder
	sb.WriteString(record.Message)
	for _, attr := range h.attrs {
		appendCallbackAttr(&sb, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		appendCallbackAttr(&sb, attr)
		return true
	})
	h.fn(sb.String())
	return nil
}

func appendCallbackAttr(sb *strings.Builder, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}
	fmt.Fprintf(sb, " %s=%s", attr.Key, attr.Value)
}

func (h *callbackHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return &callbackHandler{fn: h.fn, attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...)}
}

func (h *callbackHandler) WithGroup(string) slog.Handler { return h }
