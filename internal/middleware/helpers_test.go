package middleware

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/BradenHooton/adminauth/internal/ratelimit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestStore() *ratelimit.MemoryStore {
	return ratelimit.NewMemoryStore()
}

// bufferLogger returns a JSON logger writing into the returned buffer
func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}
