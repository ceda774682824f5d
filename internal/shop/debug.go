package shop

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const maxBodyLogSize = 1024

// DebugLogger dumps requests and responses at debug level.
// A nil *DebugLogger is valid and logs nothing.
type DebugLogger struct {
	log *zap.Logger
}

func NewDebugLogger(log *zap.Logger) *DebugLogger {
	return &DebugLogger{log: log}
}

func (d *DebugLogger) LogRequest(actorID, endpoint string, req *http.Request) {
	if d == nil {
		return
	}

	fields := []zap.Field{
		zap.String("user_id", actorID),
		zap.String("endpoint", endpoint),
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
	}
	if req.GetBody != nil {
		if rc, err := req.GetBody(); err == nil {
			body, _ := io.ReadAll(rc)
			rc.Close()
			if len(body) > 0 {
				fields = append(fields, zap.String("body", truncateBody(body)))
			}
		}
	} else if req.Body != nil && req.Body != http.NoBody {
		body, err := io.ReadAll(req.Body)
		if err == nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
			fields = append(fields, zap.String("body", truncateBody(body)))
		}
	}
	d.log.Debug(">>> request", fields...)
}

func (d *DebugLogger) LogResponse(actorID, endpoint string, resp *http.Response, body []byte, duration time.Duration) {
	if d == nil {
		return
	}
	d.log.Debug("<<< response",
		zap.String("user_id", actorID),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration.Round(time.Millisecond)),
		zap.String("body", truncateBody(body)),
	)
}

func (d *DebugLogger) LogError(actorID, endpoint string, err error, duration time.Duration) {
	if d == nil {
		return
	}
	d.log.Debug("!!! request failed",
		zap.String("user_id", actorID),
		zap.String("endpoint", endpoint),
		zap.Duration("duration", duration.Round(time.Millisecond)),
		zap.Error(err),
	)
}

func truncateBody(body []byte) string {
	if len(body) <= maxBodyLogSize {
		return string(body)
	}
	return string(body[:maxBodyLogSize]) + fmt.Sprintf("... (truncated, %d bytes total)", len(body))
}
