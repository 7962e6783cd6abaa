package audit

import (
	"net/http"

	"github.com/EnvSync-Cloud/envsync-api/pkg/auth"
	"github.com/EnvSync-Cloud/envsync-api/pkg/contextkeys"
)

// cliStatusWriter captures the response status so only successful commands
// are recorded
type cliStatusWriter struct {
	http.ResponseWriter
	status int
}

func (w *cliStatusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// CLICommandMiddleware audits requests carrying the X-CLI-CMD header the
// CLI sets on every invocation. The entry is recorded after the handler,
// and only when the request succeeded; rejected and failed commands stay
// out of the trail.
func CLICommandMiddleware(recorder Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			command := r.Header.Get("X-CLI-CMD")
			if command == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := contextkeys.WithCLICommand(r.Context(), command)
			writer := &cliStatusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(writer, r.WithContext(ctx))

			if writer.status >= http.StatusBadRequest {
				return
			}

			entry := Entry{
				Action:  ActionCLICommandExecuted,
				Message: "CLI command executed",
				Details: map[string]interface{}{
					"command": command,
					"path":    r.URL.Path,
					"method":  r.Method,
				},
			}
			if authCtx := auth.FromContext(ctx); authCtx != nil {
				entry.OrgID = authCtx.OrgID
				entry.UserID = authCtx.UserID
			}
			recorder.Record(ctx, entry)
		})
	}
}
