package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/procureflow/procureflow/internal/domain"
)

// Pinger is anything that can confirm connectivity, such as a pgx pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Readiness aggregates dependency checks for the readyz endpoint. The mail
// transport check is best-effort: a failing SMTP dial degrades the report
// but does not mark the service unready, since ingestion and the API keep
// working without outbound mail.
type Readiness struct {
	DB     Pinger
	Sender domain.MailSender
}

// Handler serves the readiness report.
func (r *Readiness) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		ready := true

		if r.DB != nil {
			if err := r.DB.Ping(ctx); err != nil {
				checks["db"] = err.Error()
				ready = false
			} else {
				checks["db"] = "ok"
			}
		}
		if r.Sender != nil {
			if err := r.Sender.Verify(ctx); err != nil {
				checks["smtp"] = err.Error()
			} else {
				checks["smtp"] = "ok"
			}
		}

		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ready":  ready,
			"checks": checks,
		})
	}
}
