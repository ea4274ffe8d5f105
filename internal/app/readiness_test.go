package app_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/procureflow/procureflow/internal/app"
	"github.com/procureflow/procureflow/internal/domain"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type verifier struct{ err error }

func (v verifier) SendRFP(domain.Context, domain.RFP, domain.Vendor) error { return nil }
func (v verifier) Verify(domain.Context) error                             { return v.err }

func TestReadyz_AllHealthy(t *testing.T) {
	r := &app.Readiness{DB: pinger{}, Sender: verifier{}}
	rec := httptest.NewRecorder()
	r.Handler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready":true`)
	assert.Contains(t, rec.Body.String(), `"db":"ok"`)
	assert.Contains(t, rec.Body.String(), `"smtp":"ok"`)
}

func TestReadyz_DBDownIsUnready(t *testing.T) {
	r := &app.Readiness{DB: pinger{err: errors.New("connection refused")}}
	rec := httptest.NewRecorder()
	r.Handler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready":false`)
}

func TestReadyz_SMTPDownStaysReady(t *testing.T) {
	r := &app.Readiness{DB: pinger{}, Sender: verifier{err: errors.New("dial timeout")}}
	rec := httptest.NewRecorder()
	r.Handler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready":true`)
	assert.Contains(t, rec.Body.String(), "dial timeout")
}
