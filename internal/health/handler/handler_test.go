package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"
	"go.uber.org/mock/gomock"

	"github.com/vrwarp/locus/internal/health/export"
	"github.com/vrwarp/locus/internal/health/handler/mocks"
	"github.com/vrwarp/locus/internal/health/models"
	"github.com/vrwarp/locus/internal/health/service"
	id "github.com/vrwarp/locus/pkg/domain"
	dErrors "github.com/vrwarp/locus/pkg/domain-errors"
	"github.com/vrwarp/locus/pkg/platform/sentinel"
	"github.com/vrwarp/locus/pkg/testutil"
)

type AuditHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestAuditHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuditHandlerSuite))
}

func (s *AuditHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(s.service, models.DefaultConfig, logger, WithTimeout(time.Second))
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *AuditHandlerSuite) do(method, target string, body string) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), method, target, body))
}

func report(requested ...models.Tag) *models.Report {
	r := models.NewReport(id.NewReportID(), time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC), 2, requested)
	r.Attach(models.TagGhost, models.Result{Findings: []models.Finding{{
		Tag: models.TagGhost, Severity: models.SeverityWarning, Title: "Never checked in", Subjects: []string{"p2"},
	}}})
	return r
}

func decodeError(s *AuditHandlerSuite, w *httptest.ResponseRecorder) string {
	return testutil.UnmarshalErrorResponse(s.T(), w)["error"]
}

// =============================================================================
// POST /audit/run
// =============================================================================

func (s *AuditHandlerSuite) TestRunAudit() {
	s.Run("applies overrides to defaults", func() {
		s.service.EXPECT().Audit(gomock.Any(), []models.Tag{models.TagGhost}, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ []models.Tag, cfg models.Config) (*models.Report, error) {
				s.Equal(3, cfg.BusFactorThreshold)
				s.Equal(24*time.Hour, cfg.VelocityBucket)
				s.Require().NotNil(cfg.Eligibility.MinGrade)
				s.Equal(6, *cfg.Eligibility.MinGrade)
				s.Equal(50.0, cfg.Weights.ServingHousehold)
				s.Equal(10.0, cfg.Weights.Adult)
				s.Equal(10, cfg.MinPhoneDigits)
				s.Zero(cfg.ParentGapYears)
				s.Equal(40, cfg.SpouseGapYears)
				return report(models.TagGhost), nil
			})

		w := s.do(http.MethodPost, "/audit/run", `{
			"analyzers": ["Ghost"],
			"config": {
				"bus_factor_threshold": 3,
				"parent_gap_years": 0,
				"velocity_bucket": "24h",
				"eligibility": {"min_grade": 6},
				"weights": {"serving_household": 50}
			}
		}`)

		s.Equal(http.StatusOK, w.Code)
		var resp struct {
			Findings  map[string][]models.Finding `json:"findings"`
			Completed []string                    `json:"completed"`
			Partial   bool                        `json:"partial"`
		}
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal([]string{"ghost"}, resp.Completed)
		s.False(resp.Partial)
		s.Require().Len(resp.Findings["ghost"], 1)
		s.Equal([]string{"p2"}, resp.Findings["ghost"][0].Subjects)
	})

	s.Run("empty body runs everything", func() {
		s.service.EXPECT().Audit(gomock.Any(), models.AnalyzerTags(), gomock.Any()).Return(report(models.AnalyzerTags()...), nil)

		w := s.do(http.MethodPost, "/audit/run", "")
		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"partial":true`)
	})

	s.Run("unknown analyzer is rejected", func() {
		w := s.do(http.MethodPost, "/audit/run", `{"analyzers":["horoscope"]}`)
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal(string(dErrors.CodeValidation), decodeError(s, w))
	})

	s.Run("invalid bucket is rejected", func() {
		w := s.do(http.MethodPost, "/audit/run", `{"config":{"velocity_bucket":"-1h"}}`)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("negative gap is rejected", func() {
		w := s.do(http.MethodPost, "/audit/run", `{"config":{"spouse_gap_years":-1}}`)
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal(string(dErrors.CodeValidation), decodeError(s, w))
	})

	s.Run("unknown field is rejected", func() {
		w := s.do(http.MethodPost, "/audit/run", `{"analyzer":["ghost"]}`)
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal(string(dErrors.CodeBadRequest), decodeError(s, w))
	})

	s.Run("directory outage is unavailable", func() {
		s.service.EXPECT().Audit(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(errors.New("dial tcp"), dErrors.CodeUnavailable, "roster fetch failed"))

		w := s.do(http.MethodPost, "/audit/run", `{}`)
		s.Equal(http.StatusServiceUnavailable, w.Code)
		s.Equal(string(dErrors.CodeUnavailable), decodeError(s, w))
	})

	s.Run("deadline serves partial report", func() {
		s.service.EXPECT().Audit(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(report(models.TagGhost, models.TagVolunteerWeb), context.DeadlineExceeded)

		w := s.do(http.MethodPost, "/audit/run", `{"analyzers":["ghost","volunteer_web"]}`)
		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"partial":true`)
	})

	s.Run("unexpected error hides details", func() {
		s.service.EXPECT().Audit(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("secret detail"))

		w := s.do(http.MethodPost, "/audit/run", `{}`)
		s.Equal(http.StatusInternalServerError, w.Code)
		s.NotContains(w.Body.String(), "secret detail")
	})
}

// =============================================================================
// POST /audit/ghosts/{personID}/confirm
// =============================================================================

func (s *AuditHandlerSuite) TestConfirmGhost() {
	s.Run("returns count", func() {
		s.service.EXPECT().ConfirmGhost(gomock.Any(), models.Finding{Tag: models.TagGhost, Subjects: []string{"p7"}}).
			DoAndReturn(func(_ context.Context, f models.Finding) (models.Finding, error) {
				return f.WithCheckInCount(0), nil
			})

		w := s.do(http.MethodPost, "/audit/ghosts/p7/confirm", "")
		s.Equal(http.StatusOK, w.Code)
		s.JSONEq(`{"person_id":"p7","check_in_count":0}`, w.Body.String())
	})

	s.Run("unknown person is not found", func() {
		s.service.EXPECT().ConfirmGhost(gomock.Any(), gomock.Any()).
			Return(models.Finding{}, fmt.Errorf("%w: %w", service.ErrConfirmationFailed, sentinel.ErrNotFound))

		w := s.do(http.MethodPost, "/audit/ghosts/nobody/confirm", "")
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("lookup failure is unavailable", func() {
		s.service.EXPECT().ConfirmGhost(gomock.Any(), gomock.Any()).
			Return(models.Finding{}, fmt.Errorf("%w: timeout", service.ErrConfirmationFailed))

		w := s.do(http.MethodPost, "/audit/ghosts/p7/confirm", "")
		s.Equal(http.StatusServiceUnavailable, w.Code)
	})
}

// =============================================================================
// GET /audit/export.xlsx
// =============================================================================

func (s *AuditHandlerSuite) TestExport() {
	s.Run("streams workbook", func() {
		s.service.EXPECT().Audit(gomock.Any(), []models.Tag{models.TagGhost, models.TagContact}, gomock.Any()).
			Return(report(models.TagGhost, models.TagContact), nil)

		w := s.do(http.MethodGet, "/audit/export.xlsx?analyzers=ghost,contact", "")
		s.Require().Equal(http.StatusOK, w.Code)
		s.Equal(export.ContentType, w.Header().Get("Content-Type"))
		s.Contains(w.Header().Get("Content-Disposition"), "locus-audit-20240610-090000.xlsx")

		f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
		s.Require().NoError(err)
		defer func() { _ = f.Close() }()
		rows, err := f.GetRows(export.SheetFindings)
		s.Require().NoError(err)
		s.Len(rows, 2)
	})

	s.Run("unknown analyzer is rejected", func() {
		w := s.do(http.MethodGet, "/audit/export.xlsx?analyzers=tarot", "")
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

// =============================================================================
// Rate limiting
// =============================================================================

func (s *AuditHandlerSuite) TestRunLimitGuardsAuditRuns() {
	refuse := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.service, models.DefaultConfig, logger, WithRunLimit(refuse))
	s.router = chi.NewRouter()
	h.Register(s.router)

	s.Equal(http.StatusTooManyRequests, s.do(http.MethodPost, "/audit/run", `{}`).Code)
	s.Equal(http.StatusTooManyRequests, s.do(http.MethodGet, "/audit/export.xlsx", "").Code)

	s.service.EXPECT().ConfirmGhost(gomock.Any(), gomock.Any()).Return(models.Finding{}, sentinel.ErrNotFound)
	s.Equal(http.StatusNotFound, s.do(http.MethodPost, "/audit/ghosts/p1/confirm", "").Code)
}
