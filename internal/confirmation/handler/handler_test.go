package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/text/language"

	"commune/internal/configuration"
	configstore "commune/internal/configuration/store"
	"commune/internal/confirmation/handler/mocks"
	"commune/internal/confirmation/metrics"
	"commune/internal/confirmation/models"
	"commune/internal/confirmation/service"
	"commune/internal/confirmation/store"
	"commune/internal/i18n"
	"commune/internal/mail"
	"commune/pkg/platform/middleware/locale"
	"commune/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *HandlerSuite) TestConfirm_RendersResult() {
	s.service.EXPECT().
		Confirm(gomock.Any(), "abc-123", language.German).
		Return(models.Success("Willkommen!"))

	req := httptest.NewRequest(http.MethodGet, "/confirm?id=abc-123", nil)
	rr := testutil.DoRequest(s.router, testutil.WithLocale(req, language.German))

	s.Equal(http.StatusOK, rr.Code)
	s.Equal("application/json", rr.Header().Get("Content-Type"))
	body := testutil.DecodeJSON[models.Result](s.T(), rr)
	s.Equal(models.Success("Willkommen!"), body)
}

func (s *HandlerSuite) TestConfirm_ErrorsAreStill200() {
	s.service.EXPECT().
		Confirm(gomock.Any(), "", gomock.Any()).
		Return(models.Error("expired"))

	rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, "/confirm", nil))

	s.Equal(http.StatusOK, rr.Code)
	testutil.AssertJSONField(s.T(), rr, "type", "ERROR")
	testutil.AssertJSONField(s.T(), rr, "message", "expired")
}

func (s *HandlerSuite) TestConfirm_RouteMiddlewareApplies() {
	router := chi.NewRouter()
	blocked := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)), WithMiddleware(blocked)).Register(router)

	rr := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/confirm?id=x", nil))
	s.Equal(http.StatusTooManyRequests, rr.Code)
}

// The scenario below runs the real engine behind the endpoint.
func TestConfirmationLinkLifecycle(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	outbox := &outbox{}
	templates, err := mail.LoadTemplates()
	require.NoError(t, err)

	svc := service.New(
		store.NewInMemoryStore(store.WithTTL(time.Minute)),
		configuration.New(configstore.NewInMemoryStore()),
		mail.New(outbox, templates, mail.WithLogger(logger)),
		i18n.NewTranslator(),
		service.WithLogger(logger),
		service.WithMetrics(metrics.New(prometheus.NewRegistry())),
		service.WithIDGenerator(func() string { return "link-1" }),
	)

	router := chi.NewRouter()
	router.Use(locale.Middleware(i18n.Match))
	New(svc, logger).Register(router)

	joined := 0
	testutil.Given(t, "a pending event join", func(t *testing.T) {
		err := svc.StartProcess(ctx, service.StartRequest{
			Email:   "jane@example.org",
			Message: "Confirm to join the picnic.",
			Locale:  language.German,
			Handler: models.HandlerFunc(func(context.Context, string, models.Context) (models.Result, error) {
				joined++
				return models.Success("joined"), nil
			}),
		})
		require.NoError(t, err)
		require.Len(t, outbox.msgs, 1)
		assert.Contains(t, outbox.msgs[0].Body, "http://localhost:8080/confirm?id=link-1")

		testutil.When(t, "the link is opened", func(t *testing.T) {
			rr := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/confirm?id=link-1", nil))

			testutil.Then(t, "the handler runs", func(t *testing.T) {
				testutil.AssertJSONField(t, rr, "type", "SUCCESS")
				assert.Equal(t, 1, joined)
			})
		})

		testutil.When(t, "the link is opened again in German", func(t *testing.T) {
			rr := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/confirm?id=link-1&lang=de", nil))

			testutil.Then(t, "the visitor learns the link expired", func(t *testing.T) {
				testutil.AssertJSONField(t, rr, "type", "ERROR")
				body := testutil.DecodeJSON[models.Result](t, rr)
				assert.Contains(t, body.Message, "1 Minute")
			})
			testutil.And(t, "the handler does not run again", func(t *testing.T) {
				assert.Equal(t, 1, joined)
			})
		})
	})
}

type outbox struct {
	msgs []mail.Message
}

func (o *outbox) Deliver(_ context.Context, msg mail.Message) error {
	o.msgs = append(o.msgs, msg)
	return nil
}
