package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/sosrelay/internal/api"
	"github.com/charlesng35/sosrelay/internal/app"
	iauth "github.com/charlesng35/sosrelay/internal/auth"
	sharedtestutil "github.com/charlesng35/sosrelay/internal/database/testutil"
	"github.com/charlesng35/sosrelay/internal/evidence"
	"github.com/charlesng35/sosrelay/internal/fanout"
	"github.com/charlesng35/sosrelay/internal/middleware"
	"github.com/charlesng35/sosrelay/internal/realtime"
	"github.com/charlesng35/sosrelay/internal/services"
	"github.com/charlesng35/sosrelay/pkg/delivery"
	"github.com/charlesng35/sosrelay/pkg/response"
)

const jwtSecret = "test-suite-super-secret-key-32-bytes!!"

// SentMessage captures one call made to a stub channel sender.
type SentMessage struct {
	To      string
	Subject string
	Body    string
}

// StubChannel records deliveries and fails for addresses listed in Fail.
type StubChannel struct {
	mu   sync.Mutex
	Sent []SentMessage
	Fail map[string]error
}

func (s *StubChannel) deliver(to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.Fail[to]; ok {
		return err
	}
	s.Sent = append(s.Sent, SentMessage{To: to, Subject: subject, Body: body})
	return nil
}

// Messages returns a snapshot of delivered messages.
func (s *StubChannel) Messages() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentMessage(nil), s.Sent...)
}

// SendEmail implements fanout.EmailSender.
func (s *StubChannel) SendEmail(_ context.Context, to, subject, html string) error {
	return s.deliver(to, subject, html)
}

// SendSMS implements fanout.SMSSender.
func (s *StubChannel) SendSMS(_ context.Context, number, body string) error {
	return s.deliver(number, "", body)
}

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	JWT      *iauth.JWTService
	Hub      *realtime.Hub
	Email    *StubChannel
	SMS      *StubChannel
	Records  *services.NotificationRecordService
	Recorder *fanout.Recorder
	Config   *app.Config
}

// EnvOption customises NewEnv.
type EnvOption func(*envOptions)

type envOptions struct {
	evidence *evidence.Store
	cfg      func(*app.Config)
}

// WithEvidenceStore enables evidence endpoints backed by store.
func WithEvidenceStore(store *evidence.Store) EnvOption {
	return func(o *envOptions) {
		o.evidence = store
	}
}

// WithConfig adjusts the configuration before the router is built.
func WithConfig(fn func(*app.Config)) EnvOption {
	return func(o *envOptions) {
		o.cfg = fn
	}
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	options := envOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         jwtSecret,
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	cfg := &app.Config{
		Auth:       app.AuthConfig{JWTSecret: jwtSecret, Issuer: "test-suite"},
		Monitoring: app.MonitoringConfig{Prometheus: app.PrometheusConfig{Enabled: true}},
	}
	if options.cfg != nil {
		options.cfg(cfg)
	}

	records, err := services.NewNotificationRecordService(db)
	require.NoError(t, err)
	recorder := fanout.NewRecorder(records, fanout.RecorderConfig{QueueSize: 64, Workers: 1})
	t.Cleanup(func() {
		_ = recorder.Close(context.Background())
	})

	email := &StubChannel{Fail: map[string]error{}}
	sms := &StubChannel{Fail: map[string]error{}}
	orchestrator := fanout.NewOrchestrator(email, sms, recorder)

	hub := realtime.NewHub()
	contacts, err := services.NewContactService(db)
	require.NoError(t, err)
	alerts, err := services.NewAlertService(db, contacts, orchestrator, records, hub)
	require.NoError(t, err)

	store := options.evidence
	if store == nil {
		store, err = evidence.New(evidence.Config{})
		require.NoError(t, err)
	}

	router, err := api.NewRouter(cfg, api.Dependencies{
		DB:        db,
		JWT:       jwtSvc,
		Hub:       hub,
		Notifier:  orchestrator,
		Alerts:    alerts,
		Contacts:  contacts,
		Evidence:  store,
		RateStore: middleware.NewMemoryRateStore(),
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		JWT:      jwtSvc,
		Hub:      hub,
		Email:    email,
		SMS:      sms,
		Records:  records,
		Recorder: recorder,
		Config:   cfg,
	}
}

// Token issues an end-user access token for userID.
func (e *Env) Token(userID string) string {
	e.T.Helper()
	token, err := e.JWT.GenerateAccessToken(iauth.AccessTokenInput{UserID: userID, Email: userID + "@example.com"})
	require.NoError(e.T, err)
	return token
}

// ServiceToken issues a service-role token without a subject.
func (e *Env) ServiceToken() string {
	e.T.Helper()
	token, err := e.JWT.GenerateAccessToken(iauth.AccessTokenInput{Role: iauth.RoleService})
	require.NoError(e.T, err)
	return token
}

// FlushRecords stops the recorder after draining every queued record.
func (e *Env) FlushRecords() {
	e.T.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(e.T, e.Recorder.Close(ctx))
}

// FailProvider makes the stub channel reject deliveries to address.
func FailProvider(channel *StubChannel, address string, status int) {
	channel.mu.Lock()
	defer channel.mu.Unlock()
	channel.Fail[address] = delivery.Status("stub", status, []byte(`{"message":"rejected"}`))
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	switch v := body.(type) {
	case nil:
		buf = bytes.NewBuffer(nil)
	case string:
		buf = bytes.NewBufferString(v)
	default:
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Do executes a prepared request against the router.
func (e *Env) Do(req *http.Request) *httptest.ResponseRecorder {
	e.T.Helper()
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
