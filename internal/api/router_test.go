package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/nguyenvh/custodesk/internal/auth"
	"github.com/nguyenvh/custodesk/internal/database/testutil"
	"github.com/nguyenvh/custodesk/internal/notifications"
	"github.com/nguyenvh/custodesk/internal/push"
	"github.com/nguyenvh/custodesk/internal/reminders"
	"github.com/nguyenvh/custodesk/internal/services"
	"github.com/nguyenvh/custodesk/pkg/mail"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "test"})
	require.NoError(t, err)
	provider, err := iauth.NewLocalProvider(db, iauth.LocalConfig{})
	require.NoError(t, err)

	mailer, err := mail.NewSMTPMailer(mail.SMTPSettings{Enabled: false})
	require.NoError(t, err)
	gateway, err := push.NewGateway(db, push.Config{Enabled: false})
	require.NoError(t, err)

	hub := notifications.NewHub()
	events, err := services.NewSystemEventService(db)
	require.NoError(t, err)
	staff, err := services.NewStaffService(db)
	require.NoError(t, err)
	notifSvc, err := services.NewNotificationService(db, hub)
	require.NoError(t, err)

	dispatcher, err := reminders.NewDispatcher(db, mailer, gateway, events,
		reminders.WithBroadcaster(hub))
	require.NoError(t, err)

	remindersSvc, err := services.NewReminderService(db, dispatcher, staff)
	require.NoError(t, err)
	transactions, err := services.NewTransactionService(db, staff, dispatcher)
	require.NoError(t, err)

	router, err := NewRouter(Dependencies{
		JWT:           jwt,
		Provider:      provider,
		Staff:         staff,
		Reminders:     remindersSvc,
		Transactions:  transactions,
		Notifications: notifSvc,
		Events:        events,
		Hub:           hub,
		Push:          gateway,
	})
	require.NoError(t, err)
	return router, db
}

func login(t *testing.T, router *gin.Engine, username, password string) string {
	t.Helper()

	body := `{"username":"` + username + `","password":"` + password + `"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var payload struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.NotEmpty(t, payload.Data.AccessToken)
	return payload.Data.AccessToken
}

func TestRouterPublicAndProtectedRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reminders", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouterLoginAndMe(t *testing.T) {
	router, _ := newTestRouter(t)

	token := login(t, router, "admin", "admin")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"username":"admin"`)
}

func TestRouterAdminGuardOnSendDue(t *testing.T) {
	router, db := newTestRouter(t)

	userSvc, err := services.NewStaffService(db)
	require.NoError(t, err)
	_, err = userSvc.Create(nil, services.CreateStaffInput{
		Username: "lan.tran",
		Password: "password123",
	})
	require.NoError(t, err)

	userToken := login(t, router, "lan.tran", "password123")
	adminToken := login(t, router, "admin", "admin")

	req := httptest.NewRequest(http.MethodPost, "/api/reminders/send-due", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/reminders/send-due", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "custodesk_api_latency_seconds")
}
