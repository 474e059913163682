package badges

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"badgehub/internal/models"
	"badgehub/internal/response"
	"badgehub/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockBadgeService is a canned implementation for handler tests
type mockBadgeService struct {
	createResp *models.Badge
	createErr  error
	listResp   []*models.Badge
	searchResp *services.BadgeSearchResponse
	collection *services.BadgeCollectionResponse
	stepResp   *models.BadgeProgress
	stepErr    error
	lastStep   *services.UpdateStepRequest
}

func (m *mockBadgeService) CreateBadge(ctx context.Context, req *services.CreateBadgeRequest) (*models.Badge, error) {
	return m.createResp, m.createErr
}

func (m *mockBadgeService) ListBadges(ctx context.Context, category string) ([]*models.Badge, error) {
	return m.listResp, nil
}

func (m *mockBadgeService) GetCollection(ctx context.Context, student, repository string) (*services.BadgeCollectionResponse, error) {
	return m.collection, nil
}

func (m *mockBadgeService) Search(ctx context.Context, student, badgeID string) (*services.BadgeSearchResponse, error) {
	return m.searchResp, nil
}

func (m *mockBadgeService) UpdateStep(ctx context.Context, req *services.UpdateStepRequest) (*models.BadgeProgress, error) {
	m.lastStep = req
	return m.stepResp, m.stepErr
}

func newTestRouter(mock *mockBadgeService) http.Handler {
	logger := zap.NewNop()
	builder := response.NewBuilder(nil, logger)
	controller := NewBadgeController(&services.Collection{Badge: mock}, logger, builder)

	r := chi.NewRouter()
	r.Post("/api/v1/badges", controller.Create)
	r.Get("/api/v1/badges", controller.List)
	r.Get("/api/v1/badges/search", controller.Search)
	r.Get("/api/v1/badges/collection/{username}", controller.Collection)
	r.Patch("/api/v1/badges/{badgeID}/steps/{step}", controller.UpdateStep)
	return r
}

func TestCreateBadgeEndpoint(t *testing.T) {
	mock := &mockBadgeService{
		createResp: &models.Badge{BadgeID: "GIT_GIT_MASTER", Name: "Git Master", TotalSteps: 2},
	}
	router := newTestRouter(mock)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/badges",
		strings.NewReader(`{"name":"Git Master","category":"git","total_steps":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateBadgeConflict(t *testing.T) {
	router := newTestRouter(&mockBadgeService{
		createErr: services.NewConflictError("badge exists", "BADGE_EXISTS"),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/badges",
		strings.NewReader(`{"name":"Git Master","category":"git"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSearchEndpoint(t *testing.T) {
	router := newTestRouter(&mockBadgeService{
		searchResp: &services.BadgeSearchResponse{
			Found:     true,
			Completed: false,
			Steps:     models.StepStatus{1: true, 2: false},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/badges/search?username=octocat&badge_id=GIT_GIT_MASTER", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data services.BadgeSearchResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Found)
	assert.False(t, envelope.Data.Completed)
}

func TestUpdateStepEndpoint(t *testing.T) {
	mock := &mockBadgeService{
		stepResp: &models.BadgeProgress{Completed: true},
	}
	router := newTestRouter(mock)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/badges/GIT_GIT_MASTER/steps/2",
		strings.NewReader(`{"username":"octocat","passed":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, mock.lastStep)
	// URL parameters win over any body values.
	assert.Equal(t, "GIT_GIT_MASTER", mock.lastStep.BadgeID)
	assert.Equal(t, 2, mock.lastStep.Step)
}

func TestUpdateStepRejectsBadStep(t *testing.T) {
	router := newTestRouter(&mockBadgeService{})

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/badges/GIT_GIT_MASTER/steps/two",
		strings.NewReader(`{"username":"octocat"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
