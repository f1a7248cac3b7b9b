package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitinsight/gitinsight/internal/api/middleware"
	"github.com/gitinsight/gitinsight/internal/model"
	"github.com/gitinsight/gitinsight/internal/pkg/jwt"
	"github.com/gitinsight/gitinsight/internal/pkg/queue"
	"github.com/gitinsight/gitinsight/internal/pkg/response"
	"github.com/gitinsight/gitinsight/internal/repository"
	"github.com/gitinsight/gitinsight/internal/service"
	"github.com/gitinsight/gitinsight/internal/testutil"
)

const testJWTSecret = "handler-test-secret"

type testEnv struct {
	engine *gin.Engine
	repo   *repository.AnalysisRepository
	mr     *miniredis.Miniredis
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := repository.NewAnalysisRepository(db)
	svc := service.NewAnalysisService(repo, queue.NewQueue(client, "repo_tasks"), "results")
	h := NewAnalysisHandler(svc)

	engine := gin.New()
	v1 := engine.Group("/api/v1")
	v1.POST("/analyses", middleware.OptionalAuth(testJWTSecret), h.Create)
	v1.GET("/analyses/:id", middleware.OptionalAuth(testJWTSecret), h.GetStatus)
	v1.GET("/history", middleware.Auth(testJWTSecret), h.History)

	return &testEnv{engine: engine, repo: repo, mr: mr}
}

func doRequest(t *testing.T, engine *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, *response.Response) {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var envelope response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return w, &envelope
}

func issueToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.GenerateToken(userID, testJWTSecret, 1)
	require.NoError(t, err)
	return token
}

func TestAnalysisHandler_Create(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("guest submission accepted", func(t *testing.T) {
		w, envelope := doRequest(t, env.engine, http.MethodPost, "/api/v1/analyses", "", gin.H{
			"url": "https://github.com/acme/demo",
		})

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, response.CodeSuccess, envelope.Code)

		data := envelope.Data.(map[string]interface{})
		assert.Equal(t, string(model.StatusQueued), data["status"])
		assert.Greater(t, data["analysis_id"].(float64), float64(0))
	})

	t.Run("authenticated submission records owner", func(t *testing.T) {
		_, envelope := doRequest(t, env.engine, http.MethodPost, "/api/v1/analyses", issueToken(t, "alice"), gin.H{
			"url": "https://github.com/acme/owned",
		})
		require.Equal(t, response.CodeSuccess, envelope.Code)

		id := int64(envelope.Data.(map[string]interface{})["analysis_id"].(float64))
		record, err := env.repo.GetByID(id, nil)
		require.NoError(t, err)
		require.NotNil(t, record.UserGithubID)
		assert.Equal(t, "alice", *record.UserGithubID)
	})

	t.Run("missing url", func(t *testing.T) {
		_, envelope := doRequest(t, env.engine, http.MethodPost, "/api/v1/analyses", "", gin.H{
			"lang": "en",
		})
		assert.Equal(t, response.CodeParamError, envelope.Code)
	})

	t.Run("invalid url", func(t *testing.T) {
		_, envelope := doRequest(t, env.engine, http.MethodPost, "/api/v1/analyses", "", gin.H{
			"url": "ftp://github.com/acme/demo",
		})
		assert.Equal(t, response.CodeParamError, envelope.Code)
	})

	t.Run("queue down means service busy", func(t *testing.T) {
		env.mr.Close()
		defer func() {
			require.NoError(t, env.mr.Restart())
		}()

		_, envelope := doRequest(t, env.engine, http.MethodPost, "/api/v1/analyses", "", gin.H{
			"url": "https://github.com/acme/demo",
		})
		assert.Equal(t, response.CodeServiceBusy, envelope.Code)
	})
}

func TestAnalysisHandler_GetStatus(t *testing.T) {
	env := setupTestEnv(t)

	_, envelope := doRequest(t, env.engine, http.MethodPost, "/api/v1/analyses", issueToken(t, "alice"), gin.H{
		"url": "https://github.com/acme/demo",
	})
	require.Equal(t, response.CodeSuccess, envelope.Code)
	id := int64(envelope.Data.(map[string]interface{})["analysis_id"].(float64))

	t.Run("owner can poll", func(t *testing.T) {
		_, envelope := doRequest(t, env.engine, http.MethodGet, fmt.Sprintf("/api/v1/analyses/%d", id), issueToken(t, "alice"), nil)
		require.Equal(t, response.CodeSuccess, envelope.Code)

		data := envelope.Data.(map[string]interface{})
		assert.Equal(t, string(model.StatusQueued), data["status"])
		assert.Equal(t, "https://github.com/acme/demo", data["repository_url"])
	})

	t.Run("guest can poll a known id", func(t *testing.T) {
		_, envelope := doRequest(t, env.engine, http.MethodGet, fmt.Sprintf("/api/v1/analyses/%d", id), "", nil)
		assert.Equal(t, response.CodeSuccess, envelope.Code)
	})

	t.Run("other owner gets not found", func(t *testing.T) {
		_, envelope := doRequest(t, env.engine, http.MethodGet, fmt.Sprintf("/api/v1/analyses/%d", id), issueToken(t, "bob"), nil)
		assert.Equal(t, response.CodeResourceNotFound, envelope.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, envelope := doRequest(t, env.engine, http.MethodGet, "/api/v1/analyses/99999", "", nil)
		assert.Equal(t, response.CodeResourceNotFound, envelope.Code)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		_, envelope := doRequest(t, env.engine, http.MethodGet, "/api/v1/analyses/abc", "", nil)
		assert.Equal(t, response.CodeParamError, envelope.Code)
	})
}

func TestAnalysisHandler_History(t *testing.T) {
	env := setupTestEnv(t)

	for i := 0; i < 2; i++ {
		_, envelope := doRequest(t, env.engine, http.MethodPost, "/api/v1/analyses", issueToken(t, "alice"), gin.H{
			"url": "https://github.com/acme/demo",
		})
		require.Equal(t, response.CodeSuccess, envelope.Code)
		time.Sleep(5 * time.Millisecond)
	}

	t.Run("requires auth", func(t *testing.T) {
		_, envelope := doRequest(t, env.engine, http.MethodGet, "/api/v1/history", "", nil)
		assert.Equal(t, response.CodeAuthFailed, envelope.Code)
	})

	t.Run("rejects bad token", func(t *testing.T) {
		_, envelope := doRequest(t, env.engine, http.MethodGet, "/api/v1/history", "not-a-token", nil)
		assert.Equal(t, response.CodeAuthFailed, envelope.Code)
	})

	t.Run("lists own records only", func(t *testing.T) {
		_, envelope := doRequest(t, env.engine, http.MethodGet, "/api/v1/history", issueToken(t, "alice"), nil)
		require.Equal(t, response.CodeSuccess, envelope.Code)

		items := envelope.Data.([]interface{})
		assert.Len(t, items, 2)
	})

	t.Run("other owner sees nothing", func(t *testing.T) {
		_, envelope := doRequest(t, env.engine, http.MethodGet, "/api/v1/history", issueToken(t, "bob"), nil)
		require.Equal(t, response.CodeSuccess, envelope.Code)

		items := envelope.Data.([]interface{})
		assert.Empty(t, items)
	})

	t.Run("limit applies", func(t *testing.T) {
		_, envelope := doRequest(t, env.engine, http.MethodGet, "/api/v1/history?limit=1", issueToken(t, "alice"), nil)
		require.Equal(t, response.CodeSuccess, envelope.Code)

		items := envelope.Data.([]interface{})
		assert.Len(t, items, 1)
	})
}
