package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

const testBaseURL = "http://foodgram.test"

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	auth   *service.AuthService
	images *testhelpers.MemoryImageStore
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	db := testhelpers.SetupSQLiteDB(t)
	images := testhelpers.NewMemoryImageStore()
	auth := service.NewAuthService(db, "test-secret", time.Hour, nil)
	links := service.NewShortLinkService(db, nil, testBaseURL, nil)

	router := gin.New()
	router.Use(middleware.ErrorHandler())
	RegisterRoutes(router, Services{
		Auth:      auth,
		Users:     service.NewUserService(db, images),
		Recipes:   service.NewRecipeService(db, images, nil, nil),
		Relations: service.NewRelationService(db, nil),
		Links:     links,
		Catalog:   service.NewCatalogService(db),
	}, Paginator{BaseURL: testBaseURL, DefaultSize: 2}, nil)

	return &testAPI{t: t, db: db, router: router, auth: auth, images: images}
}

func (a *testAPI) token(user *models.User) string {
	a.t.Helper()
	token, err := a.auth.GenerateToken(user)
	require.NoError(a.t, err)
	return token
}

// do performs a request; token may be empty for anonymous calls.
func (a *testAPI) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}
