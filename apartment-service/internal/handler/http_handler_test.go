package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/manyalawy/nawy/apartment-service/internal/domain"
	"github.com/manyalawy/nawy/apartment-service/internal/handler"
	"github.com/manyalawy/nawy/apartment-service/internal/indexer"
	"github.com/manyalawy/nawy/apartment-service/internal/repository"
	"github.com/manyalawy/nawy/apartment-service/internal/repository/repotest"
	"github.com/manyalawy/nawy/apartment-service/internal/search"
	"github.com/manyalawy/nawy/apartment-service/internal/search/searchtest"
	"github.com/manyalawy/nawy/apartment-service/internal/service"
	"github.com/manyalawy/nawy/pkg/jwt"
	"github.com/manyalawy/nawy/pkg/middleware"
	"github.com/manyalawy/nawy/pkg/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type server struct {
	router     *gin.Engine
	db         *gorm.DB
	engine     *searchtest.Engine
	tokens     *jwt.Manager
	dispatcher indexer.Dispatcher
}

func newServer(t *testing.T, withIndex bool) *server {
	t.Helper()

	db := repotest.NewDB(t)
	apartments := repository.NewGormApartmentRepository(db)
	projects := repository.NewGormProjectRepository(db)

	engine := searchtest.NewEngine(search.EngineMeilisearch)
	var client *search.Client
	if withIndex {
		client = search.NewClient(engine.Name(), engine)
	} else {
		client = search.NewClient(search.EngineMeilisearch, nil)
	}
	_ = client.Initialize(context.Background())

	coordinator := indexer.NewCoordinator(apartments, client, 0, nil)
	dispatcher := indexer.NewLocalDispatcher(coordinator, indexer.LocalConfig{Workers: 1}, nil)
	t.Cleanup(func() { _ = dispatcher.Close() })

	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	tokens, err := jwt.NewManager("test-secret", "nawy", time.Hour)
	require.NoError(t, err)

	h := handler.NewHandler(
		service.NewApartmentSearchService(apartments, client, nil),
		service.NewCatalogService(projects, apartments, dispatcher, nil, store, nil, service.CatalogConfig{}),
		service.NewSearchAdminService(client, coordinator),
		middleware.NewAuthMiddleware(tokens),
	)
	r := gin.New()
	h.RegisterRoutes(r)

	return &server{router: r, db: db, engine: engine, tokens: tokens, dispatcher: dispatcher}
}

func (s *server) token(t *testing.T, role string) string {
	t.Helper()
	tok, err := s.tokens.GenerateAccessToken("user-1", "user@example.com", role)
	require.NoError(t, err)
	return tok
}

func (s *server) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type pageBody struct {
	Success      bool                       `json:"success"`
	Data         []domain.ApartmentResponse `json:"data"`
	Meta         domain.PageMeta            `json:"meta"`
	SearchEngine string                     `json:"searchEngine"`
}

type errorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func (s *server) seed(t *testing.T) (a1, a2 *domain.Apartment) {
	t.Helper()
	p := repotest.CreateProject(t, s.db, "Palm Hills")
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	a1 = repotest.CreateApartment(t, s.db, repotest.Apartment{
		UnitName: "Skyline Residence", ProjectID: p.ID, Price: 4_500_000, Bedrooms: 3, CreatedAt: base,
	})
	a2 = repotest.CreateApartment(t, s.db, repotest.Apartment{
		UnitName: "Garden Villa", ProjectID: p.ID, Price: 1_800_000, Bedrooms: 2, CreatedAt: base.Add(time.Hour),
	})
	return a1, a2
}

func TestHealth(t *testing.T) {
	s := newServer(t, false)
	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListApartments(t *testing.T) {
	s := newServer(t, true)
	a1, _ := s.seed(t)
	w := s.do(t, http.MethodPost, "/api/v1/admin/search/reindex", s.token(t, jwt.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/apartments?bedrooms=3", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page pageBody
	decode(t, w, &page)
	assert.True(t, page.Success)
	assert.Equal(t, "database", page.SearchEngine)
	require.Len(t, page.Data, 1)
	assert.Equal(t, a1.ID, page.Data[0].ID)
	assert.Equal(t, domain.PageMeta{Total: 1, Page: 1, Limit: 10, TotalPages: 1}, page.Meta)

	w = s.do(t, http.MethodGet, "/api/v1/apartments?search=Skyline", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = pageBody{}
	decode(t, w, &page)
	assert.Equal(t, "meilisearch", page.SearchEngine)
	require.Len(t, page.Data, 1)
	assert.Equal(t, 4_500_000.0, page.Data[0].Price)
}

func TestListApartments_InvalidQuery(t *testing.T) {
	s := newServer(t, false)

	for _, q := range []string{"status=LEASED", "bedrooms=-1", "limit=-5", "minPrice=abc"} {
		w := s.do(t, http.MethodGet, "/api/v1/apartments?"+q, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestGetApartment(t *testing.T) {
	s := newServer(t, false)
	a1, _ := s.seed(t)

	w := s.do(t, http.MethodGet, "/api/v1/apartments/"+a1.ID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/apartments/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newServer(t, true)

	w := s.do(t, http.MethodPost, "/api/v1/projects", "", domain.CreateProjectRequest{Name: "X", Location: "Y"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/projects", s.token(t, jwt.RoleUser), domain.CreateProjectRequest{Name: "X", Location: "Y"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/admin/search/health", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestApartmentLifecycle(t *testing.T) {
	s := newServer(t, true)
	admin := s.token(t, jwt.RoleAdmin)

	w := s.do(t, http.MethodPost, "/api/v1/projects", admin, domain.CreateProjectRequest{Name: "Azure Bay", Location: "North Coast"})
	require.Equal(t, http.StatusCreated, w.Code)
	var project struct {
		Data domain.ProjectResponse `json:"data"`
	}
	decode(t, w, &project)

	w = s.do(t, http.MethodPost, "/api/v1/projects", admin, domain.CreateProjectRequest{Name: "Azure Bay", Location: "Elsewhere"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/apartments", admin, domain.CreateApartmentRequest{
		UnitName: "Lagoon Chalet", UnitNumber: "LC-7", ProjectID: project.Data.ID, Price: 3_200_000, Area: 120, Bedrooms: 2, Bathrooms: 2,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data domain.ApartmentResponse `json:"data"`
	}
	decode(t, w, &created)
	assert.Equal(t, "Azure Bay", created.Data.Project.Name)

	require.Eventually(t, func() bool {
		_, ok := s.engine.Doc(created.Data.ID)
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	status := domain.StatusSold
	w = s.do(t, http.MethodPut, "/api/v1/apartments/"+created.Data.ID, admin, domain.UpdateApartmentRequest{Status: &status})
	require.Equal(t, http.StatusOK, w.Code)
	require.Eventually(t, func() bool {
		doc, _ := s.engine.Doc(created.Data.ID)
		return doc.Status == "SOLD"
	}, 2*time.Second, 5*time.Millisecond)

	w = s.do(t, http.MethodDelete, "/api/v1/apartments/"+created.Data.ID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Eventually(t, func() bool {
		_, ok := s.engine.Doc(created.Data.ID)
		return !ok
	}, 2*time.Second, 5*time.Millisecond)

	w = s.do(t, http.MethodDelete, "/api/v1/apartments/"+created.Data.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateApartment_UnknownProject(t *testing.T) {
	s := newServer(t, false)

	w := s.do(t, http.MethodPost, "/api/v1/apartments", s.token(t, jwt.RoleAdmin), domain.CreateApartmentRequest{
		UnitName: "Ghost", UnitNumber: "G-1", ProjectID: "0b5f3c1e-7d2a-4e5b-9c3d-2a1b0c9d8e7f",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/apartments", s.token(t, jwt.RoleAdmin), map[string]interface{}{"unitName": "No project"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddImage(t *testing.T) {
	s := newServer(t, false)
	a1, _ := s.seed(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="view.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("\xff\xd8\xff fake jpeg"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/apartments/"+a1.ID+"/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token(t, jwt.RoleAdmin))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var got struct {
		Data domain.ApartmentResponse `json:"data"`
	}
	decode(t, w, &got)
	require.Len(t, got.Data.Images, 1)
	assert.Contains(t, got.Data.Images[0], "/uploads/apartments/"+a1.ID+"/")

	w = s.do(t, http.MethodPost, "/api/v1/apartments/"+a1.ID+"/images", s.token(t, jwt.RoleAdmin), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchAdmin(t *testing.T) {
	s := newServer(t, true)
	s.seed(t)
	admin := s.token(t, jwt.RoleAdmin)

	w := s.do(t, http.MethodPost, "/api/v1/admin/search/reindex", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reindex struct {
		Data domain.ReindexResult `json:"data"`
	}
	decode(t, w, &reindex)
	assert.Equal(t, 2, reindex.Data.Indexed)

	w = s.do(t, http.MethodGet, "/api/v1/admin/search/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Data service.SearchStatus `json:"data"`
	}
	decode(t, w, &stats)
	assert.True(t, stats.Data.Available)
	require.NotNil(t, stats.Data.Stats)
	assert.Equal(t, int64(2), stats.Data.Stats.NumberOfDocuments)

	w = s.do(t, http.MethodGet, "/api/v1/admin/search/health", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health struct {
		Data map[string]bool `json:"data"`
	}
	decode(t, w, &health)
	assert.Equal(t, map[string]bool{"meilisearch": true}, health.Data)
}

func TestSearchAdmin_ReindexUnavailable(t *testing.T) {
	s := newServer(t, false)

	w := s.do(t, http.MethodPost, "/api/v1/admin/search/reindex", s.token(t, jwt.RoleAdmin), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body errorBody
	decode(t, w, &body)
	assert.False(t, body.Success)
	assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
}
