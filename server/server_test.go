package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/shubhamforall/petstore-api/auth"
	"github.com/shubhamforall/petstore-api/cache"
	"github.com/shubhamforall/petstore-api/config"
	"github.com/shubhamforall/petstore-api/database"
	"github.com/shubhamforall/petstore-api/database/databasetest"
	"github.com/shubhamforall/petstore-api/logger"
	"github.com/shubhamforall/petstore-api/metrics"
	"github.com/shubhamforall/petstore-api/models"
	"github.com/shubhamforall/petstore-api/permissions"
	"github.com/shubhamforall/petstore-api/ratelimit"
	"github.com/shubhamforall/petstore-api/storage"
)

func init() {
	models.PasswordCost = bcrypt.MinCost
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingPets records how often the store is actually read.
type countingPets struct {
	database.PetRepository
	lists atomic.Int32
	gets  atomic.Int32
}

func (p *countingPets) List(ctx context.Context, f database.PetFilter, page, size int) ([]models.Pet, int64, error) {
	p.lists.Add(1)
	return p.PetRepository.List(ctx, f, page, size)
}

func (p *countingPets) Get(ctx context.Context, id string) (*models.Pet, error) {
	p.gets.Add(1)
	return p.PetRepository.Get(ctx, id)
}

type env struct {
	app    *fiber.App
	db     *gorm.DB
	pets   *countingPets
	tokens *auth.TokenService
	clock  *clock
	cfg    *config.Config
}

type option func(*config.Config)

func newEnv(t *testing.T, opts ...option) *env {
	t.Helper()
	cfg := &config.Config{
		AllowedOrigins: "*",
		BodyLimitBytes: 4 << 20,
		RequestTimeout: 10 * time.Second,
		JWT:            config.JWT{Secret: "test-secret", TTL: time.Hour},
		RateLimit:      config.RateLimit{Max: 1000, Window: 15 * time.Minute},
		Cache:          config.Cache{Enabled: true, TTL: time.Minute},
		Upload:         config.Upload{Dir: filepath.Join(t.TempDir(), "uploads"), MaxFiles: 3, MaxFileBytes: 1 << 20},
	}
	for _, o := range opts {
		o(cfg)
	}

	db := databasetest.Open(t)
	tokens, err := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL)
	require.NoError(t, err)
	files, err := storage.NewDisk(cfg.Upload.Dir, "/uploads")
	require.NoError(t, err)

	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	limits := ratelimit.NewMemoryStore(ratelimit.WithClock(clk.Now))
	t.Cleanup(limits.Close)

	var respCache cache.Store
	if cfg.Cache.Enabled {
		mc := cache.NewMemoryStore()
		t.Cleanup(mc.Close)
		respCache = mc
	}

	pets := &countingPets{PetRepository: database.NewPetStore(db)}
	app, err := New(Deps{
		Config:      cfg,
		Log:         logger.Discard(),
		Pets:        pets,
		Users:       database.NewUserStore(db),
		Idempotency: database.NewIdempotencyStore(db),
		Tokens:      tokens,
		Permissions: permissions.New(permissions.Defaults()),
		Limiter:     ratelimit.New(limits, cfg.RateLimit.Max, cfg.RateLimit.Window),
		Files:       files,
		Cache:       respCache,
		Metrics:     metrics.New(),
	})
	require.NoError(t, err)
	return &env{app: app, db: db, pets: pets, tokens: tokens, clock: clk, cfg: cfg}
}

func (e *env) token(t *testing.T, role models.Role) string {
	t.Helper()
	tok, _, err := e.tokens.Issue(auth.Identity{UserID: "user-" + string(role), Email: strings.ToLower(string(role)) + "@example.com", Role: role})
	require.NoError(t, err)
	return tok
}

type result struct {
	status int
	header http.Header
	raw    []byte
	body   map[string]any
}

func (r result) data() map[string]any {
	d, _ := r.body["data"].(map[string]any)
	return d
}

func (r result) code() string {
	m, _ := r.body["messages"].(map[string]any)
	c, _ := m["code"].(string)
	return c
}

func (r result) message() string {
	m, _ := r.body["messages"].(map[string]any)
	s, _ := m["message"].(string)
	return s
}

func (e *env) send(t *testing.T, req *http.Request) result {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := result{status: resp.StatusCode, header: resp.Header, raw: raw}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &out.body), string(raw))
	}
	return out
}

func (e *env) json(t *testing.T, method, target, token string, body any) result {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return e.send(t, req)
}

type upload struct {
	name    string
	content []byte
}

func (e *env) multipart(t *testing.T, target, token string, fields map[string]string, files ...upload) result {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile("images", f.name)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(fiber.MethodPost, target, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	return e.send(t, req)
}

func rocky() map[string]string {
	return map[string]string{
		"name":        "Rocky",
		"type":        "Dog",
		"age":         "4",
		"description": "Active dog with great energy",
	}
}

func TestPetLifecycle(t *testing.T) {
	e := newEnv(t)
	admin := e.token(t, models.RoleAdmin)

	created := e.multipart(t, "/pets", admin, rocky())
	require.Equal(t, 201, created.status, string(created.raw))
	assert.Equal(t, "Pet added successfully", created.message())
	assert.Equal(t, true, created.body["is_success"])
	d := created.data()
	assert.Equal(t, "Rocky", d["name"])
	assert.Equal(t, "Dog", d["type"])
	assert.EqualValues(t, 4, d["age"])
	assert.Equal(t, "Active dog with great energy", d["description"])
	assert.Contains(t, d, "breed")
	assert.Nil(t, d["breed"])
	assert.Equal(t, []any{}, d["images"])

	id := d["id"].(string)
	got := e.json(t, "GET", "/pets/"+id, admin, nil)
	require.Equal(t, 200, got.status)
	assert.Equal(t, "Pet fetched successfully", got.message())
	for _, k := range []string{"id", "name", "type", "age", "description", "breed", "images"} {
		assert.Equal(t, d[k], got.data()[k], k)
	}

	del := e.json(t, "DELETE", "/pets/"+id, admin, nil)
	assert.Equal(t, 204, del.status)
	assert.Empty(t, del.raw)

	gone := e.json(t, "GET", "/pets/"+id, admin, nil)
	assert.Equal(t, 404, gone.status)
	assert.Equal(t, "Pet not found", gone.message())
	assert.Equal(t, 404, e.json(t, "DELETE", "/pets/"+id, admin, nil).status)
}

func TestCreatePetReportsAllViolations(t *testing.T) {
	e := newEnv(t)
	r := e.json(t, "POST", "/pet", e.token(t, models.RoleAdmin), map[string]any{
		"type":        "Dog",
		"age":         -1,
		"description": strings.Repeat("x", 256),
	})

	require.Equal(t, 400, r.status)
	assert.Equal(t, "VALIDATION_FAILED", r.code())
	errs := r.body["errors"].([]any)
	require.Len(t, errs, 3)
	var fields []string
	for _, fe := range errs {
		fields = append(fields, fe.(map[string]any)["field"].(string))
	}
	assert.Equal(t, []string{"name", "age", "description"}, fields)
}

func TestCreatePetWithImages(t *testing.T) {
	e := newEnv(t)
	admin := e.token(t, models.RoleAdmin)

	r := e.multipart(t, "/pets", admin, rocky(), upload{"a.png", pngBytes}, upload{"b.html", pngBytes})
	require.Equal(t, 201, r.status, string(r.raw))
	images := r.data()["images"].([]any)
	require.Len(t, images, 2)
	for _, img := range images {
		assert.True(t, strings.HasSuffix(img.(map[string]any)["url"].(string), ".png"), "extension follows the content")
	}

	url := images[0].(map[string]any)["url"].(string)
	assert.True(t, strings.HasPrefix(url, "/uploads/images-"), url)
	served := e.send(t, httptest.NewRequest("GET", url, nil))
	assert.Equal(t, 200, served.status)
	assert.Equal(t, pngBytes, served.raw)

	bad := e.multipart(t, "/pets", admin, rocky(), upload{"notes.txt", []byte("hello there")})
	assert.Equal(t, 400, bad.status)
	assert.Equal(t, "VALIDATION_FAILED", bad.code())
}

func TestCreatePetIsAtomic(t *testing.T) {
	e := newEnv(t)
	err := e.db.Callback().Create().Before("gorm:create").Register("test:fail_images", func(tx *gorm.DB) {
		if tx.Statement.Table == "images" {
			_ = tx.AddError(errors.New("image write failed"))
		}
	})
	require.NoError(t, err)

	r := e.multipart(t, "/pets", e.token(t, models.RoleAdmin), rocky(), upload{"a.png", pngBytes})
	assert.Equal(t, 500, r.status)
	assert.Equal(t, "Internal server error", r.message())

	var pets int64
	require.NoError(t, e.db.Model(&models.Pet{}).Count(&pets).Error)
	assert.Zero(t, pets)

	entries, err := os.ReadDir(e.cfg.Upload.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "stored uploads are removed")
}

func seedPets(t *testing.T, e *env, n int, petType string) {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < n; i++ {
		pet := &models.Pet{Name: fmt.Sprintf("pet-%d", i), Type: petType, Age: i, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, database.NewPetStore(e.db).CreateWithImages(context.Background(), pet, nil))
	}
}

func TestListPetsPagination(t *testing.T) {
	e := newEnv(t, func(c *config.Config) { c.Cache.Enabled = false })
	seedPets(t, e, 7, "Dog")
	seedPets(t, e, 2, "Cat")
	user := e.token(t, models.RoleUser)

	for _, tc := range []struct {
		query   string
		count   int
		pages   int
		results int
	}{
		{"?page=1&pageSize=3&type=Dog", 7, 3, 3},
		{"?page=3&pageSize=3&type=Dog", 7, 3, 1},
		{"?page=4&pageSize=3&type=Dog", 7, 3, 0},
		{"", 9, 1, 9},
		{"?type=Cat&age=1", 1, 1, 1},
		{"?pageSize=4", 9, 3, 4},
		{"?pageSize=4000000000", 9, 1, 9},
		{"?page=922337203685477582&pageSize=10", 9, 1, 0},
	} {
		r := e.json(t, "GET", "/pets"+tc.query, user, nil)
		require.Equal(t, 200, r.status, tc.query)
		d := r.data()
		assert.EqualValues(t, tc.count, d["count"], tc.query)
		assert.EqualValues(t, tc.pages, d["pagesAvailable"], tc.query)
		assert.Len(t, d["results"], tc.results, tc.query)
	}

	first := e.json(t, "GET", "/pets?type=Dog&pageSize=1", user, nil).data()["results"].([]any)[0].(map[string]any)
	assert.Equal(t, "pet-6", first["name"], "newest first")

	for _, q := range []string{"?page=0", "?pageSize=0", "?age=-1", "?page=abc"} {
		r := e.json(t, "GET", "/pets"+q, user, nil)
		assert.Equal(t, 400, r.status, q)
	}
}

func TestListIsCached(t *testing.T) {
	e := newEnv(t)
	seedPets(t, e, 2, "Dog")
	user := e.token(t, models.RoleUser)

	first := e.json(t, "GET", "/pets?type=Dog", user, nil)
	second := e.json(t, "GET", "/pets?type=Dog", user, nil)
	require.Equal(t, 200, first.status)
	assert.Equal(t, first.raw, second.raw)
	assert.Equal(t, "MISS", first.header.Get("X-Cache"))
	assert.Equal(t, "HIT", second.header.Get("X-Cache"))
	assert.EqualValues(t, 1, e.pets.lists.Load())

	created := e.multipart(t, "/pets", e.token(t, models.RoleAdmin), rocky())
	require.Equal(t, 201, created.status)
	third := e.json(t, "GET", "/pets?type=Dog", user, nil)
	assert.EqualValues(t, 3, third.data()["count"], "mutations invalidate cached lists")
	assert.EqualValues(t, 2, e.pets.lists.Load())
}

func TestUpdatePet(t *testing.T) {
	e := newEnv(t)
	admin := e.token(t, models.RoleAdmin)
	fields := rocky()
	fields["breed"] = "Beagle"
	id := e.multipart(t, "/pets", admin, fields).data()["id"].(string)

	patched := e.json(t, "PATCH", "/pets/"+id, admin, map[string]any{"name": "Rocco"})
	require.Equal(t, 200, patched.status, string(patched.raw))
	assert.Equal(t, "Pet updated successfully", patched.message())
	assert.Equal(t, "Rocco", patched.data()["name"])
	assert.Equal(t, "Beagle", patched.data()["breed"])
	assert.EqualValues(t, 4, patched.data()["age"])

	put := e.json(t, "PUT", "/pets/"+id, admin, map[string]any{"name": "Rex", "type": "Dog", "age": 5})
	require.Equal(t, 200, put.status, string(put.raw))
	assert.Equal(t, "Rex", put.data()["name"])
	assert.Nil(t, put.data()["breed"])
	assert.Nil(t, put.data()["description"])
	assert.EqualValues(t, 5, put.data()["age"])

	incomplete := e.json(t, "PUT", "/pets/"+id, admin, map[string]any{"name": "Rex"})
	assert.Equal(t, 400, incomplete.status)

	missing := e.json(t, "PATCH", "/pets/3f2c1a9e-8d4b-4c5e-9f1a-2b3c4d5e6f70", admin, map[string]any{"name": "x"})
	assert.Equal(t, 404, missing.status)

	badID := e.json(t, "GET", "/pets/not-a-uuid", admin, nil)
	assert.Equal(t, 400, badID.status)
	assert.Equal(t, "VALIDATION_FAILED", badID.code())
}

func TestAuthAndPermissions(t *testing.T) {
	e := newEnv(t)

	missing := e.json(t, "GET", "/pets", "", nil)
	assert.Equal(t, 401, missing.status)
	assert.Equal(t, "TOKEN_MISSING", missing.code())

	invalid := e.json(t, "GET", "/pets", "abc.def.ghi", nil)
	assert.Equal(t, 401, invalid.status)
	assert.Equal(t, "TOKEN_INVALID", invalid.code())

	forbidden := e.multipart(t, "/pets", e.token(t, models.RoleUser), rocky())
	assert.Equal(t, 403, forbidden.status)
	assert.Equal(t, "FORBIDDEN", forbidden.code())

	assert.Equal(t, 403, e.json(t, "GET", "/users", e.token(t, models.RoleAdmin), nil).status)
	assert.Equal(t, 403, e.json(t, "DELETE", "/pets/3f2c1a9e-8d4b-4c5e-9f1a-2b3c4d5e6f70", e.token(t, models.RoleSuperAdmin), nil).status)
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	u := &models.User{Email: "admin@example.com", FirstName: "A", LastName: "B", Role: models.RoleAdmin}
	require.NoError(t, u.SetPassword("hunter22"))
	require.NoError(t, database.NewUserStore(e.db).Create(context.Background(), u))

	ok := e.json(t, "POST", "/auth/login", "", map[string]string{"email": "admin@example.com", "password": "hunter22"})
	require.Equal(t, 200, ok.status, string(ok.raw))
	assert.Equal(t, "Login successful", ok.message())
	token := ok.data()["token"].(string)

	id, err := e.tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
	assert.Equal(t, models.RoleAdmin, id.Role)
	assert.Equal(t, 200, e.json(t, "GET", "/pets", token, nil).status)

	wrong := e.json(t, "POST", "/auth/login", "", map[string]string{"email": "admin@example.com", "password": "nope"})
	unknown := e.json(t, "POST", "/auth/login", "", map[string]string{"email": "ghost@example.com", "password": "hunter22"})
	assert.Equal(t, 401, wrong.status)
	assert.Equal(t, "INVALID_CREDENTIALS", wrong.code())
	assert.Equal(t, wrong.raw, unknown.raw)

	assert.Equal(t, 400, e.json(t, "POST", "/auth/login", "", map[string]string{"email": "x"}).status)
}

func TestUsers(t *testing.T) {
	e := newEnv(t)
	root := e.token(t, models.RoleSuperAdmin)
	body := map[string]any{
		"email":       "jane@example.com",
		"password":    "secret1",
		"firstName":   "Jane",
		"lastName":    "Doe",
		"phoneNumber": "+14155550100",
		"role":        "User",
	}

	created := e.json(t, "POST", "/users", root, body)
	require.Equal(t, 201, created.status, string(created.raw))
	assert.Equal(t, "User created successfully", created.message())
	assert.Equal(t, "jane@example.com", created.data()["email"])
	assert.NotContains(t, string(created.raw), "password")
	assert.NotContains(t, string(created.raw), "secret1")

	dup := e.json(t, "POST", "/users", root, body)
	assert.Equal(t, 400, dup.status)
	assert.Equal(t, "Email already in use", dup.message())

	noRole := e.json(t, "POST", "/users", root, map[string]any{
		"email": "x@example.com", "password": "secret1", "firstName": "X", "lastName": "Y", "phoneNumber": "+14155550101",
	})
	assert.Equal(t, 400, noRole.status, "role is never defaulted")

	list := e.json(t, "GET", "/users", root, nil)
	require.Equal(t, 200, list.status)
	assert.Equal(t, "Users fetched successfully", list.message())
	assert.Len(t, list.body["data"], 1)
}

func TestRateLimitBoundary(t *testing.T) {
	e := newEnv(t, func(c *config.Config) { c.RateLimit = config.RateLimit{Max: 3, Window: time.Minute} })

	for i := 0; i < 3; i++ {
		r := e.json(t, "GET", "/pets", "", nil)
		assert.Equal(t, 401, r.status, "request %d reaches authentication", i+1)
	}
	limited := e.json(t, "GET", "/pets", "", nil)
	assert.Equal(t, 429, limited.status)
	assert.Equal(t, "RATE_LIMITED", limited.code())
	assert.Equal(t, "Too many requests, please try again later.", limited.message())
	assert.Equal(t, "60", limited.header.Get("Retry-After"))
	assert.Equal(t, "0", limited.header.Get("X-RateLimit-Remaining"))

	e.clock.Advance(time.Minute)
	after := e.json(t, "GET", "/pets", e.token(t, models.RoleUser), nil)
	assert.Equal(t, 200, after.status)
	assert.Equal(t, "2", after.header.Get("X-RateLimit-Remaining"))
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t)
	e.json(t, "GET", "/pets", e.token(t, models.RoleUser), nil)

	r := e.send(t, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, r.status)
	assert.Contains(t, string(r.raw), `petstore_http_requests_total{method="GET",route="/pets",status="200"} 1`)
	assert.Contains(t, string(r.raw), `petstore_cache_lookups_total{result="miss"} 1`)
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Deps{})
	assert.ErrorContains(t, err, "missing config")
}
