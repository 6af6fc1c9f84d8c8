package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"hash/crc32"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"humorize/caption"
	"humorize/models"
	"humorize/storage"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	gsessions "github.com/gorilla/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubCaptioner struct {
	text     string
	err      error
	settings []*caption.Settings
}

func (s *stubCaptioner) Describe(_ context.Context, _ caption.Image, settings *caption.Settings) (string, error) {
	s.settings = append(s.settings, settings)
	return s.text, s.err
}

type testEnv struct {
	t         *testing.T
	h         *Handlers
	engine    *gin.Engine
	mediaDir  string
	captioner *stubCaptioner
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithStore(t, cookie.NewStore([]byte("test-secret")))
}

func newTestEnvWithStore(t *testing.T, store sessions.Store) *testEnv {
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")+"?_foreign_keys=on"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.Init(db))

	env := &testEnv{
		t:         t,
		mediaDir:  t.TempDir(),
		captioner: &stubCaptioner{text: "a very funny photo"},
	}
	env.h = &Handlers{
		DB:        db,
		Storage:   storage.NewDiskStorage(env.mediaDir, "http://test"),
		Captioner: env.captioner,
		Feed:      NewFeed(),
	}
	env.engine = gin.New()
	env.engine.Use(sessions.Sessions("humorize", store))
	env.h.Register(env.engine)
	return env
}

// testClient is one browser: it keeps its cookies between requests
type testClient struct {
	env     *testEnv
	cookies map[string]*http.Cookie
}

func (env *testEnv) newClient() *testClient {
	return &testClient{env: env, cookies: map[string]*http.Cookie{}}
}

func (tc *testClient) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range tc.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	tc.env.engine.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		tc.cookies[c.Name] = c
	}
	return w
}

func (tc *testClient) get(path string) *httptest.ResponseRecorder {
	return tc.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (tc *testClient) postForm(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return tc.do(req)
}

func (tc *testClient) postJSON(path string, body interface{}) *httptest.ResponseRecorder {
	data, err := json.Marshal(body)
	require.NoError(tc.env.t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return tc.do(req)
}

func (tc *testClient) upload(path string, fields map[string]string, img []byte) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(tc.env.t, mw.WriteField(k, v))
	}
	if img != nil {
		fw, err := mw.CreateFormFile("image", "photo.png")
		require.NoError(tc.env.t, err)
		_, err = fw.Write(img)
		require.NoError(tc.env.t, err)
	}
	require.NoError(tc.env.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return tc.do(req)
}

func pngBytes(t *testing.T) []byte {
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type galleryResp struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShareCode string `json:"share_code"`
	AdminCode string `json:"admin_code"`
	IsAdmin   bool   `json:"is_admin"`
}

type photoResp struct {
	ID              string `json:"id"`
	GalleryID       string `json:"gallery_id"`
	Username        string `json:"username"`
	ImageURL        string `json:"image_url"`
	Description     string `json:"description"`
	OwnerIdentifier string `json:"owner_identifier"`
}

func (env *testEnv) createGallery(tc *testClient, name string) galleryResp {
	w := tc.postJSON("/gallery/create", gin.H{"name": name})
	require.Equal(env.t, http.StatusOK, w.Code, w.Body.String())
	return decode[galleryResp](env.t, w)
}

func (env *testEnv) join(tc *testClient, shareCode, adminCode string) galleryResp {
	w := tc.postForm("/gallery/join", url.Values{"share_code": {shareCode}, "admin_code": {adminCode}})
	require.Equal(env.t, http.StatusOK, w.Code, w.Body.String())
	return decode[galleryResp](env.t, w)
}

func (env *testEnv) savePhoto(tc *testClient, username string) photoResp {
	w := tc.upload("/photo/save", map[string]string{"username": username, "description": "funny"}, pngBytes(env.t))
	require.Equal(env.t, http.StatusOK, w.Code, w.Body.String())
	return decode[photoResp](env.t, w)
}

func (env *testEnv) imageExists(p photoResp) bool {
	path, ok := env.h.Storage.PathFromURL(p.ImageURL)
	require.True(env.t, ok, p.ImageURL)
	_, err := os.Stat(filepath.Join(env.mediaDir, filepath.FromSlash(path)))
	return err == nil
}

func (env *testEnv) photoCount() int64 {
	var n int64
	require.NoError(env.t, env.h.DB.Model(&models.Photo{}).Count(&n).Error)
	return n
}

func TestScenario_AdminAndMembers(t *testing.T) {
	env := newTestEnv(t)
	admin, member, third := env.newClient(), env.newClient(), env.newClient()

	g := env.createGallery(admin, "Test")
	assert.Equal(t, "Test", g.Name)
	assert.Len(t, g.ShareCode, models.ShareCodeLength)
	assert.Len(t, g.AdminCode, models.AdminCodeLength)
	assert.True(t, g.IsAdmin)

	joined := env.join(member, g.ShareCode, "")
	assert.Equal(t, g.ID, joined.ID)
	assert.False(t, joined.IsAdmin)
	assert.Empty(t, joined.AdminCode)

	env.join(third, strings.ToLower(g.ShareCode), "")

	memberPhoto := env.savePhoto(member, "avi")
	thirdPhoto := env.savePhoto(third, "noa")
	assert.True(t, env.imageExists(memberPhoto))
	assert.NotEqual(t, memberPhoto.OwnerIdentifier, thirdPhoto.OwnerIdentifier)

	// a member can't delete someone else's photo
	w := member.postForm("/photo/delete", url.Values{"id": {thirdPhoto.ID}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.EqualValues(t, 2, env.photoCount())
	assert.True(t, env.imageExists(thirdPhoto))

	// the admin can
	w = admin.postForm("/photo/delete", url.Values{"id": {memberPhoto.ID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, env.photoCount())
	assert.False(t, env.imageExists(memberPhoto))

	// and everyone can delete their own
	w = third.postForm("/photo/delete", url.Values{"id": {thirdPhoto.ID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Zero(t, env.photoCount())
}

func TestGalleryJoin_AdminCode(t *testing.T) {
	env := newTestEnv(t)
	admin, member := env.newClient(), env.newClient()
	g := env.createGallery(admin, "Party")

	w := member.postForm("/gallery/join", url.Values{"share_code": {"ZZZZZZ"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	joined := env.join(member, g.ShareCode, "WRONG234")
	assert.False(t, joined.IsAdmin, "a wrong admin code joins as a member")

	joined = env.join(member, g.ShareCode, strings.ToLower(g.AdminCode))
	assert.True(t, joined.IsAdmin)
	assert.Equal(t, g.AdminCode, joined.AdminCode)

	current := decode[galleryResp](t, member.get("/gallery/current"))
	assert.True(t, current.IsAdmin, "admin rights last for the session")

	// rejoining without the code drops them
	env.join(member, g.ShareCode, "")
	current = decode[galleryResp](t, member.get("/gallery/current"))
	assert.False(t, current.IsAdmin)
}

func TestGalleryDelete(t *testing.T) {
	env := newTestEnv(t)
	admin, member, outsider := env.newClient(), env.newClient(), env.newClient()
	g := env.createGallery(admin, "Party")
	env.join(member, g.ShareCode, "")
	p1 := env.savePhoto(member, "avi")
	p2 := env.savePhoto(admin, "dana")

	other := env.createGallery(outsider, "Other")
	kept := env.savePhoto(outsider, "noa")

	w := member.postForm("/gallery/delete", url.Values{"admin_code": {g.ShareCode}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// the admin flag of the session is not enough with a stale code
	w = admin.postForm("/gallery/delete", url.Values{"admin_code": {"WRONG234"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.EqualValues(t, 3, env.photoCount())
	assert.True(t, env.imageExists(p1))

	w = admin.postForm("/gallery/delete", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, env.imageExists(p1))
	assert.False(t, env.imageExists(p2))
	assert.True(t, env.imageExists(kept))
	assert.EqualValues(t, 1, env.photoCount())

	assert.Equal(t, http.StatusNotFound, admin.get("/gallery/current").Code)
	assert.Equal(t, http.StatusNotFound, member.get("/photo/list").Code, "the member is moved out of the deleted gallery")
	current := decode[galleryResp](t, outsider.get("/gallery/current"))
	assert.Equal(t, other.ID, current.ID)
}

func TestGalleryLeaveAndMine(t *testing.T) {
	env := newTestEnv(t)
	admin := env.newClient()
	env.createGallery(admin, "One")
	env.createGallery(admin, "Two")
	env.createGallery(env.newClient(), "Not mine")

	mine := decode[[]galleryResp](t, admin.get("/gallery/mine"))
	require.Len(t, mine, 2)
	for _, g := range mine {
		assert.True(t, g.IsAdmin)
	}

	require.Equal(t, http.StatusOK, admin.postForm("/gallery/leave", nil).Code)
	assert.Equal(t, http.StatusNotFound, admin.get("/gallery/current").Code)
}

func TestPhotoSave_Validation(t *testing.T) {
	env := newTestEnv(t)
	tc := env.newClient()

	w := tc.upload("/photo/save", map[string]string{"username": "avi", "description": "funny"}, pngBytes(t))
	assert.Equal(t, http.StatusNotFound, w.Code, "no active gallery")

	env.createGallery(tc, "Party")
	w = tc.upload("/photo/save", map[string]string{"username": " ", "description": "funny"}, pngBytes(t))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = tc.upload("/photo/save", map[string]string{"username": "avi", "description": ""}, pngBytes(t))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = tc.upload("/photo/save", map[string]string{"username": "avi", "description": "funny"}, []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = tc.upload("/photo/save", map[string]string{"username": "avi", "description": "funny"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, env.photoCount())
}

func TestPhotoListAndSearch(t *testing.T) {
	env := newTestEnv(t)
	tc := env.newClient()
	env.createGallery(tc, "Party")
	env.savePhoto(tc, "avi")
	env.savePhoto(tc, "dana")

	photos := decode[[]photoResp](t, tc.get("/photo/list"))
	assert.Len(t, photos, 2)

	found := decode[photoResp](t, tc.get("/photo/search?username=dana"))
	assert.Equal(t, "dana", found.Username)
	assert.Equal(t, "funny", found.Description)

	assert.Equal(t, http.StatusNotFound, tc.get("/photo/search?username=nobody").Code)
	assert.Equal(t, http.StatusBadRequest, tc.get("/photo/search").Code)
}

func TestPhotoDescribe(t *testing.T) {
	env := newTestEnv(t)
	tc := env.newClient()

	w := tc.upload("/photo/describe", nil, pngBytes(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "a very funny photo", decode[map[string]string](t, w)["description"])
	assert.Nil(t, env.captioner.settings[0], "no gallery, default prompt")

	settings := caption.DefaultSettings()
	settings.Tone = "satirical"
	w = tc.postJSON("/gallery/create", gin.H{"name": "Styled", "settings": settings})
	require.Equal(t, http.StatusOK, w.Code)
	w = tc.upload("/photo/describe", nil, pngBytes(t))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.captioner.settings[1])
	assert.Equal(t, settings, *env.captioner.settings[1])
}

func TestPhotoDescribe_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		retry  string
	}{
		{"exhausted", caption.ErrAllCredentialsExhausted, http.StatusServiceUnavailable, retryLater},
		{"empty", caption.ErrEmptyResponse, http.StatusBadGateway, retryNow},
		{"service", &caption.ServiceError{Status: 500, Message: "internal"}, http.StatusBadGateway, retryNow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.captioner.err = tt.err
			w := env.newClient().upload("/photo/describe", nil, pngBytes(t))
			assert.Equal(t, tt.status, w.Code)
			resp := decode[Response](t, w)
			assert.Equal(t, tt.retry, resp.Retry)
			assert.Equal(t, tt.err.Error(), resp.Error)
		})
	}
}

type fakeIdentity struct{}

func (fakeIdentity) AuthCodeURL(state string) string {
	return "https://idp.test/auth?state=" + state
}

func (fakeIdentity) Exchange(_ context.Context, code string) (*models.User, error) {
	if code != "good" {
		return nil, assert.AnError
	}
	return &models.User{ID: "sub-1", Email: "dana@example.com", Name: "Dana"}, nil
}

type statusResp struct {
	Identifier    string       `json:"identifier"`
	User          *models.User `json:"user"`
	GoogleEnabled bool         `json:"google_enabled"`
}

func TestAuth_Disabled(t *testing.T) {
	env := newTestEnv(t)
	tc := env.newClient()
	status := decode[statusResp](t, tc.get("/auth/status"))
	assert.NotEmpty(t, status.Identifier)
	assert.False(t, status.GoogleEnabled)
	assert.Equal(t, http.StatusNotFound, tc.get("/auth/google/login").Code)
}

func TestAuth_GoogleSignIn(t *testing.T) {
	env := newTestEnv(t)
	env.h.Identity = fakeIdentity{}
	tc := env.newClient()
	before := decode[statusResp](t, tc.get("/auth/status"))

	w := tc.get("/auth/google/login")
	require.Equal(t, http.StatusFound, w.Code)
	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	w = tc.get("/auth/google/callback?code=good&state=forged")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = tc.get("/auth/google/login")
	location, _ = url.Parse(w.Header().Get("Location"))
	w = tc.get("/auth/google/callback?code=good&state=" + location.Query().Get("state"))
	require.Equal(t, http.StatusFound, w.Code)

	status := decode[statusResp](t, tc.get("/auth/status"))
	require.NotNil(t, status.User)
	assert.Equal(t, "sub-1", status.User.ID)
	assert.Equal(t, before.Identifier, status.Identifier)

	// galleries created while signed in are found from another device
	env.createGallery(tc, "Signed")
	other := env.newClient()
	w = other.get("/auth/google/login")
	location, _ = url.Parse(w.Header().Get("Location"))
	other.get("/auth/google/callback?code=good&state=" + location.Query().Get("state"))
	mine := decode[[]galleryResp](t, other.get("/gallery/mine"))
	assert.Len(t, mine, 1)

	require.Equal(t, http.StatusOK, tc.postForm("/auth/logout", nil).Code)
	status = decode[statusResp](t, tc.get("/auth/status"))
	assert.Nil(t, status.User)
	assert.Equal(t, before.Identifier, status.Identifier)
}

// largePNGHeader is the start of a PNG whose header declares 20000x20000 pixels
func largePNGHeader() []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], 20000)
	binary.BigEndian.PutUint32(ihdr[4:], 20000)
	ihdr[8] = 8
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	crc := crc32.NewIEEE()
	crc.Write([]byte("IHDR"))
	crc.Write(ihdr)
	buf.WriteString("IHDR")
	buf.Write(ihdr)
	_ = binary.Write(&buf, binary.BigEndian, crc.Sum32())
	return buf.Bytes()
}

func TestPhotoUpload_RejectsOversizedDimensions(t *testing.T) {
	env := newTestEnv(t)
	tc := env.newClient()
	env.createGallery(tc, "Party")

	w := tc.upload("/photo/describe", nil, largePNGHeader())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.captioner.settings, "the captioner is never called")

	w = tc.upload("/photo/save", map[string]string{"username": "avi", "description": "funny"}, largePNGHeader())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, env.photoCount())
}

type failingRemoveStorage struct {
	storage.StorageAPI
	calls int
}

func (s *failingRemoveStorage) Remove(context.Context, []string) error {
	s.calls++
	return errors.New("bucket unavailable")
}

func TestDelete_StorageCleanupFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	failing := &failingRemoveStorage{StorageAPI: env.h.Storage}
	env.h.Storage = failing
	admin, member := env.newClient(), env.newClient()
	g := env.createGallery(admin, "Party")
	env.join(member, g.ShareCode, "")
	own := env.savePhoto(member, "avi")
	env.savePhoto(member, "noa")

	w := member.postForm("/photo/delete", url.Values{"id": {own.ID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, env.photoCount())
	assert.True(t, env.imageExists(own), "the image stays behind")

	w = admin.postForm("/gallery/delete", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Zero(t, env.photoCount())
	_, err := models.GalleryByID(env.h.DB, g.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, 2, failing.calls)
}

func TestGalleryDelete_RecordDeleteFailure(t *testing.T) {
	env := newTestEnv(t)
	admin := env.newClient()
	g := env.createGallery(admin, "Party")
	env.savePhoto(admin, "avi")
	err := env.h.DB.Callback().Delete().Before("gorm:delete").Register("test:fail_galleries", func(tx *gorm.DB) {
		if tx.Statement.Table == "galleries" {
			_ = tx.AddError(errors.New("disk I/O error"))
		}
	})
	require.NoError(t, err)

	w := admin.postForm("/gallery/delete", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode[Response](t, w).Error, models.ErrRecordDeleteFailed.Error())
	assert.EqualValues(t, 1, env.photoCount())
	assert.Equal(t, g.ID, decode[galleryResp](t, admin.get("/gallery/current")).ID)
}

func TestRequests_AcceptFormAndJSON(t *testing.T) {
	env := newTestEnv(t)
	admin, member := env.newClient(), env.newClient()

	w := admin.postForm("/gallery/create", url.Values{"name": {"Form"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	g := decode[galleryResp](t, w)

	w = member.postJSON("/gallery/join", gin.H{"share_code": g.ShareCode, "admin_code": g.AdminCode})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[galleryResp](t, w).IsAdmin)

	p := env.savePhoto(member, "avi")
	w = member.postJSON("/photo/delete", gin.H{"id": p.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = member.postJSON("/gallery/delete", gin.H{"admin_code": g.AdminCode})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

// flakyStore fails every save once broken is set
type flakyStore struct {
	sessions.Store
	broken bool
}

// Get and New make sessions point back to this store, so Save goes through it
func (s *flakyStore) Get(r *http.Request, name string) (*gsessions.Session, error) {
	return gsessions.GetRegistry(r).Get(s, name)
}

func (s *flakyStore) New(r *http.Request, name string) (*gsessions.Session, error) {
	inner, err := s.Store.New(r, name)
	session := gsessions.NewSession(s, name)
	if inner != nil {
		session.ID = inner.ID
		session.Values = inner.Values
		session.Options = inner.Options
		session.IsNew = inner.IsNew
	}
	return session, err
}

func (s *flakyStore) Save(r *http.Request, w http.ResponseWriter, session *gsessions.Session) error {
	if s.broken {
		return errors.New("session store down")
	}
	return s.Store.Save(r, w, session)
}

func captureLog(t *testing.T) *bytes.Buffer {
	buf := &bytes.Buffer{}
	orig := log.Logger
	log.Logger = zerolog.New(buf)
	t.Cleanup(func() { log.Logger = orig })
	return buf
}

func TestActiveGallery_SessionSaveFailureIsLogged(t *testing.T) {
	store := &flakyStore{Store: cookie.NewStore([]byte("test-secret"))}
	env := newTestEnvWithStore(t, store)
	admin, member := env.newClient(), env.newClient()
	g := env.createGallery(admin, "Party")
	env.join(member, g.ShareCode, "")
	require.Equal(t, http.StatusOK, admin.postForm("/gallery/delete", nil).Code)

	logs := captureLog(t)
	store.broken = true
	w := member.get("/gallery/current")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, logs.String(), "session save failed")
}
