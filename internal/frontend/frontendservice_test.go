package frontend

import (
	"bytes"
	"html"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/jo-hoe/leafdoctor/internal/backend/inference"
	"github.com/jo-hoe/leafdoctor/internal/catalog"
	"github.com/jo-hoe/leafdoctor/internal/common"
	"github.com/jo-hoe/leafdoctor/internal/core"
	"github.com/jo-hoe/leafdoctor/internal/metrics"
	"github.com/labstack/echo/v4"
)

type testServer struct {
	echo       *echo.Echo
	config     *core.ServiceConfig
	classifier *inference.StaticClassifier
}

func newTestServer(t *testing.T, scores []float32) *testServer {
	t.Helper()
	cfg := core.DefaultConfig()
	cfg.UploadDir = t.TempDir()
	cfg.Model.ImageSize = 8

	classifier := &inference.StaticClassifier{Scores: scores}
	coreService, err := core.NewCoreService(&cfg, classifier, metrics.New())
	if err != nil {
		t.Fatalf("NewCoreService error: %v", err)
	}
	t.Cleanup(func() { _ = coreService.Close() })

	e := echo.New()
	e.Validator = &common.GenericEchoValidator{}
	NewFrontendService(&cfg, coreService).SetRoutes(e)

	return &testServer{echo: e, config: &cfg, classifier: classifier}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func loginRequest(username, password string) *http.Request {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func (s *testServer) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := s.do(loginRequest("farmer", "tomato"))
	if rec.Code != http.StatusFound {
		t.Fatalf("login: expected status 302, got %d (%s)", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == s.config.Session.CookieName {
			return c
		}
	}
	t.Fatal("login: no session cookie set")
	return nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.RGBA{R: 90, G: 140, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode error: %v", err)
	}
	return buf.Bytes()
}

// uploadRequest builds a multipart predict request. A nil content omits the file part.
func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if content != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		header.Set("Content-Type", "application/octet-stream")
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("CreatePart error: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("failed to write part: %v", err)
		}
	} else if err := writer.WriteField("comment", "no file here"); err != nil {
		t.Fatalf("WriteField error: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/predict", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func withCookie(req *http.Request, cookie *http.Cookie) *http.Request {
	req.AddCookie(cookie)
	return req
}

func assertUploadDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no leftover uploads, found %d", len(entries))
	}
}

func TestLoginPage(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `action="/login"`) {
		t.Error("login page does not contain the login form")
	}
}

func TestLogin_SuccessOpensHome(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(loginRequest("farmer", "tomato"))
	if rec.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/home" {
		t.Errorf("expected redirect to /home, got %q", loc)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == s.config.Session.CookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected session cookie")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	home := s.do(withCookie(httptest.NewRequest(http.MethodGet, "/home", nil), cookie))
	if home.Code != http.StatusOK {
		t.Fatalf("expected /home status 200, got %d", home.Code)
	}
	if !strings.Contains(home.Body.String(), "Welcome, farmer!") {
		t.Error("home page does not greet the logged in user")
	}
}

func TestLogin_MissingCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{"Empty username", "", "secret"},
		{"Empty password", "farmer", ""},
		{"Both empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			rec := s.do(loginRequest(tt.username, tt.password))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
			if rec.Body.String() != "Invalid login. Please try again." {
				t.Errorf("unexpected body %q", rec.Body.String())
			}
			if len(rec.Result().Cookies()) != 0 {
				t.Error("no session cookie expected on failed login")
			}
		})
	}
}

func TestLogin_NoForm(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(httptest.NewRequest(http.MethodPost, "/login", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestProtectedRoutes_RedirectAnonymous(t *testing.T) {
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/home"},
		{http.MethodGet, "/predict"},
		{http.MethodPost, "/predict"},
	}

	s := newTestServer(t, inference.OneHot(catalog.Count(), 0))
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := s.do(httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != http.StatusFound {
				t.Fatalf("expected status 302, got %d", rec.Code)
			}
			if loc := rec.Header().Get(echo.HeaderLocation); loc != "/" {
				t.Errorf("expected redirect to /, got %q", loc)
			}
		})
	}
}

func TestProtectedRoutes_UnknownSessionCookie(t *testing.T) {
	s := newTestServer(t, nil)
	req := withCookie(httptest.NewRequest(http.MethodGet, "/home", nil),
		&http.Cookie{Name: s.config.Session.CookieName, Value: "forged"})
	rec := s.do(req)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected status 302 for unknown session, got %d", rec.Code)
	}
}

func TestLogout(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login(t)

	rec := s.do(withCookie(httptest.NewRequest(http.MethodGet, "/logout", nil), cookie))
	if rec.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/" {
		t.Errorf("expected redirect to /, got %q", loc)
	}

	// the old cookie value must no longer grant access
	home := s.do(withCookie(httptest.NewRequest(http.MethodGet, "/home", nil), cookie))
	if home.Code != http.StatusFound {
		t.Fatalf("expected /home to redirect after logout, got %d", home.Code)
	}
}

func TestPredictPage(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login(t)

	rec := s.do(withCookie(httptest.NewRequest(http.MethodGet, "/predict", nil), cookie))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `enctype="multipart/form-data"`) {
		t.Error("predict page does not contain the upload form")
	}
}

func TestPredict_NoFilePart(t *testing.T) {
	s := newTestServer(t, inference.OneHot(catalog.Count(), 0))
	cookie := s.login(t)

	rec := s.do(withCookie(uploadRequest(t, "", nil), cookie))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if rec.Body.String() != "No file uploaded!" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	if s.classifier.Calls != 0 {
		t.Error("classifier must not run without an upload")
	}
}

func TestPredict_NotMultipart(t *testing.T) {
	s := newTestServer(t, inference.OneHot(catalog.Count(), 0))
	cookie := s.login(t)

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader("file=leaf.png"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := s.do(withCookie(req, cookie))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if rec.Body.String() != "No file uploaded!" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestPredict_EmptyFilename(t *testing.T) {
	s := newTestServer(t, inference.OneHot(catalog.Count(), 0))
	cookie := s.login(t)

	rec := s.do(withCookie(uploadRequest(t, "", []byte{}), cookie))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if rec.Body.String() != "No file selected!" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestPredict_InvalidImage(t *testing.T) {
	s := newTestServer(t, inference.OneHot(catalog.Count(), 0))
	cookie := s.login(t)

	rec := s.do(withCookie(uploadRequest(t, "leaf.png", []byte("definitely not a png")), cookie))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if rec.Body.String() != "Invalid image file!" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	assertUploadDirEmpty(t, s.config.UploadDir)
}

func TestPredict_RendersCatalogEntry(t *testing.T) {
	for _, label := range catalog.Labels() {
		t.Run(label.String(), func(t *testing.T) {
			s := newTestServer(t, inference.OneHot(catalog.Count(), int(label)))
			cookie := s.login(t)

			rec := s.do(withCookie(uploadRequest(t, "leaf.png", pngBytes(t)), cookie))
			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d (%s)", rec.Code, rec.Body.String())
			}

			entry := catalog.Lookup(label)
			body := rec.Body.String()
			if !strings.Contains(body, "Prediction: "+html.EscapeString(label.String())) {
				t.Errorf("result page does not name %q", label.String())
			}
			if !strings.Contains(body, html.EscapeString(entry.Description)) {
				t.Errorf("result page missing description for %s", label)
			}
			if !strings.Contains(body, html.EscapeString(entry.Solution)) {
				t.Errorf("result page missing solution for %s", label)
			}
			assertUploadDirEmpty(t, s.config.UploadDir)
		})
	}
}

func TestPredict_LateBlightExample(t *testing.T) {
	s := newTestServer(t, []float32{0.1, 0.2, 0.35, 0.15, 0.1, 0.1})
	cookie := s.login(t)

	rec := s.do(withCookie(uploadRequest(t, "tomato.png", pngBytes(t)), cookie))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Prediction: Late Blight") {
		t.Error("expected Late Blight prediction")
	}
	if !strings.Contains(body, "The presence of dark, water-soaked lesions") {
		t.Error("expected late blight description")
	}
}

func TestPredict_ClassifierFailure(t *testing.T) {
	s := newTestServer(t, []float32{1, 2})
	cookie := s.login(t)

	rec := s.do(withCookie(uploadRequest(t, "leaf.png", pngBytes(t)), cookie))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	if rec.Body.String() != "Prediction failed!" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	assertUploadDirEmpty(t, s.config.UploadDir)
}

func TestStaticPages(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/about", "<h2>About</h2>"},
		{"/contact", "<h2>Contact</h2>"},
	}

	s := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := s.do(httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("page %s missing %q", tt.path, tt.want)
			}
			if strings.Contains(rec.Body.String(), `href="/logout"`) {
				t.Error("anonymous visitor must not see a logout link")
			}
		})
	}
}

func TestIcon(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/icon.svg", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "image/svg+xml" {
		t.Errorf("unexpected content type %q", ct)
	}
}
