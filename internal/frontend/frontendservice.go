package frontend

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jo-hoe/leafdoctor/internal/backend/preprocessing"
	"github.com/jo-hoe/leafdoctor/internal/common"
	"github.com/jo-hoe/leafdoctor/internal/core"
	"github.com/labstack/echo/v4"
)

const (
	LoginPageName   = "login.html"
	HomePageName    = "home.html"
	PredictPageName = "predict.html"
	ResultPageName  = "result.html"
	AboutPageName   = "about.html"
	ContactPageName = "contact.html"

	usernameKey = "username"
	uploadField = "file"

	msgInvalidLogin    = "Invalid login. Please try again."
	msgNoFileUploaded  = "No file uploaded!"
	msgNoFileSelected  = "No file selected!"
	msgInvalidImage    = "Invalid image file!"
	msgPredictionError = "Prediction failed!"
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

// LoginForm is bound from the login page's form post
type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type pageData struct {
	Title       string
	Username    string
	Prediction  string
	Description string
	Solution    string
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	// Create template renderer
	e.Renderer = newTemplate()
	if e.Validator == nil {
		e.Validator = &common.GenericEchoValidator{}
	}

	e.GET("/", service.loginPageHandler)
	e.POST("/login", service.loginHandler)
	e.GET("/logout", service.logoutHandler)

	e.GET("/home", service.homeHandler, service.requireSession)
	e.GET("/predict", service.predictPageHandler, service.requireSession)
	e.POST("/predict", service.predictHandler, service.requireSession)

	e.GET("/about", service.staticPageHandler(AboutPageName, "About"), service.optionalSession)
	e.GET("/contact", service.staticPageHandler(ContactPageName, "Contact"), service.optionalSession)

	// Favicon (SVG) route
	e.GET("/icon.svg", service.iconHandler)
}

func (service *FrontendService) loginPageHandler(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, LoginPageName, pageData{Title: "Login"})
}

func (service *FrontendService) loginHandler(ctx echo.Context) error {
	var form LoginForm
	if err := ctx.Bind(&form); err != nil {
		slog.Warn("loginHandler: failed to bind login form", "status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, msgInvalidLogin)
	}
	if err := ctx.Validate(&form); err != nil {
		slog.Warn("loginHandler: incomplete credentials", "status", http.StatusBadRequest)
		return ctx.String(http.StatusBadRequest, msgInvalidLogin)
	}

	s, err := service.coreService.Login(ctx.Request().Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			return ctx.String(http.StatusBadRequest, msgInvalidLogin)
		}
		slog.Error("loginHandler: failed to create session", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to create session")
	}

	// drop any session this browser held before
	if previous := service.sessionID(ctx); previous != "" {
		if err := service.coreService.Logout(ctx.Request().Context(), previous); err != nil {
			slog.Warn("loginHandler: failed to remove previous session", "error", err)
		}
	}

	cookie := service.newCookie(s.ID)
	if !s.ExpiresAt.IsZero() {
		cookie.Expires = s.ExpiresAt
	}
	ctx.SetCookie(cookie)
	return ctx.Redirect(http.StatusFound, "/home")
}

func (service *FrontendService) logoutHandler(ctx echo.Context) error {
	if id := service.sessionID(ctx); id != "" {
		if err := service.coreService.Logout(ctx.Request().Context(), id); err != nil {
			slog.Error("logoutHandler: failed to delete session", "error", err)
		}
	}

	cookie := service.newCookie("")
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	ctx.SetCookie(cookie)
	return ctx.Redirect(http.StatusFound, "/")
}

func (service *FrontendService) homeHandler(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, HomePageName, pageData{
		Title:    "Home",
		Username: service.username(ctx),
	})
}

func (service *FrontendService) predictPageHandler(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, PredictPageName, pageData{
		Title:    "Predict",
		Username: service.username(ctx),
	})
}

func (service *FrontendService) predictHandler(ctx echo.Context) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		slog.Warn("predictHandler: request has no multipart body", "status", http.StatusBadRequest, "error", err)
		service.coreService.RecordRejection("missing_file")
		return ctx.String(http.StatusBadRequest, msgNoFileUploaded)
	}

	files := form.File[uploadField]
	if len(files) == 0 {
		// a file input left empty arrives as a part without filename, which
		// the multipart reader files under plain values
		if _, ok := form.Value[uploadField]; ok {
			service.coreService.RecordRejection("empty_filename")
			return ctx.String(http.StatusBadRequest, msgNoFileSelected)
		}
		service.coreService.RecordRejection("missing_file")
		return ctx.String(http.StatusBadRequest, msgNoFileUploaded)
	}
	file := files[0]
	if file.Filename == "" {
		service.coreService.RecordRejection("empty_filename")
		return ctx.String(http.StatusBadRequest, msgNoFileSelected)
	}

	diagnosis, err := service.coreService.Diagnose(ctx.Request().Context(), file)
	if err != nil {
		if errors.Is(err, preprocessing.ErrInvalidImage) {
			slog.Warn("predictHandler: uploaded file is not an image",
				"status", http.StatusBadRequest, "error", err, "filename", file.Filename)
			return ctx.String(http.StatusBadRequest, msgInvalidImage)
		}
		slog.Error("predictHandler: failed to classify image",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.String(http.StatusInternalServerError, msgPredictionError)
	}

	return ctx.Render(http.StatusOK, ResultPageName, pageData{
		Title:       "Result",
		Username:    service.username(ctx),
		Prediction:  diagnosis.Label.String(),
		Description: diagnosis.Description,
		Solution:    diagnosis.Solution,
	})
}

func (service *FrontendService) staticPageHandler(page, title string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.Render(http.StatusOK, page, pageData{
			Title:    title,
			Username: service.username(ctx),
		})
	}
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	data, err := assetsFS.ReadFile("views/icon.svg")
	if err != nil {
		slog.Error("iconHandler: failed to read icon.svg", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load icon")
	}
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", data)
}
