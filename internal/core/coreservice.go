package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jo-hoe/leafdoctor/internal/backend/inference"
	"github.com/jo-hoe/leafdoctor/internal/backend/preprocessing"
	"github.com/jo-hoe/leafdoctor/internal/backend/session"
	"github.com/jo-hoe/leafdoctor/internal/catalog"
	"github.com/jo-hoe/leafdoctor/internal/metrics"
)

// ErrInvalidCredentials is returned when the username or password is empty
var ErrInvalidCredentials = errors.New("username and password are required")

var extensionPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// Diagnosis is what the result page shows for one uploaded leaf
type Diagnosis struct {
	Label       catalog.Label
	Description string
	Solution    string
}

// CoreService is the shared server context handed to every handler. It is
// built once at startup; apart from the session store nothing in it changes.
type CoreService struct {
	config       *ServiceConfig
	preprocessor *preprocessing.Preprocessor
	predictor    *inference.Predictor
	sessions     session.Store
	metrics      *metrics.Metrics
}

func NewCoreService(config *ServiceConfig, classifier inference.Classifier, m *metrics.Metrics) (*CoreService, error) {
	if err := os.MkdirAll(config.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", config.UploadDir, err)
	}

	preprocessor, err := preprocessing.NewPreprocessor(config.Model.ImageSize)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewStore(config.Session.Store, config.Session.ConnectionString, config.Session.TTL)
	if err != nil {
		return nil, err
	}

	if m == nil {
		m = metrics.New()
	}

	return &CoreService{
		config:       config,
		preprocessor: preprocessor,
		predictor:    inference.NewPredictor(classifier),
		sessions:     sessions,
		metrics:      m,
	}, nil
}

func (service *CoreService) Config() *ServiceConfig {
	return service.config
}

func (service *CoreService) Metrics() *metrics.Metrics {
	return service.metrics
}

// Login opens a session for any non-empty username and password pair.
// Credentials are not checked against a user store.
func (service *CoreService) Login(ctx context.Context, username, password string) (*session.Session, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	s, err := service.sessions.Create(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	slog.Info("user logged in", "username", username)
	return s, nil
}

// Session returns the live session for id, or nil when there is none
func (service *CoreService) Session(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return nil, nil
	}
	return service.sessions.Get(ctx, id)
}

func (service *CoreService) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return service.sessions.Delete(ctx, id)
}

// RecordRejection counts an upload refused before it reached the model
func (service *CoreService) RecordRejection(reason string) {
	service.metrics.ObserveRejection(reason)
}

// Diagnose stores the upload under a unique name, classifies it and looks up
// the catalog text. The stored file is removed on every return path.
func (service *CoreService) Diagnose(ctx context.Context, file *multipart.FileHeader) (*Diagnosis, error) {
	path, err := service.saveUpload(file)
	if err != nil {
		return nil, err
	}
	defer service.removeUpload(path)

	tensor, err := service.preprocessor.FromFile(path)
	if err != nil {
		if errors.Is(err, preprocessing.ErrInvalidImage) {
			service.metrics.ObserveRejection("invalid_image")
		}
		return nil, err
	}

	prediction, err := service.predictor.Predict(ctx, tensor)
	if err != nil {
		return nil, err
	}

	entry := catalog.Lookup(prediction.Label)
	service.metrics.ObservePrediction(prediction.Label.String(), prediction.Duration)
	slog.Info("image classified",
		"filename", file.Filename,
		"label", prediction.Label.String(),
		"score", prediction.Score,
		"duration_ms", prediction.Duration.Milliseconds())

	return &Diagnosis{
		Label:       entry.Label,
		Description: entry.Description,
		Solution:    entry.Solution,
	}, nil
}

func (service *CoreService) saveUpload(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("saveUpload: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	path := filepath.Join(service.config.UploadDir, uploadName(file.Filename))
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create upload %s: %w", path, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		service.removeUpload(path)
		return "", fmt.Errorf("failed to write upload %s: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		service.removeUpload(path)
		return "", fmt.Errorf("failed to close upload %s: %w", path, err)
	}
	return path, nil
}

func (service *CoreService) removeUpload(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove temporary upload", "path", path, "error", err)
	}
}

// uploadName derives a collision-free file name; only a sanitised extension
// survives from the client supplied name.
func uploadName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if !extensionPattern.MatchString(ext) {
		ext = ""
	}
	return uuid.NewString() + ext
}

// Close releases the model and the session store
func (service *CoreService) Close() error {
	return errors.Join(service.predictor.Close(), service.sessions.Close())
}
