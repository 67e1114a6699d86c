// Package portraits orchestrates paid AI portrait stylization: upload,
// checkout, generation and cleanup of a user's projects.
package portraits

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"concerto-app/internal/domain/payments"
	"concerto-app/internal/domain/projects"
	"concerto-app/internal/infra/storage"

	"github.com/google/uuid"
)

const (
	maxOutputBytes  = 20 << 20
	rollbackTimeout = 5 * time.Second
)

var errOutputTooLarge = fmt.Errorf("generated image exceeds %d bytes", maxOutputBytes)

var extensionByMIME = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/heic": "heic",
	"image/heif": "heic",
}

var trailingExtension = regexp.MustCompile(`\.([a-zA-Z0-9]+)$`)

type Store interface {
	Get(ctx context.Context, id string) (projects.Project, error)
	Create(ctx context.Context, p *projects.Project) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, userID string) ([]projects.Project, error)
	AttachCheckoutSession(ctx context.Context, id, sessionID string) error
	TransitionStatus(ctx context.Context, id string, from, to projects.Status) (bool, error)
	Complete(ctx context.Context, id, outputURL string) (projects.Project, error)
}

type Objects interface {
	EnsureBucket(ctx context.Context, bucket string) error
	Upload(ctx context.Context, bucket, key string, body []byte, contentType string) (string, error)
	Remove(ctx context.Context, bucket, key string) error
}

type Checkout interface {
	CreateCheckoutSession(ctx context.Context, req payments.CheckoutRequest) (payments.Session, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt, inputURL string) (string, error)
}

type Deps struct {
	Store     Store
	Objects   Objects
	Checkout  Checkout
	Generator Generator
	// HTTP fetches generated images. http.DefaultClient when nil.
	HTTP *http.Client

	InputBucket   string
	OutputBucket  string
	DefaultPrompt string
	PriceMinor    int64
	Currency      string
	Origin        string
	Logger        *slog.Logger
}

type Service struct {
	store     Store
	objects   Objects
	checkout  Checkout
	generator Generator
	http      *http.Client

	inputBucket   string
	outputBucket  string
	defaultPrompt string
	priceMinor    int64
	currency      string
	origin        string
	logger        *slog.Logger
}

func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := d.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	return &Service{
		store:         d.Store,
		objects:       d.Objects,
		checkout:      d.Checkout,
		generator:     d.Generator,
		http:          client,
		inputBucket:   d.InputBucket,
		outputBucket:  d.OutputBucket,
		defaultPrompt: d.DefaultPrompt,
		priceMinor:    d.PriceMinor,
		currency:      d.Currency,
		origin:        strings.TrimRight(d.Origin, "/"),
		logger:        logger,
	}
}

// Upload is an image submitted for stylization.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type CheckoutInput struct {
	// ProjectID reuses an existing unpaid project instead of uploading.
	ProjectID string
	Image     *Upload
	Prompt    string
}

type CheckoutResult struct {
	Session payments.Session
	Project projects.Project
}

// ResolveExtension picks a file extension from the MIME type, then the file
// name, then falls back to png.
func ResolveExtension(filename, contentType string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext, ok := extensionByMIME[mediaType]; ok {
			return ext
		}
	}
	if m := trailingExtension.FindStringSubmatch(filename); m != nil {
		return strings.ToLower(m[1])
	}
	return "png"
}

func (s *Service) loadOwned(ctx context.Context, actorID, id string) (projects.Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return projects.Project{}, newError(ReasonInvalidInput, "missing project id", nil)
	}
	p, err := s.store.Get(ctx, id)
	if errors.Is(err, projects.ErrNotFound) {
		return p, newError(ReasonNotFound, fmt.Sprintf("project %s not found", id), err)
	}
	if err != nil {
		return p, newError(ReasonStoreFailure, "failed to load project", err)
	}
	if p.UserID != actorID {
		return p, newError(ReasonForbidden, fmt.Sprintf("project %s belongs to another user", id), nil)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, actorID string) ([]projects.Project, error) {
	out, err := s.store.ListByOwner(ctx, actorID)
	if err != nil {
		return nil, newError(ReasonStoreFailure, "failed to list projects", err)
	}
	return out, nil
}

// StartCheckout stores the submitted portrait as a new unpaid project and
// opens a checkout for it. Everything created along the way is removed
// again if a later step fails.
func (s *Service) StartCheckout(ctx context.Context, actorID string, in CheckoutInput) (CheckoutResult, error) {
	if s.objects == nil {
		return CheckoutResult{}, newError(ReasonUnavailable, "portrait storage is not configured", nil)
	}
	if strings.TrimSpace(in.ProjectID) != "" {
		return s.restartCheckout(ctx, actorID, in.ProjectID)
	}
	if in.Image == nil || len(in.Image.Data) == 0 {
		return CheckoutResult{}, newError(ReasonInvalidInput, "an image is required", nil)
	}

	if err := s.objects.EnsureBucket(ctx, s.inputBucket); err != nil {
		return CheckoutResult{}, newError(ReasonStorageFailure, "failed to prepare input bucket", err)
	}

	ext := ResolveExtension(in.Image.Filename, in.Image.ContentType)
	key := "inputs/" + uuid.NewString() + "." + ext
	contentType := in.Image.ContentType
	if contentType == "" {
		contentType = "image/" + ext
	}
	inputURL, err := s.objects.Upload(ctx, s.inputBucket, key, in.Image.Data, contentType)
	if err != nil {
		return CheckoutResult{}, newError(ReasonStorageFailure, "failed to upload image", err)
	}

	p := projects.Project{
		UserID:        actorID,
		InputImageURL: inputURL,
		Status:        projects.StatusPending,
		PaymentStatus: projects.PaymentUnpaid,
	}
	if prompt := strings.TrimSpace(in.Prompt); prompt != "" {
		p.Prompt = &prompt
	}
	if err := s.store.Create(ctx, &p); err != nil {
		s.removeObject(ctx, s.inputBucket, key)
		return CheckoutResult{}, newError(ReasonStoreFailure, "failed to save project", err)
	}

	session, err := s.openSession(ctx, p)
	if err != nil {
		s.removeObject(ctx, s.inputBucket, key)
		if derr := s.store.Delete(ctx, p.ID); derr != nil {
			s.logger.ErrorContext(ctx, "failed to clean up project", "project_id", p.ID, "error", derr)
		}
		return CheckoutResult{}, err
	}
	p.StripeCheckoutSessionID = &session.ID

	s.logger.InfoContext(ctx, "portrait checkout started", "project_id", p.ID, "session_id", session.ID)
	return CheckoutResult{Session: session, Project: p}, nil
}

func (s *Service) restartCheckout(ctx context.Context, actorID, id string) (CheckoutResult, error) {
	p, err := s.loadOwned(ctx, actorID, id)
	if err != nil {
		return CheckoutResult{}, err
	}
	if p.PaymentStatus == projects.PaymentPaid {
		return CheckoutResult{}, newError(ReasonAlreadyPaid, "project already paid", nil)
	}
	session, err := s.openSession(ctx, p)
	if err != nil {
		return CheckoutResult{}, err
	}
	p.StripeCheckoutSessionID = &session.ID
	return CheckoutResult{Session: session, Project: p}, nil
}

func (s *Service) openSession(ctx context.Context, p projects.Project) (payments.Session, error) {
	session, err := s.checkout.CreateCheckoutSession(ctx, payments.CheckoutRequest{
		Currency:           s.currency,
		AmountMinor:        s.priceMinor,
		ProductName:        "Portrait Concerto",
		ProductDescription: "Stylisation de ton portrait par IA",
		Metadata:           map[string]string{"project_id": p.ID},
		PaymentMetadata:    map[string]string{"project_id": p.ID},
		SuccessURL:         s.dashboardURL("confirmation", p.ID),
		CancelURL:          s.dashboardURL("annule", p.ID),
	})
	if err != nil {
		return payments.Session{}, newError(ReasonGatewayFailure, "failed to open checkout session", err)
	}
	if err := s.store.AttachCheckoutSession(ctx, p.ID, session.ID); err != nil {
		return payments.Session{}, newError(ReasonStoreFailure, "failed to attach checkout session", err)
	}
	return session, nil
}

func (s *Service) dashboardURL(status, projectID string) string {
	q := url.Values{}
	q.Set("statut", status)
	q.Set("projet", projectID)
	return s.origin + "/dashboard?" + q.Encode()
}

// Generate runs the stylization for a paid project and stores the result.
// A completed project returns its existing output. Any failure after the
// project was marked processing puts it back to pending.
func (s *Service) Generate(ctx context.Context, actorID, id string) (projects.Project, error) {
	if s.generator == nil || s.objects == nil {
		return projects.Project{}, newError(ReasonUnavailable, "portrait generation is not configured", nil)
	}
	p, err := s.loadOwned(ctx, actorID, id)
	if err != nil {
		return p, err
	}

	switch {
	case p.PaymentStatus != projects.PaymentPaid:
		return p, newError(ReasonPaymentRequired, "payment required before generation", nil)
	case p.Status == projects.StatusProcessing:
		return p, newError(ReasonInProgress, "a generation is already running for this project", nil)
	case p.Status == projects.StatusCompleted && p.OutputImageURL != nil && *p.OutputImageURL != "":
		return p, nil
	case p.InputImageURL == "":
		return p, newError(ReasonInvalidInput, "project has no source image", nil)
	}

	ok, err := s.store.TransitionStatus(ctx, p.ID, p.Status, projects.StatusProcessing)
	if err != nil {
		return p, newError(ReasonStoreFailure, "failed to mark project processing", err)
	}
	if !ok {
		return p, newError(ReasonInProgress, "project status changed concurrently", nil)
	}

	log := s.logger.With("project_id", p.ID)
	done, err := s.generate(ctx, p)
	if err != nil {
		log.ErrorContext(ctx, "portrait generation failed", "error", err)
		s.rollback(ctx, log, p.ID)
		return p, err
	}
	log.InfoContext(ctx, "portrait generated")
	return done, nil
}

// rollback puts a failed generation back to pending. It outlives the
// request so a client disconnect cannot leave the project processing.
func (s *Service) rollback(ctx context.Context, log *slog.Logger, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if _, err := s.store.TransitionStatus(ctx, id, projects.StatusProcessing, projects.StatusPending); err != nil {
		log.ErrorContext(ctx, "failed to roll back project status", "error", err)
	}
}

func (s *Service) generate(ctx context.Context, p projects.Project) (projects.Project, error) {
	prompt := s.defaultPrompt
	if p.Prompt != nil && strings.TrimSpace(*p.Prompt) != "" {
		prompt = *p.Prompt
	}

	outputURL, err := s.generator.Generate(ctx, prompt, p.InputImageURL)
	if err != nil {
		return p, newError(ReasonGenerationFailed, "image generation failed", err)
	}

	body, contentType, err := s.fetch(ctx, outputURL)
	if err != nil {
		return p, newError(ReasonGenerationFailed, "failed to download generated image", err)
	}

	if err := s.objects.EnsureBucket(ctx, s.outputBucket); err != nil {
		return p, newError(ReasonStorageFailure, "failed to prepare output bucket", err)
	}
	ext := ResolveExtension("output."+path.Base(contentType), contentType)
	publicURL, err := s.objects.Upload(ctx, s.outputBucket, "outputs/"+uuid.NewString()+"."+ext, body, contentType)
	if err != nil {
		return p, newError(ReasonStorageFailure, "failed to upload generated image", err)
	}

	done, err := s.store.Complete(ctx, p.ID, publicURL)
	if err != nil {
		return p, newError(ReasonStoreFailure, "failed to save generated image", err)
	}
	return done, nil
}

func (s *Service) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOutputBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(body) > maxOutputBytes {
		return nil, "", errOutputTooLarge
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return body, contentType, nil
}

// Delete removes a project and its stored images. Image removal failures
// are returned as warnings; the project row is deleted regardless.
func (s *Service) Delete(ctx context.Context, actorID, id string) ([]string, error) {
	p, err := s.loadOwned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	var warnings []string
	if s.objects != nil {
		if key, ok := storage.KeyFromPublicURL(p.InputImageURL, s.inputBucket); ok {
			if err := s.objects.Remove(ctx, s.inputBucket, key); err != nil {
				s.logger.ErrorContext(ctx, "input image removal failed", "project_id", p.ID, "error", err)
				warnings = append(warnings, err.Error())
			}
		}
		if p.OutputImageURL != nil {
			if key, ok := storage.KeyFromPublicURL(*p.OutputImageURL, s.outputBucket); ok {
				if err := s.objects.Remove(ctx, s.outputBucket, key); err != nil {
					s.logger.ErrorContext(ctx, "output image removal failed", "project_id", p.ID, "error", err)
					warnings = append(warnings, err.Error())
				}
			}
		}
	}

	if err := s.store.Delete(ctx, p.ID); err != nil {
		return warnings, newError(ReasonStoreFailure, "failed to delete project", err)
	}
	return warnings, nil
}

func (s *Service) removeObject(ctx context.Context, bucket, key string) {
	if err := s.objects.Remove(ctx, bucket, key); err != nil {
		s.logger.ErrorContext(ctx, "failed to clean up uploaded image", "bucket", bucket, "key", key, "error", err)
	}
}
