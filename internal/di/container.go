package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/ateliedecor/api/internal/platform/config"
	"github.com/ateliedecor/api/internal/platform/events"
	pfirestore "github.com/ateliedecor/api/internal/platform/firestore"
	"github.com/ateliedecor/api/internal/platform/imaging"
	"github.com/ateliedecor/api/internal/platform/sanitize"
	platformstorage "github.com/ateliedecor/api/internal/platform/storage"
	"github.com/ateliedecor/api/internal/repositories"
	firestoreRepo "github.com/ateliedecor/api/internal/repositories/firestore"
	"github.com/ateliedecor/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Draft   services.DraftService
	Match   services.ColorMatchService
	Images  services.ImageAssignmentService
	Catalog services.CatalogService
	System  services.SystemService
}

// Deps carries the externally managed clients the container wires together.
// The caller owns their lifecycle.
type Deps struct {
	Firestore *pfirestore.Provider
	Storage   *gcs.Client
	// EventTopic enables catalog update notifications when non-nil.
	EventTopic *pubsub.Topic
	Logger     *zap.Logger
	Build      services.BuildInfo
	// HealthChecks feed the readiness probe. At least one is required.
	HealthChecks []repositories.DependencyCheck
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config   config.Config
	Registry repositories.Registry
	Services Services
}

// NewContainer assembles repositories and services on top of the provided clients.
func NewContainer(ctx context.Context, cfg config.Config, deps Deps) (*Container, error) {
	if deps.Firestore == nil {
		return nil, errors.New("di: firestore provider is required")
	}
	if deps.Storage == nil {
		return nil, errors.New("di: storage client is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	productRepo, err := firestoreRepo.NewProductRepository(deps.Firestore)
	if err != nil {
		return nil, fmt.Errorf("build product repository: %w", err)
	}
	categoryRepo, err := firestoreRepo.NewCategoryRepository(deps.Firestore)
	if err != nil {
		return nil, fmt.Errorf("build category repository: %w", err)
	}
	healthRepo, err := repositories.NewDependencyHealthRepository(deps.HealthChecks)
	if err != nil {
		return nil, fmt.Errorf("build health repository: %w", err)
	}
	registry, err := repositories.NewRegistry(productRepo, categoryRepo, healthRepo)
	if err != nil {
		return nil, fmt.Errorf("build repository registry: %w", err)
	}

	uploader, err := platformstorage.NewUploader(platformstorage.UploaderDeps{
		Client:        deps.Storage,
		Bucket:        cfg.Storage.CatalogBucket,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		Clock:         time.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("build uploader: %w", err)
	}

	matchSvc, err := services.NewColorMatchService(services.ColorMatchServiceDeps{
		Extractor: imaging.NewExtractor(),
		Threshold: cfg.Matching.ColorDistanceThreshold,
		Logger:    zapEventLogger(logger.Named("color_match")),
	})
	if err != nil {
		return nil, fmt.Errorf("build color match service: %w", err)
	}

	var publisher services.CatalogEventPublisher
	if deps.EventTopic != nil {
		pub, err := events.NewPubSubCatalogPublisher(deps.EventTopic)
		if err != nil {
			return nil, fmt.Errorf("build catalog publisher: %w", err)
		}
		publisher = pub
	}

	draftSvc, err := services.NewDraftService(services.DraftServiceDeps{
		Products:  registry.Products(),
		Events:    publisher,
		Sanitizer: sanitize.NewTextSanitizer(),
		Clock:     time.Now,
		Logger:    zapEventLogger(logger.Named("draft")),
	})
	if err != nil {
		return nil, fmt.Errorf("build draft service: %w", err)
	}

	imageSvc, err := services.NewImageAssignmentService(services.ImageAssignmentServiceDeps{
		Draft:       draftSvc,
		Matcher:     matchSvc,
		Uploads:     uploader,
		Logger:      zapEventLogger(logger.Named("images")),
		Concurrency: cfg.Matching.UploadConcurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("build image assignment service: %w", err)
	}

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products:   registry.Products(),
		Categories: registry.Categories(),
		Logger:     zapEventLogger(logger.Named("catalog")),
	})
	if err != nil {
		return nil, fmt.Errorf("build catalog service: %w", err)
	}

	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: registry.Health(),
		Clock:            time.Now,
		Build:            deps.Build,
	})
	if err != nil {
		return nil, fmt.Errorf("build system service: %w", err)
	}

	return &Container{
		Config:   cfg,
		Registry: registry,
		Services: Services{
			Draft:   draftSvc,
			Match:   matchSvc,
			Images:  imageSvc,
			Catalog: catalogSvc,
			System:  systemSvc,
		},
	}, nil
}

func zapEventLogger(logger *zap.Logger) func(context.Context, string, map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug("service log", zFields...)
	}
}
