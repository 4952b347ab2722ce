package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID":    "decor-dev",
		"API_STORAGE_CATALOG_BUCKET": "decor-catalog-dev",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Environment != "local" {
		t.Errorf("expected default environment local, got %s", cfg.Environment)
	}
	if cfg.Version != "dev" {
		t.Errorf("expected default version dev, got %s", cfg.Version)
	}
	if cfg.Firestore.ProjectID != "decor-dev" {
		t.Errorf("expected firestore project to default to firebase project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Events.ProjectID != "decor-dev" {
		t.Errorf("expected events project to default to firebase project, got %s", cfg.Events.ProjectID)
	}
	if cfg.Events.TopicID != defaultEventsTopic {
		t.Errorf("expected default events topic, got %s", cfg.Events.TopicID)
	}
	if !cfg.Events.Enabled {
		t.Error("expected events enabled by default")
	}
	if cfg.Matching.ColorDistanceThreshold != defaultColorThreshold {
		t.Errorf("unexpected default color threshold: %v", cfg.Matching.ColorDistanceThreshold)
	}
	if cfg.Matching.UploadConcurrency != defaultUploadConcurrency {
		t.Errorf("unexpected default upload concurrency: %d", cfg.Matching.UploadConcurrency)
	}
	if cfg.RateLimits.DefaultPerMinute != 120 {
		t.Errorf("unexpected default rate limit: %d", cfg.RateLimits.DefaultPerMinute)
	}
	if cfg.RateLimits.MaxUploadBytes != defaultRateLimitUploadSize {
		t.Errorf("unexpected default max upload size: %d", cfg.RateLimits.MaxUploadBytes)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"API_ENVIRONMENT":                 "Prod",
		"API_VERSION":                     "2026.03.1",
		"API_SERVER_PORT":                 "9090",
		"API_SERVER_READ_TIMEOUT":         "20s",
		"API_SERVER_WRITE_TIMEOUT":        "25s",
		"API_SERVER_IDLE_TIMEOUT":         "2m",
		"API_FIREBASE_PROJECT_ID":         "decor-prod",
		"API_FIRESTORE_PROJECT_ID":        "decor-fire",
		"API_STORAGE_CATALOG_BUCKET":      "catalog-prod",
		"API_STORAGE_PUBLIC_BASE_URL":     "https://cdn.example.com",
		"API_STORAGE_SIGNER_KEY_JSON":     "secret://storage/signer",
		"API_EVENTS_PROJECT_ID":           "decor-events",
		"API_EVENTS_TOPIC_ID":             "catalog-updates",
		"API_MATCHING_COLOR_THRESHOLD":    "60.5",
		"API_MATCHING_UPLOAD_CONCURRENCY": "8",
		"API_RATELIMIT_DEFAULT_PER_MIN":   "150",
		"API_RATELIMIT_AUTH_PER_MIN":      "300",
		"API_RATELIMIT_MAX_UPLOAD_BYTES":  "5242880",
	}

	secrets := map[string]string{
		"secret://storage/signer": `{"client_email":"sa@example.com"}`,
	}

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := secrets[ref]; ok {
			return v, nil
		}
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Environment != "prod" {
		t.Errorf("expected lowercased environment prod, got %s", cfg.Environment)
	}
	if cfg.Version != "2026.03.1" {
		t.Errorf("unexpected version %s", cfg.Version)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("unexpected idle timeout: %s", cfg.Server.IdleTimeout)
	}
	if cfg.Firestore.ProjectID != "decor-fire" {
		t.Errorf("unexpected firestore project %s", cfg.Firestore.ProjectID)
	}
	if cfg.Storage.PublicBaseURL != "https://cdn.example.com" {
		t.Errorf("unexpected public base url %s", cfg.Storage.PublicBaseURL)
	}
	if cfg.Storage.SignerKeyJSON != `{"client_email":"sa@example.com"}` {
		t.Errorf("expected resolved signer key, got %s", cfg.Storage.SignerKeyJSON)
	}
	if cfg.Events.ProjectID != "decor-events" || cfg.Events.TopicID != "catalog-updates" {
		t.Errorf("unexpected events config %+v", cfg.Events)
	}
	if cfg.Matching.ColorDistanceThreshold != 60.5 {
		t.Errorf("unexpected color threshold %v", cfg.Matching.ColorDistanceThreshold)
	}
	if cfg.Matching.UploadConcurrency != 8 {
		t.Errorf("unexpected upload concurrency %d", cfg.Matching.UploadConcurrency)
	}
	if cfg.RateLimits.AuthenticatedPerMinute != 300 {
		t.Errorf("unexpected auth rate limit %d", cfg.RateLimits.AuthenticatedPerMinute)
	}
	if cfg.RateLimits.MaxUploadBytes != 5242880 {
		t.Errorf("unexpected max upload bytes %d", cfg.RateLimits.MaxUploadBytes)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "API_SERVER_PORT=7070\nAPI_FIREBASE_PROJECT_ID=decor-dot\nAPI_STORAGE_CATALOG_BUCKET=catalog-dot\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write dotenv file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(envPath), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from dotenv 7070, got %s", cfg.Server.Port)
	}
	if cfg.Firebase.ProjectID != "decor-dot" {
		t.Errorf("expected firebase project from dotenv, got %s", cfg.Firebase.ProjectID)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := validation.Fields()
	found := false
	for _, field := range fields {
		if field == "Storage.CatalogBucket" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Storage.CatalogBucket in %v", fields)
	}
}

func TestLoadRejectsNonPositiveThreshold(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID":      "decor-dev",
		"API_STORAGE_CATALOG_BUCKET":   "catalog",
		"API_MATCHING_COLOR_THRESHOLD": "-1",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error for negative threshold")
	}
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

func TestLoadSecretResolverError(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID":     "decor-dev",
		"API_STORAGE_CATALOG_BUCKET":  "catalog",
		"API_STORAGE_SIGNER_KEY_JSON": "secret://missing",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected secret resolution error, got nil")
	}
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %T", err)
	}
	if secretErr.Ref != "secret://missing" {
		t.Errorf("unexpected secret ref %s", secretErr.Ref)
	}
}

func TestEnvironmentValuesMergesSources(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "API_FIREBASE_PROJECT_ID=dot-project\nAPI_SECRET_FALLBACK_FILE=.dot.local\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	t.Setenv("API_FIREBASE_PROJECT_ID", "os-project")
	t.Setenv("API_SECRET_PROJECT_IDS", "prod=project-prod")

	overrides := map[string]string{
		"API_FIREBASE_PROJECT_ID": "override-project",
		"API_SECRET_VERSION_PINS": "secret://storage/signer=5",
	}

	values, err := EnvironmentValues(WithEnvFile(envPath), WithEnvMap(overrides))
	if err != nil {
		t.Fatalf("EnvironmentValues returned error: %v", err)
	}

	if got := values["API_FIREBASE_PROJECT_ID"]; got != "override-project" {
		t.Fatalf("expected override project, got %s", got)
	}
	if got := values["API_SECRET_FALLBACK_FILE"]; got != ".dot.local" {
		t.Fatalf("expected dotenv fallback file, got %s", got)
	}
	if got := values["API_SECRET_PROJECT_IDS"]; got != "prod=project-prod" {
		t.Fatalf("expected system env project map, got %s", got)
	}
	if got := values["API_SECRET_VERSION_PINS"]; got != "secret://storage/signer=5" {
		t.Fatalf("expected override version pin, got %s", got)
	}
}

func TestLoadMissingRequiredSecrets(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID":    "decor-dev",
		"API_STORAGE_CATALOG_BUCKET": "catalog",
	}

	_, err := Load(context.Background(),
		WithEnvMap(env),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithRequiredSecrets("Storage.SignerKeyJSON"),
	)
	if err == nil {
		t.Fatal("expected missing secrets error, got nil")
	}
	var missing *MissingSecretsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSecretsError, got %T", err)
	}
	expectedRedacted := redactSecretName("Storage.SignerKeyJSON")
	if got := missing.RedactedNames(); len(got) != 1 || got[0] != expectedRedacted {
		t.Fatalf("unexpected redacted names %v", got)
	}
}

func TestLoadMissingRequiredSecretsPanic(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID":    "decor-dev",
		"API_STORAGE_CATALOG_BUCKET": "catalog",
	}

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected panic when required secrets missing")
		}
		missing, ok := rec.(*MissingSecretsError)
		if !ok {
			t.Fatalf("expected MissingSecretsError panic, got %T", rec)
		}
		if len(missing.Names()) != 1 || missing.Names()[0] != "Storage.SignerKeyJSON" {
			t.Fatalf("unexpected missing secrets %v", missing.Names())
		}
	}()

	Load(context.Background(),
		WithEnvMap(env),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithRequiredSecrets("Storage.SignerKeyJSON"),
		WithPanicOnMissingSecrets(),
	)
}

func TestLoadSupportsLegacySecretScheme(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID":     "decor-dev",
		"API_STORAGE_CATALOG_BUCKET":  "catalog",
		"API_STORAGE_SIGNER_KEY_JSON": "sm://storage/signer",
	}

	secrets := map[string]string{
		"secret://storage/signer": "legacy-secret",
	}

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := secrets[ref]; ok {
			return v, nil
		}
		return "", &SecretError{Ref: ref, Err: errors.New("not found")}
	})

	cfg, err := Load(context.Background(),
		WithEnvMap(env),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithSecretResolver(resolver),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Storage.SignerKeyJSON != "legacy-secret" {
		t.Fatalf("expected legacy secret, got %s", cfg.Storage.SignerKeyJSON)
	}
}
