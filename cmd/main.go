package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"healthkinator/internal/integrations/gemini"
	"healthkinator/internal/integrations/openai"
	"healthkinator/internal/integrations/paramstore"
	"healthkinator/internal/recorder"
	"healthkinator/internal/repository"
	"healthkinator/internal/session"
	"healthkinator/internal/speech"
	"healthkinator/internal/tui"
)

func main() {
	ctx := context.Background()

	// .env is optional, real env vars win.
	_ = godotenv.Load()

	log, closeLog := openLogger()
	defer closeLog()

	// ---- Stores ----
	store, err := buildStore(ctx)
	if err != nil {
		slog.Error("failed to create report store", "err", err)
		os.Exit(1)
	}

	rec, err := recorder.New(store)
	if err != nil {
		slog.Error("failed to create recorder", "err", err)
		os.Exit(1)
	}

	// ---- Backend ----
	gw, err := buildGateway(ctx)
	if err != nil {
		slog.Error("failed to create backend gateway", "err", err)
		os.Exit(1)
	}

	ctrl, err := session.New(gw, rec, session.WithLogger(log))
	if err != nil {
		slog.Error("failed to create session controller", "err", err)
		os.Exit(1)
	}

	// ---- Interface ----
	opts := []tui.Option{tui.WithLogger(log)}
	if os.Getenv("HEALTHKINATOR_SPEECH") == "1" {
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			opts = append(opts, tui.WithSpeech(speech.NewGeminiSynthesizer(key), speech.NopPlayer{}))
		}
	}
	model := tui.NewModel(ctrl, store, store, opts...)

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		slog.Error("interface exited with error", "err", err)
		os.Exit(1)
	}
}

// fullStore is what every persistence backend implements.
type fullStore interface {
	repository.ReportStore
	repository.ProfileStore
}

// buildStore picks the persistence backend. The local file store is the
// default and needs no configuration.
func buildStore(ctx context.Context) (fullStore, error) {
	switch strings.ToLower(os.Getenv("HEALTHKINATOR_STORE")) {
	case "", "file":
		dir, err := repository.DefaultStateDir()
		if err != nil {
			return nil, err
		}
		return repository.NewFileStore(dir)
	case "dynamodb":
		table := mustEnv("HEALTHKINATOR_TABLE")
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
		return repository.NewDynamoStore(awsdynamodb.NewFromConfig(cfg), table)
	case "postgres":
		dsn := mustEnv("HEALTHKINATOR_POSTGRES_DSN")
		return repository.OpenPostgresStore(ctx, dsn)
	default:
		slog.Error("unknown store backend", "store", os.Getenv("HEALTHKINATOR_STORE"))
		os.Exit(1)
		return nil, nil
	}
}

// buildGateway picks the model backend. Gemini is the default; its API key
// comes from the environment or, when PARAM_PREFIX is set, from SSM
// Parameter Store the first time a request goes out.
func buildGateway(ctx context.Context) (session.Gateway, error) {
	switch strings.ToLower(os.Getenv("HEALTHKINATOR_BACKEND")) {
	case "", "gemini":
		var opts []gemini.Option
		opts = append(opts, gemini.WithModel(os.Getenv("HEALTHKINATOR_MODEL")))
		if prefix := os.Getenv("PARAM_PREFIX"); prefix != "" {
			cfg, err := config.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, err
			}
			ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
			if err != nil {
				return nil, err
			}
			opts = append(opts, gemini.WithKeyParameter(ssmClient, prefix+"/gemini-api-key"))
		}
		return gemini.NewClient(os.Getenv("GEMINI_API_KEY"), opts...), nil
	case "openai":
		return openai.NewClient(mustEnv("OPENAI_API_KEY"), os.Getenv("HEALTHKINATOR_MODEL"))
	default:
		slog.Error("unknown model backend", "backend", os.Getenv("HEALTHKINATOR_BACKEND"))
		os.Exit(1)
		return nil, nil
	}
}

// openLogger sends structured logs to a file next to the saved reports.
// The terminal belongs to the interface, so nothing is written to stderr
// while it runs.
func openLogger() (*slog.Logger, func()) {
	dir, err := repository.DefaultStateDir()
	if err != nil {
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		slog.SetDefault(log)
		return log, func() {}
	}
	_ = os.MkdirAll(dir, 0o700)
	f, err := os.OpenFile(filepath.Join(dir, "healthkinator.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		slog.SetDefault(log)
		return log, func() {}
	}
	log := slog.New(slog.NewTextHandler(f, nil))
	slog.SetDefault(log)
	return log, func() { _ = f.Close() }
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}
