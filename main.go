package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/gfurlani/fotocatalogo/config"
	"github.com/gfurlani/fotocatalogo/database"
	"github.com/gfurlani/fotocatalogo/handlers"
	"github.com/gfurlani/fotocatalogo/inference"
	"github.com/gfurlani/fotocatalogo/llm"
	"github.com/gfurlani/fotocatalogo/media"
	"github.com/gfurlani/fotocatalogo/metadata"
	"github.com/gfurlani/fotocatalogo/modelrepo"
	"github.com/gfurlani/fotocatalogo/pipeline"
	"github.com/gfurlani/fotocatalogo/repository"
	"github.com/gfurlani/fotocatalogo/utils"
	"github.com/gfurlani/fotocatalogo/workers"
)

const appVersion = "1.2.0"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}

	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Paths.Database), 0755); err != nil {
		log.Fatalf("FATAL: Failed to create database directory: %v", err)
	}

	db, err := database.InitDB(cfg.Paths.Database)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize catalog database: %v", err)
	}
	repo := repository.NewImageRepository(db)

	extractor := metadata.NewExtractor()
	defer extractor.Close()

	if err := ensureModels(&cfg); err != nil {
		log.Printf("modelrepo: model fetch incomplete: %v", err)
	}

	profiles := media.LoadProfiles(&cfg)
	bank := inference.NewBank(&cfg, profiles)
	defer bank.Close()
	log.Printf("inference: enabled backends: %v", bank.EnabledProfiles())

	llmEnabled := cfg.Embedding.Enabled &&
		cfg.Embedding.Models.LLMVision.Enabled &&
		cfg.InitializationMode != config.InitBioclipOnly

	var generator *llm.Generator
	if llmEnabled {
		client := llm.NewClient(cfg.Embedding.Models.LLMVision)
		generator = llm.NewGenerator(client, cfg.Embedding.Models.LLMVision.AutoImport)
		defer generator.Close()

		warmCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		client.Warmup(warmCtx)
		cancel()
	}

	pipe := &pipeline.Pipeline{
		Decoder:    media.NewDecoder(),
		Extractor:  extractor,
		Bank:       bank,
		Hash:       utils.FileMD5,
		Profiles:   profiles,
		LLMEnabled: llmEnabled,
		AutoImport: cfg.Embedding.Models.LLMVision.AutoImport,
		Version:    appVersion,
	}
	if generator != nil {
		pipe.Generator = generator
	}

	worker := workers.NewEnrichWorker(&cfg, repo, pipe)
	worker.ReleaseCache = func() { debug.FreeOSMemory() }

	control := &handlers.ControlHandler{Cfg: &cfg, Worker: worker, Repo: repo}
	export := &handlers.ExportHandler{Repo: repo}
	records := &handlers.RecordHandler{Repo: repo}

	r := chi.NewRouter()
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", control.GetStatus)
		r.Post("/run", control.StartRun)
		r.Post("/pause", control.PauseRun)
		r.Post("/resume", control.ResumeRun)
		r.Post("/stop", control.StopRun)
		r.Post("/export", export.Export)
		r.Get("/records/{filename}", records.GetRecord)
		r.Patch("/records/{filename}", records.UpdateRecord)
	})

	log.Printf("fotocatalogo %s listening on %s (mode %s, init %s)",
		appVersion, cfg.ListenAddr, cfg.ProcessingMode, cfg.InitializationMode)
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		log.Fatalf("FATAL: Server error: %v", err)
	}
}

// ensureModels pulls missing model assets from the configured mirror. With
// no mirror the models directory is expected to be provisioned already.
func ensureModels(cfg *config.Config) error {
	if cfg.ModelsRepository.HuggingfaceRepo == "" {
		return nil
	}
	fetcher := modelrepo.NewFetcher(cfg.ModelsRepository)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	m := cfg.Embedding.Models
	wantVision := cfg.Embedding.Enabled && cfg.InitializationMode == config.InitFull
	wantBioclip := cfg.Embedding.Enabled &&
		(cfg.InitializationMode == config.InitFull || cfg.InitializationMode == config.InitBioclipOnly)

	if wantVision && m.Clip.Enabled {
		if err := fetcher.Ensure(ctx, "clip", "visual.onnx"); err != nil {
			return err
		}
	}
	if wantVision && m.Dinov2.Enabled {
		if err := fetcher.Ensure(ctx, "dinov2", "model.onnx"); err != nil {
			return err
		}
	}
	if wantBioclip && m.Bioclip.Enabled {
		if err := fetcher.Ensure(ctx, "bioclip", "visual.onnx", "species.txt", "text_embeddings.json"); err != nil {
			return err
		}
	}
	return nil
}
