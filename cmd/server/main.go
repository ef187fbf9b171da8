package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"speech-eval-toolkit/internal/apigateway"
	"speech-eval-toolkit/internal/auth"
	"speech-eval-toolkit/internal/config"
	"speech-eval-toolkit/internal/configmanagement"
	"speech-eval-toolkit/internal/coreengine/evaluationengine"
	"speech-eval-toolkit/internal/coreengine/highlight"
	"speech-eval-toolkit/internal/coreengine/vendoradapters"
	"speech-eval-toolkit/internal/customspeech"
	"speech-eval-toolkit/internal/datastore"
	"speech-eval-toolkit/internal/jobmanagement"
	"speech-eval-toolkit/internal/objectstore"
	"speech-eval-toolkit/internal/speechworkflow"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a TOML or YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(cfg.Server.Mode)

	auth.LoadAdminCredentials(cfg.Admin)

	if err := datastore.InitDB(cfg.Database.Driver, cfg.Database.DSN); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer datastore.DB.Close()
	if err := datastore.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	var store objectstore.Store
	if cfg.MinioEnabled() {
		mc, err := objectstore.NewMinioClient(context.Background(), cfg.Minio)
		if err != nil {
			log.Fatalf("Failed to initialize MinIO client: %v", err)
		}
		store = mc
	} else {
		log.Println("WARNING: MinIO is not configured. Objects are kept in memory and lost on restart.")
		store = objectstore.NewMemoryStore()
	}

	var speech *customspeech.Client
	if cfg.SpeechEnabled() {
		speech = customspeech.NewClient(cfg.Speech.Endpoint, cfg.Speech.Key)
		speech.APIVersion = cfg.Speech.APIVersion
		log.Printf("Speech platform client ready for %s (%s).", cfg.Speech.Endpoint, cfg.Speech.APIVersion)
	}

	vendoradapters.InitAdapterRegistry(cfg.Speech, cfg.Google)

	style, err := highlight.StyleByName(cfg.Scoring.Style)
	if err != nil {
		log.Fatalf("Invalid scoring style: %v", err)
	}
	comparator := evaluationengine.NewComparator(style)
	comparator.Workers = cfg.Scoring.Workers
	comparator.AutoJunk = cfg.Scoring.AutoJunk

	router := apigateway.SetupRouter(apigateway.Handlers{
		Config: configmanagement.NewHandlers(store),
		Jobs:   jobmanagement.NewHandlers(jobmanagement.NewJobService(comparator), store, speech),
		Workflow: speechworkflow.NewHandlers(
			speech,
			store,
			cfg.Minio.URLExpiry.Duration,
			cfg.Speech.PollInterval.Duration,
			cfg.Speech.Locale,
		),
	})

	log.Printf("Starting server on :%s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
