package main

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"metabo-hand/config"
	"metabo-hand/ingest"
	"metabo-hand/search"
)

var ingestRunsCounter prometheus.Counter

func init() {
	ingestRunsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_runs_total",
			Help: "Total number of completed ingest runs.",
		},
	)
	prometheus.MustRegister(ingestRunsCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to metabolite database.")

	// Schema anlegen bzw. verifizieren
	schema := ingest.NewSchemaManager(db, logging)
	if err := schema.EnsureSchema(context.Background()); err != nil {
		logging.Fatal("Schema migration failed", zap.Error(err))
	}

	// Setup Services
	ingestService := ingest.NewService(cfg, db, logging)
	indexBuilder := search.NewIndexBuilder(db, logging)
	queryService := search.NewService(db, logging, cfg.QueryLimit)

	// Import und Reindex laufen nie parallel; ein laufender Import blockiert
	// weitere Trigger.
	var ingestRunning atomic.Bool
	runIngest := func(ctx context.Context) {
		if !ingestRunning.CompareAndSwap(false, true) {
			logging.Warn("Ingest already running, trigger ignored.")
			return
		}
		defer ingestRunning.Store(false)

		reports := ingestService.RunAll(ctx)
		if err := indexBuilder.Rebuild(ctx); err != nil {
			logging.Error("Search index rebuild failed", zap.Error(err))
			return
		}
		ingestRunsCounter.Inc()
		logging.Info("Ingest run completed", zap.Int("files", len(reports)))
	}

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupMetaboliteRoutes(router, queryService, logging)
	setupQueryRoutes(router, queryService, logging)
	setupIngestRoutes(router, runIngest)

	// Setup Cron
	if cfg.CronSchedule != "" {
		cronScheduler := cron.New()
		cronScheduler.AddFunc(cfg.CronSchedule, func() {
			logging.Info("Running scheduled ingest job...")
			runIngest(context.Background())
		})
		cronScheduler.Start()
	}

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupMetaboliteRoutes(router *gin.Engine, qs *search.Service, log *zap.Logger) {
	rg := router.Group("/metabolites")

	rg.GET("/:hmdb_id", func(c *gin.Context) {
		m, err := qs.ByHMDBID(c.Request.Context(), c.Param("hmdb_id"))
		if err != nil {
			log.Error("Lookup by HMDB ID failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if m == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "metabolite not found"})
			return
		}
		c.JSON(http.StatusOK, m)
	})

	rg.GET("/:hmdb_id/properties", func(c *gin.Context) {
		props, err := qs.PropertiesFor(c.Request.Context(), c.Param("hmdb_id"))
		if err != nil {
			log.Error("Predicted property lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, props)
	})

	rg.GET("/:hmdb_id/concentrations", func(c *gin.Context) {
		concs, err := qs.ConcentrationsFor(c.Request.Context(), c.Param("hmdb_id"), c.Query("type"))
		if err != nil {
			log.Error("Concentration lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, concs)
	})

	rg.GET("/:hmdb_id/proteins", func(c *gin.Context) {
		prots, err := qs.ProteinsFor(c.Request.Context(), c.Param("hmdb_id"))
		if err != nil {
			log.Error("Protein lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, prots)
	})
}

func setupQueryRoutes(router *gin.Engine, qs *search.Service, log *zap.Logger) {
	type queryFunc func(ctx context.Context, term string, limit int) ([]search.Hit, error)

	handle := func(name string, fn queryFunc) gin.HandlerFunc {
		return func(c *gin.Context) {
			term := c.Query("term")
			if term == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "missing term parameter"})
				return
			}
			limit, _ := strconv.Atoi(c.Query("limit"))

			hits, err := fn(c.Request.Context(), term, limit)
			if err != nil {
				log.Error("Query failed", zap.String("kind", name), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
				return
			}
			c.JSON(http.StatusOK, hits)
		}
	}

	rg := router.Group("/query")
	rg.GET("/name", handle("name", qs.ByName))
	rg.GET("/disease", handle("disease", qs.ByDisease))
	rg.GET("/pathway", handle("pathway", qs.ByPathway))
	rg.GET("/biofluid", handle("biofluid", qs.ByBiofluid))

	router.GET("/search", handle("fulltext", qs.FullTextSearch))
}

func setupIngestRoutes(router *gin.Engine, runIngest func(ctx context.Context)) {
	router.POST("/ingest/run", func(c *gin.Context) {
		go runIngest(context.Background())
		c.JSON(http.StatusAccepted, gin.H{"status": "ingest started"})
	})
}
