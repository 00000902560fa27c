package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"4243"`

	// Pfade zu den HMDB-XML-Exporten, kommasepariert.
	DataFiles string `envconfig:"DATA_FILES" default:"./data/hmdb_metabolites.xml,./data/hmdb_proteins.xml"`

	// Batch-Größe für die Upsert-Transaktionen beim Import.
	IngestBatchSize int `envconfig:"INGEST_BATCH_SIZE" default:"500"`
	// Maximale Anzahl parallel verarbeiteter XML-Dateien.
	IngestWorkers int `envconfig:"INGEST_WORKERS" default:"4"`

	// Optionaler Zeitplan für Import + Reindex (leer = kein Cron-Job).
	CronSchedule string `envconfig:"CRON_SCHEDULE" default:""`

	QueryLimit int `envconfig:"QUERY_LIMIT" default:"5"`

	APISecretKey string `envconfig:"API_SECRET_KEY"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// DataFileList zerlegt DataFiles in einzelne Pfade.
func (c *Config) DataFileList() []string {
	var files []string
	for _, f := range strings.Split(c.DataFiles, ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	return files
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
