package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"metabo-hand/config"
	"metabo-hand/hmdb"
)

// Report fasst den Import einer Quelldatei zusammen.
type Report struct {
	File     string        `json:"file"`
	Stats    Stats         `json:"stats"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Service orchestriert den Import: pro Datei ein sequenzieller
// Parse-Extract-Write-Strang, Dateien untereinander parallel bis zum
// konfigurierten Worker-Limit. Echte Nebenläufigkeit existiert nur zwischen
// Dateien; die Transaktionsisolation der Datenbank serialisiert Zugriffe
// auf die gemeinsamen Join-Tabellen.
type Service struct {
	Config *config.Config
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewService erstellt eine neue Instanz des Import-Service.
func NewService(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{Config: cfg, DB: db, Logger: logger}
}

// RunAll importiert alle konfigurierten Dateien. Fehler einzelner Dateien
// brechen den Lauf nicht ab, sie stehen im jeweiligen Report.
func (s *Service) RunAll(ctx context.Context) []Report {
	files := s.Config.DataFileList()
	reports := make([]Report, len(files))

	workers := s.Config.IngestWorkers
	if workers <= 0 {
		workers = 4
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)

	for i, file := range files {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int, file string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			report, err := s.IngestFile(ctx, file)
			if err != nil {
				s.Logger.Error("Import der Datei fehlgeschlagen",
					zap.String("file", file), zap.Error(err))
				report.Error = err.Error()
			}
			reports[i] = report
		}(i, file)
	}

	wg.Wait()

	for _, r := range reports {
		s.Logger.Info("Import-Report",
			zap.String("file", r.File),
			zap.Int64("metabolites", r.Stats.Metabolites),
			zap.Int64("proteins", r.Stats.Proteins),
			zap.Int64("pathways", r.Stats.Pathways),
			zap.Int64("diseases", r.Stats.Diseases),
			zap.Int64("concentrations", r.Stats.Concentrations),
			zap.Int64("properties", r.Stats.Properties),
			zap.Int64("links", r.Stats.Links),
			zap.Int64("skipped", r.Stats.Skipped),
			zap.Int64("unresolved", r.Stats.Unresolved),
			zap.Duration("duration", r.Duration))
	}
	return reports
}

// IngestFile importiert eine einzelne Exportdatei. Der Report enthält auch
// bei einem Abbruch die Zähler der bereits committeten Batches.
func (s *Service) IngestFile(ctx context.Context, file string) (Report, error) {
	log := s.Logger.With(zap.String("file", file))
	start := time.Now()
	report := Report{File: file}

	f, err := os.Open(file)
	if err != nil {
		log.Warn("Datei nicht gefunden, wird übersprungen.", zap.Error(err))
		report.Duration = time.Since(start)
		return report, err
	}
	defer f.Close()

	log.Info("Starte Import.")
	writer := NewBatchWriter(s.DB, s.Logger, file, s.Config.IngestBatchSize)
	reader := hmdb.NewReader(f)

	for {
		if err := ctx.Err(); err != nil {
			report.Stats = writer.Stats()
			report.Duration = time.Since(start)
			return report, err
		}

		el, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Der Cursor des Streams ist nicht mehr fortsetzbar; bereits
			// committete Batches bleiben bestehen.
			parseFailureCounter.Inc()
			report.Stats = writer.Stats()
			report.Duration = time.Since(start)
			return report, err
		}

		if err := s.handleRecord(ctx, writer, el); err != nil {
			report.Stats = writer.Stats()
			report.Duration = time.Since(start)
			return report, err
		}
	}

	if err := writer.Close(ctx); err != nil {
		report.Stats = writer.Stats()
		report.Duration = time.Since(start)
		return report, err
	}

	report.Stats = writer.Stats()
	report.Duration = time.Since(start)
	log.Info("Import abgeschlossen.", zap.Duration("duration", report.Duration))
	return report, nil
}

func (s *Service) handleRecord(ctx context.Context, writer *BatchWriter, el *hmdb.Element) error {
	switch el.Tag {
	case "metabolite":
		rec, err := hmdb.ExtractMetabolite(el)
		if errors.Is(err, hmdb.ErrMissingAccession) {
			writer.Skip()
			return nil
		}
		if err != nil {
			return err
		}
		return writer.AddMetabolite(ctx, rec)
	case "protein":
		rec, err := hmdb.ExtractProtein(el)
		if errors.Is(err, hmdb.ErrMissingAccession) {
			writer.Skip()
			return nil
		}
		if err != nil {
			return err
		}
		return writer.AddProtein(ctx, rec)
	default:
		return fmt.Errorf("ingest: unexpected record tag %q", el.Tag)
	}
}
