package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/kelseyhightower/envconfig"
)

const backupPrefix = "metabo-hand-"

// Config für das Datenbank-Backup; bewusst getrennt von der Service-Config,
// damit der Backup-Job ohne die Import-Umgebung laufen kann.
type Config struct {
	PostgresHost     string `envconfig:"POSTGRES_HOST" required:"true"`
	PostgresUser     string `envconfig:"POSTGRES_USER" required:"true"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	PostgresDB       string `envconfig:"POSTGRES_DB" required:"true"`
	Bucket           string `envconfig:"BACKUP_S3_BUCKET" required:"true"`
	Endpoint         string `envconfig:"BACKUP_S3_ENDPOINT" required:"true"`
	AccessKey        string `envconfig:"BACKUP_S3_ACCESS_KEY" required:"true"`
	SecretKey        string `envconfig:"BACKUP_S3_SECRET_KEY" required:"true"`
	Region           string `envconfig:"BACKUP_S3_REGION" required:"true"`
	KeepBackups      int    `envconfig:"KEEP_BACKUPS" default:"7"`
}

func main() {
	log.Println("Starte Backup der Metabolit-Datenbank...")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Fehler beim Laden der Konfiguration: %v", err)
	}

	ctx := context.Background()

	dump, err := dumpDatabase(cfg)
	if err != nil {
		log.Fatalf("Fehler beim Erstellen des DB-Dumps: %v", err)
	}
	log.Printf("Dump erstellt (%.2f MB komprimiert)", float64(len(dump))/1024/1024)

	client, err := newS3Client(ctx, cfg)
	if err != nil {
		log.Fatalf("Fehler beim Erstellen des S3-Clients: %v", err)
	}

	key := fmt.Sprintf("%s%s.sql.gz", backupPrefix, time.Now().UTC().Format("2006-01-02T15-04-05Z"))
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(dump),
	})
	if err != nil {
		log.Fatalf("Fehler beim Hochladen nach S3: %v", err)
	}
	log.Printf("Backup erfolgreich nach s3://%s/%s hochgeladen", cfg.Bucket, key)

	if err := rotateBackups(ctx, client, cfg); err != nil {
		log.Fatalf("Fehler bei der Rotation alter Backups: %v", err)
	}

	log.Println("Backup-Prozess erfolgreich abgeschlossen.")
}

func dumpDatabase(cfg Config) ([]byte, error) {
	cmd := exec.Command("pg_dump",
		"-h", cfg.PostgresHost,
		"-U", cfg.PostgresUser,
		"-d", cfg.PostgresDB,
		"-w", // Passwort kommt über PGPASSWORD
	)
	cmd.Env = append(os.Environ(), fmt.Sprintf("PGPASSWORD=%s", cfg.PostgresPassword))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := io.Copy(gz, stdout); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	if err := cmd.Wait(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{URL: cfg.Endpoint}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg), nil
}

// rotateBackups löscht die ältesten Backups mit unserem Präfix; fremde
// Objekte im Bucket bleiben unangetastet.
func rotateBackups(ctx context.Context, client *s3.Client, cfg Config) error {
	output, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(cfg.Bucket),
		Prefix: aws.String(backupPrefix),
	})
	if err != nil {
		return err
	}

	var backups []string
	modified := make(map[string]time.Time)
	for _, obj := range output.Contents {
		if !strings.HasSuffix(*obj.Key, ".sql.gz") {
			continue
		}
		backups = append(backups, *obj.Key)
		modified[*obj.Key] = *obj.LastModified
	}

	if len(backups) <= cfg.KeepBackups {
		log.Printf("Höchstens %d Backups vorhanden, keine Rotation nötig.", cfg.KeepBackups)
		return nil
	}

	sort.Slice(backups, func(i, j int) bool {
		return modified[backups[i]].After(modified[backups[j]])
	})

	for _, key := range backups[cfg.KeepBackups:] {
		log.Printf("Lösche altes Backup: %s", key)
		_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(cfg.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			log.Printf("Fehler beim Löschen von %s: %v", key, err)
		}
	}
	return nil
}
