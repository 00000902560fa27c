package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataFileListSplitsAndTrims(t *testing.T) {
	cfg := &Config{DataFiles: " ./data/a.xml, ./data/b.xml ,,./data/c.xml"}
	assert.Equal(t,
		[]string{"./data/a.xml", "./data/b.xml", "./data/c.xml"},
		cfg.DataFileList())
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "localhost",
		DBPort:     5432,
		DBUser:     "hmdb",
		DBPassword: "secret",
		DBName:     "metabolites",
	}
	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "dbname=metabolites")
}
