package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/timetable-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host: "db", Port: 5433, User: "sched", Password: "pw", Name: "timetable", SSLMode: "require",
	})
	assert.Equal(t, "host=db port=5433 user=sched password=pw dbname=timetable sslmode=require", dsn)
}
