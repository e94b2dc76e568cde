package config

import (
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/example/club-scheduler/internal/club"
	"github.com/example/club-scheduler/internal/crypto"
)

func setKey(t *testing.T) {
	t.Helper()
	key := make([]byte, crypto.KeySize)
	_, err := rand.Read(key)
	assert.NoError(t, err)
	t.Setenv("ENCRYPT_KEY", base64.StdEncoding.EncodeToString(key))
}

func TestFromEnvDefaults(t *testing.T) {
	setKey(t)

	cfg, err := FromEnv()
	assert.NoError(t, err)
	assert.Equal(t, 8, cfg.HorizonDays)
	assert.Equal(t, 7, cfg.TargetLeadDays)
	assert.Equal(t, 30*time.Second, cfg.CrawlInterval)
	assert.Equal(t, 30*time.Minute, cfg.AuthBackoff)
	assert.Equal(t, 10*time.Minute, cfg.CrawlBackoff)
	assert.Equal(t, 10*time.Minute, cfg.RestartBackoff)
	assert.Equal(t, 3*time.Hour, cfg.ReauthAfter)
	assert.Equal(t, time.Duration(0), cfg.HorizonPoll)
	assert.Equal(t, 55*time.Minute, cfg.DeadlineOffsets[club.ClassGym])
	assert.Equal(t, 835*time.Minute, cfg.DeadlineOffsets[club.ClassTennis])
	assert.Len(t, cfg.EncryptKey, crypto.KeySize)
}

func TestFromEnvOverrides(t *testing.T) {
	setKey(t)
	t.Setenv("HORIZON_POLL_MINUTES", "20")
	t.Setenv("CRAWL_INTERVAL_SECONDS", "10")
	t.Setenv("DEADLINE_OFFSETS", "gymClass=30, tennisClass=900")

	cfg, err := FromEnv()
	assert.NoError(t, err)
	assert.Equal(t, 20*time.Minute, cfg.HorizonPoll)
	assert.Equal(t, 10*time.Second, cfg.CrawlInterval)
	assert.Equal(t, 30*time.Minute, cfg.DeadlineOffsets[club.ClassGym])
	assert.Equal(t, 900*time.Minute, cfg.DeadlineOffsets[club.ClassTennis])
	assert.Equal(t, 55*time.Minute, cfg.DeadlineOffsets[club.ClassSwimming])
}

func TestFromEnvRequiresKey(t *testing.T) {
	t.Setenv("ENCRYPT_KEY", "")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("ENCRYPT_KEY", "not base64!!")
	_, err = FromEnv()
	assert.Error(t, err)

	t.Setenv("ENCRYPT_KEY", base64.StdEncoding.EncodeToString([]byte("short")))
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	setKey(t)

	t.Setenv("HORIZON_DAYS", "zero")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("HORIZON_DAYS", "8")
	t.Setenv("CRAWL_INTERVAL_SECONDS", "0")
	_, err = FromEnv()
	assert.Error(t, err)

	t.Setenv("CRAWL_INTERVAL_SECONDS", "30")
	t.Setenv("DEADLINE_OFFSETS", "gymClass")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestFromEnvDistinguishesParseAndRangeErrors(t *testing.T) {
	setKey(t)

	t.Setenv("AUTH_BACKOFF_MINUTES", "soon")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "invalid AUTH_BACKOFF_MINUTES")
	assert.ErrorContains(t, err, "invalid syntax")

	t.Setenv("AUTH_BACKOFF_MINUTES", "0")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "AUTH_BACKOFF_MINUTES must be >= 1")
}
