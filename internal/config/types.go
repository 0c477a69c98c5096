package config

import (
	"errors"
	"fmt"
	"strings"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Schedule ScheduleConfig `json:"schedule"`

	// Digest controls the proactive morning post of each chat's common
	// free time. Omitted means disabled.
	Digest *DigestConfig `json:"digest,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`

	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`

	// SendRatePerSec caps outgoing messages; 0 uses the default.
	SendRatePerSec int `json:"send_rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string            `json:"level,omitempty"`
	Console bool              `json:"console"`
	File    LoggingFileConfig `json:"file,omitempty"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type StorageConfig struct {
	Path string `json:"path"`

	// BusyTimeout is a Go duration string (sqlite busy_timeout pragma).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// ScheduleConfig shapes the free-time computation.
//
// WorkdayStart/WorkdayEnd are HH:MM literals; defaults 09:00 and 20:00.
// HorizonDays is the default /find_free_time span; default 7.
// Keywords localize the relative date words (default today/tomorrow/
// overmorrow).
type ScheduleConfig struct {
	WorkdayStart string          `json:"workday_start,omitempty"`
	WorkdayEnd   string          `json:"workday_end,omitempty"`
	HorizonDays  int             `json:"horizon_days,omitempty"`
	Keywords     *KeywordsConfig `json:"keywords,omitempty"`
}

type KeywordsConfig struct {
	Today      string `json:"today"`
	Tomorrow   string `json:"tomorrow"`
	Overmorrow string `json:"overmorrow"`
}

type DigestConfig struct {
	Enabled bool `json:"enabled"`

	// Spec is a robfig/cron expression; default "0 8 * * *".
	Spec string `json:"spec,omitempty"`

	// Days is the digest horizon; default 1 (today only).
	Days int `json:"days,omitempty"`
}

// Validate rejects configs that cannot produce a working bot. Field
// normalization (defaults) happens at the consumers, not here.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	if c.Schedule.HorizonDays < 0 {
		return fmt.Errorf("schedule.horizon_days must be >= 0, got %d", c.Schedule.HorizonDays)
	}
	return nil
}
