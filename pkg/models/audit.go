package models

import "time"

// CommandEntry records a single remote command and its outcome.
type CommandEntry struct {
	ID           string    `json:"id"`
	Namespace    string    `json:"namespace"`
	Command      string    `json:"command"`
	Outcome      string    `json:"outcome"` // "ok", "transport", "envelope", "command"
	Message      string    `json:"message,omitempty"`
	RequestBody  string    `json:"request_body,omitempty"`
	ResponseBody string    `json:"response_body,omitempty"`
	LatencyMs    int64     `json:"latency_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditConfig controls the command journal.
type AuditConfig struct {
	Enabled       bool     `yaml:"enabled"`
	DBPath        string   `yaml:"db_path"`
	RetentionDays int      `yaml:"retention_days"`
	Include       []string `yaml:"include"`       // "requests", "responses"
	MaxBodySize   int      `yaml:"max_body_size"` // bytes
}

// AuditQueryOpts specifies filters for querying journal entries.
type AuditQueryOpts struct {
	Command string
	Outcome string
	Since   time.Time
	ID      string
	Limit   int
}

// AuditStat holds aggregate counts for a command/outcome combination.
type AuditStat struct {
	Command string
	Outcome string
	Count   int
}
