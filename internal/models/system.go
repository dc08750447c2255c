package models

import "time"

// SystemMetrics is a point-in-time summary of request, cache and fee activity.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	AutoAssignRuns           uint64    `json:"auto_assign_runs"`
	AverageAutoAssignMs      float64   `json:"average_auto_assign_ms"`
	AssignmentsCreated       uint64    `json:"assignments_created"`
	PaymentsRecorded         uint64    `json:"payments_recorded"`
	ExportsFinished          uint64    `json:"exports_finished"`
	ExportsFailed            uint64    `json:"exports_failed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
