package types

import "time"

// LayerStat is an optional per-layer timing reported by some runners.
type LayerStat struct {
	// example: encoder.block3
	Name string `json:"name" example:"encoder.block3"`
	// example: 1.25
	DurationMS float64 `json:"duration_ms" example:"1.25"`
	// example: 4194304
	OutputBytes int64 `json:"output_bytes,omitempty" example:"4194304"`
}

// ExecutionReport describes one execution. A fresh report is built per call;
// only the latest per model is retained.
type ExecutionReport struct {
	// example: midas-small.onnx
	ModelID string `json:"model_id" example:"midas-small.onnx"`
	// example: 8a0f5c52-3c0e-4ad7-a5a4-93c9f1f0b0c1
	WorkerID string `json:"worker_id" example:"8a0f5c52-3c0e-4ad7-a5a4-93c9f1f0b0c1"`
	// example: gpu_vendor
	Backend string `json:"backend" example:"gpu_vendor"`
	// example: 0.01
	PreprocessMS float64 `json:"preprocess_ms" example:"0.01"`
	// example: 12.5
	InferenceMS float64 `json:"inference_ms" example:"12.5"`
	// example: 0.02
	PostprocessMS float64 `json:"postprocess_ms" example:"0.02"`
	// example: 12.53
	TotalMS float64 `json:"total_ms" example:"12.53"`
	// example: true
	Success bool `json:"success" example:"true"`
	// Error message when Success is false.
	Error string `json:"error,omitempty"`
	// Optional per-layer statistics.
	LayerStats []LayerStat `json:"layer_stats,omitempty"`
	// Completion time.
	Timestamp time.Time `json:"timestamp"`
}

// WorkerStat is the per-worker line of ResourceStats.
type WorkerStat struct {
	// example: 8a0f5c52-3c0e-4ad7-a5a4-93c9f1f0b0c1
	ID string `json:"id" example:"8a0f5c52-3c0e-4ad7-a5a4-93c9f1f0b0c1"`
	// example: midas-small.onnx
	ModelID string `json:"model_id" example:"midas-small.onnx"`
	// example: depth
	ModelType string `json:"model_type" example:"depth"`
	// example: cpu_optimized
	Backend string `json:"backend" example:"cpu_optimized"`
	// example: false
	InUse bool `json:"in_use" example:"false"`
	// Whether this worker is the specialized cache entry for its model type.
	// example: true
	Specialized bool `json:"specialized" example:"true"`
	// example: 128
	EstMemoryMB int `json:"est_memory_mb" example:"128"`
	// Last use (unix seconds).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
	// example: 42
	Executions uint64 `json:"executions" example:"42"`
}

// ResourceStats summarizes pool resource consumption.
type ResourceStats struct {
	// example: 3
	ActiveWorkers int `json:"active_workers" example:"3"`
	// example: 1
	InUseWorkers int `json:"in_use_workers" example:"1"`
	// example: 448
	TotalMemoryMB int `json:"total_memory_mb" example:"448"`
	// Worker count ceiling that triggers reaping.
	// example: 10
	MaxWorkers int `json:"max_workers" example:"10"`
	// Memory ceiling (MB) that triggers reaping.
	// example: 1024
	MaxMemoryMB int `json:"max_memory_mb" example:"1024"`
	// Set while either ceiling is exceeded. Advisory only.
	// example: false
	OverBudget bool `json:"over_budget" example:"false"`
	// example: 5
	EvictionsTotal uint64 `json:"evictions_total" example:"5"`
	// Last reap (unix seconds), 0 if never.
	// example: 1700000000
	LastReap int64 `json:"last_reap_unix" example:"1700000000"`
	// Per-worker breakdown.
	Workers []WorkerStat `json:"workers"`
}

// ModelsResponse wraps the list returned by GET /models.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// ReportsResponse is returned by GET /reports.
type ReportsResponse struct {
	Reports map[string]ExecutionReport `json:"reports"`
}

// ReapResponse is returned by POST /reap.
type ReapResponse struct {
	// example: 2
	Evicted int `json:"evicted" example:"2"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: not found
	Error string `json:"error" example:"not found"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}
