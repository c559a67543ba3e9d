// Package manager owns the lifecycle of inference workers: creation with
// backend resolution and CPU fallback, per-model-type reuse, execution with
// timing reports, and idle eviction under count or memory pressure.
// It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, capability getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: Worker handle, registry record, model metadata.
//   - errors.go: error values and helpers (IsUsedAfterDispose, IsConstructionFailed).
//   - helpers.go: memory estimation heuristics and safe loader calls.
//   - create.go: CreateWorker, construction with fallback, registration.
//   - specialized.go: one reusable worker per model type.
//   - release.go: Release, DisposeWorker, DisposeAll.
//   - execute.go: Execute and report retention.
//   - evict.go: the reaper (opportunistic and background).
//   - dispatch.go: delivery of disposals to the resource-owning goroutine.
//   - status_report.go: ResourceStats, PerformanceReports, Models.
//   - reports_persist.go: JSON persistence of the latest reports.
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: Prometheus collectors.
//
// Build tags and runtimes:
//
//   - In-process llama (GGUF): uses the go-llama.cpp loader. Enabled with
//     `-tags=llama`. Files: adapter_llama.go, llama_cgo.go (linker rpath hints).
//     A no-CGO stub exists when the tag is not set: adapter_llama_stub.go.
//
// Locking: mu guards the worker registry, model metadata, the specialized
// index and accounting. reportsMu guards only the report map, so report
// writes never wait on lifecycle operations. Construction happens outside mu;
// a per-model-type lock serializes the specialized check/construct/install
// sequence.
package manager
