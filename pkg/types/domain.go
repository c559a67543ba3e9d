package types

// Model is an opaque model asset as supplied by the host. The manager never
// parses it; Path and Payload are handed to the model loader untouched.
type Model struct {
	// Stable identifier for the model.
	// example: midas-small.onnx
	ID string `json:"id" example:"midas-small.onnx"`
	// Human-friendly name.
	// example: MiDaS small
	Name string `json:"name" example:"MiDaS small"`
	// Absolute path to the model file on disk, when file-backed.
	// example: /home/user/models/midas-small.onnx
	Path string `json:"path,omitempty" example:"/home/user/models/midas-small.onnx"`
	// File format (extension without the dot).
	// example: onnx
	Format string `json:"format,omitempty" example:"onnx"`
	// Model-type classification (generic, segmentation, diffusion, depth, pose, ...).
	// example: depth
	Type string `json:"type,omitempty" example:"depth"`
	// Size of the asset in bytes; 0 when unknown.
	// example: 86000000
	SizeBytes int64 `json:"size_bytes,omitempty" example:"86000000"`
	// Whether the model is unusable without acceleration.
	// example: false
	RequiresAcceleration bool `json:"requires_acceleration,omitempty" example:"false"`
	// Payload carries in-memory assets for loaders that do not read files.
	Payload any `json:"-"`
}
