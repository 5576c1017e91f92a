package types

// ModelFile is a GGUF model file found on disk.
type ModelFile struct {
	// File name without directory.
	// example: mirror-q4_k_m.gguf
	Name string `json:"name" example:"mirror-q4_k_m.gguf"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/mirror-q4_k_m.gguf
	Path string `json:"path" example:"/home/user/models/mirror-q4_k_m.gguf"`
	// example: 2393232384
	SizeBytes int64 `json:"size_bytes" example:"2393232384"`
	// Quantization variant guessed from the file name, if any.
	// example: Q4_K_M
	Quant string `json:"quant,omitempty" example:"Q4_K_M"`
}
