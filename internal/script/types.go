package script

// Item holds the JSON fields of one upstream input item.
type Item map[string]any

// EnvVars is the merged credential/environment mapping injected into scripts.
type EnvVars map[string]string

// FileRef describes one binary attachment made visible to the script through
// the input_files list.
type FileRef struct {
	Filename   string `json:"filename"`
	MimeType   string `json:"mimetype"`
	Size       int64  `json:"size"`
	Extension  string `json:"extension"`
	BinaryKey  string `json:"binary_key"`
	ItemIndex  int    `json:"item_index"`
	TempPath   string `json:"temp_path,omitempty"`
	Base64Data string `json:"base64_data,omitempty"`
}

// Options are the independent generation toggles. Any combination must
// produce a syntactically valid script.
type Options struct {
	// IncludeInputItems emits the whole item collection as the legacy
	// input_items variable.
	IncludeInputItems bool `json:"include_input_items" yaml:"include_input_items"`

	// IncludeEnvVarsDict emits the whole env-var mapping as the legacy
	// env_vars variable. Independent of IncludeInputItems and of the
	// per-field assignments.
	IncludeEnvVarsDict bool `json:"include_env_vars_dict" yaml:"include_env_vars_dict"`

	// HideValues replaces every injected value with a fixed placeholder.
	// Used only for human-readable/export variants; a redacted script is
	// not meant to run.
	HideValues bool `json:"hide_values" yaml:"hide_values"`

	// EnableOutputDir provisions a scratch directory and binds its path as
	// the output_dir variable.
	EnableOutputDir bool `json:"enable_output_dir" yaml:"enable_output_dir"`

	// MaterializeInputFiles decodes binary attachments to temp files and
	// exposes their paths through input_files.
	MaterializeInputFiles bool `json:"materialize_input_files" yaml:"materialize_input_files"`
}

// DefaultOptions matches the historical behavior: legacy input_items on,
// legacy env_vars off, everything visible.
func DefaultOptions() Options {
	return Options{
		IncludeInputItems: true,
		EnableOutputDir:   true,
	}
}
