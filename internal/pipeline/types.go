package pipeline

import (
	"time"

	"pyrunner/internal/script"
)

// Request describes one script generation or execution job.
type Request struct {
	Code    string            `json:"code"`
	Items   []InputItem       `json:"items,omitempty"`
	EnvVars map[string]string `json:"env_vars,omitempty"`
	Timeout time.Duration     `json:"timeout,omitempty"`
	Options script.Options    `json:"options"`

	// RequestIP is recorded in the audit trail only.
	RequestIP string `json:"-"`
}

// Attachment is a base64-encoded binary payload carried by an input item.
type Attachment struct {
	Filename   string `json:"filename"`
	MimeType   string `json:"mimetype"`
	Base64Data string `json:"base64_data"`
}

// InputItem pairs structured fields with optional binary attachments.
type InputItem struct {
	JSON   map[string]any        `json:"json"`
	Binary map[string]Attachment `json:"binary,omitempty"`
}

func toScriptItems(items []InputItem) []script.Item {
	out := make([]script.Item, 0, len(items))
	for _, it := range items {
		if it.JSON == nil {
			out = append(out, script.Item{})
			continue
		}
		out = append(out, script.Item(it.JSON))
	}
	return out
}
