package model

import "encoding/json"

const (
	StateEnabled  = "ENABLED"
	StateDisabled = "DISABLED"
)

// Settings is the document a settings source serves.
type Settings struct {
	Flags    map[string]Flag `json:"flags"`
	Metadata Metadata        `json:"metadata,omitempty"`
}

type Flag struct {
	State          string             `json:"state"`
	DefaultVariant string             `json:"defaultVariant"`
	Variants       map[string]Variant `json:"variants"`
	Targeting      json.RawMessage    `json:"targeting,omitempty"`
	Metadata       Metadata           `json:"metadata,omitempty"`
	Source         string             `json:"-"`
	Key            string             `json:"-"`
}

// Variant is one possible outcome of a flag and carries its named variables.
type Variant struct {
	Variables map[string]any `json:"variables"`
}

type Metadata = map[string]interface{}

// Resolution is the outcome of evaluating a single flag for one context.
type Resolution struct {
	Key       string
	Variant   string
	Reason    string
	Enabled   bool
	Variables map[string]any
}
