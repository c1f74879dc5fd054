package dto

// FlowDocument is the on-disk shape of a flow (JSON or YAML).
// It uses "mapstructure" tags so both encodings decode through the same
// generic map, and "validate" tags for field-level checks.
type FlowDocument struct {
	ID          string                  `json:"id" mapstructure:"id" validate:"required"`
	Title       string                  `json:"title" mapstructure:"title"`
	StartNodeID string                  `json:"start_node_id" mapstructure:"start_node_id" validate:"required"`
	Nodes       map[string]NodeDocument `json:"nodes" mapstructure:"nodes" validate:"required,min=1,dive"`
}

type NodeDocument struct {
	ID       string           `json:"id" mapstructure:"id"`
	Type     string           `json:"type" mapstructure:"type" validate:"required,oneof=question result"`
	Meta     map[string]any   `json:"meta" mapstructure:"meta"`
	UI       *UIDocument      `json:"ui" mapstructure:"ui" validate:"omitempty"`
	Effects  []EffectDocument `json:"effects" mapstructure:"effects" validate:"dive"`
	Edges    []EdgeDocument   `json:"edges" mapstructure:"edges" validate:"dive"`
	Renderer string           `json:"renderer" mapstructure:"renderer"`
}

type UIDocument struct {
	QuestionText string           `json:"question_text" mapstructure:"question_text" validate:"required"`
	Description  string           `json:"description" mapstructure:"description"`
	InputType    string           `json:"input_type" mapstructure:"input_type" validate:"required,oneof=single_choice multi_choice text number"`
	Options      []OptionDocument `json:"options" mapstructure:"options" validate:"dive"`
	Placeholder  string           `json:"placeholder" mapstructure:"placeholder"`
}

type OptionDocument struct {
	ID          string           `json:"id" mapstructure:"id" validate:"required"`
	Label       string           `json:"label" mapstructure:"label" validate:"required"`
	Description string           `json:"description" mapstructure:"description"`
	Effects     []EffectDocument `json:"effects" mapstructure:"effects" validate:"dive"`
}

// EffectDocument is a raw effect. Value is a pointer so an absent amount
// can be told apart from an explicit zero.
type EffectDocument struct {
	Op         string   `json:"op" mapstructure:"op" validate:"required,oneof=set increment"`
	Path       string   `json:"path" mapstructure:"path" validate:"required"`
	From       string   `json:"from" mapstructure:"from"`
	FromLegacy string   `json:"from_" mapstructure:"from_"`
	Value      *float64 `json:"value" mapstructure:"value"`
}

type EdgeDocument struct {
	Condition  ConditionDocument `json:"condition" mapstructure:"condition"`
	NextNodeID string            `json:"next_node_id" mapstructure:"next_node_id" validate:"required"`
}

type ConditionDocument struct {
	Op    string           `json:"op" mapstructure:"op" validate:"required,oneof=always eq"`
	Left  *OperandDocument `json:"left" mapstructure:"left" validate:"required_if=Op eq"`
	Right *LiteralDocument `json:"right" mapstructure:"right" validate:"required_if=Op eq"`
}

type OperandDocument struct {
	Kind string `json:"kind" mapstructure:"kind"`
	Path string `json:"path" mapstructure:"path"`
}

type LiteralDocument struct {
	Value any `json:"value" mapstructure:"value"`
}
