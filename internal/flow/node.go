package flow

// NodeType is the closed set of node type tags understood by the editor.
type NodeType string

const (
	NodeTextInput            NodeType = "text-input"
	NodeImageInput           NodeType = "image-input"
	NodeAudioInput           NodeType = "audio-input"
	NodeTextGeneration       NodeType = "text-generation"
	NodeImageGeneration      NodeType = "image-generation"
	NodeAILogic              NodeType = "ai-logic"
	NodeComment              NodeType = "comment"
	NodeReactComponent       NodeType = "react-component"
	NodeRealtimeConversation NodeType = "realtime-conversation"
	NodeAudioTranscription   NodeType = "audio-transcription"
	NodePreviewOutput        NodeType = "preview-output"
	NodeSwitch               NodeType = "switch"
)

// PortType is the declared data type carried by an edge or port.
type PortType string

const (
	PortString   PortType = "string"
	PortImage    PortType = "image"
	PortAudio    PortType = "audio"
	PortResponse PortType = "response"
	PortPulse    PortType = "pulse"
)

// DefaultPort is the name of a node's single unnamed input or output port.
const DefaultPort = ""

// DefaultPortDataKey is the node data key that backs the default input port
// when no incoming edge supplies a value.
const DefaultPortDataKey = "value"

// PulsePort is the conventional name of the control-pulse output port emitted
// by executors that declare a pulse output.
const PulsePort = "pulse"

// Position is the node's location on the canvas. It has no execution
// semantics and is carried only so snapshots round-trip losslessly.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a single semantic entity on the canvas.
type Node struct {
	ID       string         `json:"id"`
	Type     NodeType       `json:"type"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data,omitempty"`
	// ParentID is a non-ownership backreference used for containment display
	// (comment groups). It never participates in execution.
	ParentID string `json:"parentId,omitempty"`
}

// Clone returns a copy of the node with its own data map.
func (n Node) Clone() Node {
	out := n
	if n.Data != nil {
		out.Data = make(map[string]any, len(n.Data))
		for k, v := range n.Data {
			out.Data[k] = v
		}
	}
	return out
}

// DataString returns the string stored under key in the node's data bag,
// or "" when the key is absent or not a string.
func (n Node) DataString(key string) string {
	s, _ := n.Data[key].(string)
	return s
}

// DataBool returns the bool stored under key, or false when absent.
func (n Node) DataBool(key string) bool {
	b, _ := n.Data[key].(bool)
	return b
}
