package voice

import "encoding/json"

// 服务商下行的文本事件类型。
const (
	EventInitMetadata     = "conversation_initiation_metadata"
	EventUserTranscript   = "user_transcript"
	EventAgentResponse    = "agent_response"
	EventResponseComplete = "agent_response_complete"
)

// StatusEvent 是服务商下行的一条状态事件。
// Raw 保留原始 JSON，透传给浏览器端展示转写与回复文本。
type StatusEvent struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// ParseStatusEvent 解析一条文本帧。只要求有 type 字段，
// 其余内容不做校验，原样保留。
func ParseStatusEvent(data []byte) (*StatusEvent, error) {
	var ev StatusEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	ev.Raw = json.RawMessage(data)
	return &ev, nil
}
