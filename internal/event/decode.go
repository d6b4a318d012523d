package event

import "encoding/json"

// DecodePayload decodes an event payload into T via type assertion then JSON
// fallback. Events published on the in-process bus already carry the typed
// struct; payloads replayed from the dead-letter file arrive as generic maps
// and take the JSON round-trip.
func DecodePayload[T any](input interface{}) (T, error) {
	if v, ok := input.(T); ok {
		return v, nil
	}
	var result T
	data, err := json.Marshal(input)
	if err != nil {
		return result, err
	}
	return result, json.Unmarshal(data, &result)
}

// DecodeIncomingMessage extracts the inbound-message payload.
func DecodeIncomingMessage(e Event) (IncomingMessagePayloadV1, error) {
	return DecodePayload[IncomingMessagePayloadV1](e.Payload)
}

// DecodeLinkLifecycle extracts the activation/revocation payload.
func DecodeLinkLifecycle(e Event) (LinkLifecyclePayloadV1, error) {
	return DecodePayload[LinkLifecyclePayloadV1](e.Payload)
}

// DecodeLinkDeauthorized extracts the deauthorization payload.
func DecodeLinkDeauthorized(e Event) (LinkDeauthorizedPayloadV1, error) {
	return DecodePayload[LinkDeauthorizedPayloadV1](e.Payload)
}

// DecodeMessageDropped extracts the backpressure-drop payload.
func DecodeMessageDropped(e Event) (MessageDroppedPayloadV1, error) {
	return DecodePayload[MessageDroppedPayloadV1](e.Payload)
}
