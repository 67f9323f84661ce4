package convert

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vgents/portaljuridico/internal/events"
)

// ToStructEvent converts a document event to its stream payload.
// The origin stays server-side.
func ToStructEvent(e events.Event) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":         str(e.ID),
		"kind":       str(string(e.Kind)),
		"documentId": str(e.DocumentID),
		"actorId":    num(e.ActorID),
		"at":         ts(e.At),
	}}
}

// FromStructEvent converts a stream payload to a document event.
func FromStructEvent(s *structpb.Struct) (events.Event, error) {
	r := &reader{s: s}
	e := events.Event{
		ID:         r.str("id"),
		Kind:       events.Kind(r.str("kind")),
		DocumentID: r.str("documentId"),
		ActorID:    r.int("actorId"),
		At:         r.time("at"),
	}
	return e, r.err
}
