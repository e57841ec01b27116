package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/h2overflow/apiserver/types"
	"github.com/rs/zerolog"
)

// AttrKind carries the account event kind so consumers can filter
// without decoding the body.
const AttrKind = "kind"

// AccountEvents publishes account events as JSON on a single topic.
type AccountEvents struct {
	mq    *MQ
	topic string
}

func NewAccountEvents(mq *MQ, topic string) *AccountEvents {
	return &AccountEvents{mq: mq, topic: topic}
}

// PublishAccountEvent encodes and publishes event.
func (a *AccountEvents) PublishAccountEvent(ctx context.Context, event types.AccountEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode account event: %w", err)
	}
	_, err = a.mq.Publish(ctx, a.topic, data, map[string]string{
		AttrKind:        string(event.Kind),
		AttrContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("publish account event: %w", err)
	}
	return nil
}

// Consume decodes account events from the topic and passes them to handle
// until ctx ends. Malformed messages are logged and acknowledged.
func (a *AccountEvents) Consume(ctx context.Context, log zerolog.Logger, handle func(context.Context, types.AccountEvent) error) error {
	return a.mq.Subscribe(ctx, a.topic, func(ctx context.Context, msg Message) error {
		event, err := DecodeAccountEvent(msg)
		if err != nil {
			log.Error().Err(err).Str("message_id", msg.ID).Msg("dropping malformed account event")
			return nil
		}
		return handle(ctx, event)
	})
}

// DecodeAccountEvent parses a message published by PublishAccountEvent.
func DecodeAccountEvent(msg Message) (types.AccountEvent, error) {
	var event types.AccountEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return types.AccountEvent{}, fmt.Errorf("decode account event: %w", err)
	}
	switch event.Kind {
	case types.EventPictureReplaced, types.EventAccountDeleted:
	default:
		return types.AccountEvent{}, fmt.Errorf("unknown account event kind %q", event.Kind)
	}
	if kind, ok := msg.Attributes[AttrKind]; ok && kind != string(event.Kind) {
		return types.AccountEvent{}, errors.New("account event kind does not match its attribute")
	}
	return event, nil
}

// DiscardEvents is used when no broker is configured. Blobs referenced by
// discarded events are retained.
type DiscardEvents struct {
	log zerolog.Logger
}

func NewDiscardEvents(log zerolog.Logger) *DiscardEvents {
	return &DiscardEvents{log: log}
}

func (d *DiscardEvents) PublishAccountEvent(_ context.Context, event types.AccountEvent) error {
	d.log.Warn().
		Str("kind", string(event.Kind)).
		Str("user_id", event.UserID.String()).
		Str("object_key", event.ObjectKey).
		Msg("no message broker configured, picture retained")
	return nil
}
