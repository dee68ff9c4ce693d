// Package event owns the patient event schema shared by the patient service
// (producer) and the analytics service (consumer).
//
// Wire format is protobuf, field numbers fixed:
//
//	message PatientEvent {
//	  string patient_id = 1;
//	  string name       = 2;
//	  string email      = 3;
//	  string event_type = 4;
//	}
//
// New fields must take new numbers; decoders skip numbers they do not know.
package event

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	TypePatientCreated = "PATIENT_CREATED"

	// ContentType is set on published messages.
	ContentType = "application/x-protobuf"
)

const (
	fieldPatientID protowire.Number = 1
	fieldName      protowire.Number = 2
	fieldEmail     protowire.Number = 3
	fieldEventType protowire.Number = 4
)

type PatientEvent struct {
	PatientID string
	Name      string
	Email     string
	EventType string
}

// DecodeError reports a payload that is not a valid PatientEvent.
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode patient event at byte %d: %s", e.Offset, e.Reason)
}

// Marshal encodes e. Empty strings are omitted, as proto3 does.
func Marshal(e *PatientEvent) []byte {
	var out []byte
	out = appendString(out, fieldPatientID, e.PatientID)
	out = appendString(out, fieldName, e.Name)
	out = appendString(out, fieldEmail, e.Email)
	out = appendString(out, fieldEventType, e.EventType)
	return out
}

func appendString(out []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return out
	}
	out = protowire.AppendTag(out, num, protowire.BytesType)
	return protowire.AppendString(out, v)
}

// Unmarshal decodes b into a PatientEvent. Any malformed input returns a
// *DecodeError.
func Unmarshal(b []byte) (*PatientEvent, error) {
	e := &PatientEvent{}
	total := len(b)

	for len(b) > 0 {
		off := total - len(b)
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, &DecodeError{Offset: off, Reason: protowire.ParseError(n).Error()}
		}
		b = b[n:]

		var dst *string
		switch num {
		case fieldPatientID:
			dst = &e.PatientID
		case fieldName:
			dst = &e.Name
		case fieldEmail:
			dst = &e.Email
		case fieldEventType:
			dst = &e.EventType
		}

		if dst == nil {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, &DecodeError{Offset: off, Reason: protowire.ParseError(n).Error()}
			}
			b = b[n:]
			continue
		}
		if typ != protowire.BytesType {
			return nil, &DecodeError{Offset: off, Reason: fmt.Sprintf("field %d: wire type %d, want bytes", num, typ)}
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, &DecodeError{Offset: off, Reason: protowire.ParseError(n).Error()}
		}
		// proto3 strings must be valid UTF-8
		if !utf8.Valid(v) {
			return nil, &DecodeError{Offset: off, Reason: fmt.Sprintf("field %d: invalid UTF-8", num)}
		}
		*dst = string(v)
		b = b[n:]
	}
	return e, nil
}

// RoutingKey maps an event type to its topic routing key,
// e.g. PATIENT_CREATED -> patient.created.
func RoutingKey(eventType string) string {
	return strings.ToLower(strings.Replace(eventType, "_", ".", 1))
}
