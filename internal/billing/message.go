package billing

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// BillingRequest mirrors billing_service.proto:
//
//	message BillingRequest { string patientId = 1; string name = 2; string email = 3; }
type BillingRequest struct {
	PatientID string
	Name      string
	Email     string
}

// BillingResponse mirrors:
//
//	message BillingResponse { string accountId = 1; string status = 2; }
type BillingResponse struct {
	AccountID string
	Status    string
}

type message interface {
	marshal() []byte
	unmarshal([]byte) error
}

func (r *BillingRequest) marshal() []byte {
	var out []byte
	out = appendString(out, 1, r.PatientID)
	out = appendString(out, 2, r.Name)
	out = appendString(out, 3, r.Email)
	return out
}

func (r *BillingRequest) unmarshal(b []byte) error {
	return consumeStrings(b, map[protowire.Number]*string{
		1: &r.PatientID,
		2: &r.Name,
		3: &r.Email,
	})
}

func (r *BillingResponse) marshal() []byte {
	var out []byte
	out = appendString(out, 1, r.AccountID)
	out = appendString(out, 2, r.Status)
	return out
}

func (r *BillingResponse) unmarshal(b []byte) error {
	return consumeStrings(b, map[protowire.Number]*string{
		1: &r.AccountID,
		2: &r.Status,
	})
}

func appendString(out []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return out
	}
	out = protowire.AppendTag(out, num, protowire.BytesType)
	return protowire.AppendString(out, v)
}

func consumeStrings(b []byte, fields map[protowire.Number]*string) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if dst, ok := fields[num]; ok && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			*dst = string(v)
			b = b[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}

// Codec carries billing messages over gRPC without generated code. It
// registers under the "proto" name so peers see application/grpc+proto.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(message)
	if !ok {
		return nil, fmt.Errorf("billing codec: cannot marshal %T", v)
	}
	return m.marshal(), nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(message)
	if !ok {
		return fmt.Errorf("billing codec: cannot unmarshal into %T", v)
	}
	return m.unmarshal(data)
}

func (Codec) Name() string { return "proto" }
