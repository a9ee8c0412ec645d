package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// LegacyTimestampLayout is how older writers stored creation times: a server
// local time string without zone.
const LegacyTimestampLayout = "2006-01-02 15:04:05"

// Timestamp is a creation time stored as a BSON date. Decoding also accepts
// the legacy string form so collections written before the switch stay readable.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t in UTC
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// MarshalBSONValue always writes a BSON date
func (t Timestamp) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(t.Time)
}

// UnmarshalBSONValue reads a BSON date, a legacy local-time string or null
func (t *Timestamp) UnmarshalBSONValue(typ bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: typ, Value: data}
	switch typ {
	case bson.TypeDateTime:
		t.Time = raw.Time().UTC()
	case bson.TypeString:
		parsed, err := time.ParseInLocation(LegacyTimestampLayout, raw.StringValue(), time.Local)
		if err != nil {
			return fmt.Errorf("invalid legacy timestamp %q: %w", raw.StringValue(), err)
		}
		t.Time = parsed.UTC()
	case bson.TypeNull, bson.TypeUndefined:
		t.Time = time.Time{}
	default:
		return fmt.Errorf("cannot decode %s into a timestamp", typ)
	}
	return nil
}
