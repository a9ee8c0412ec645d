package models

// BottleSequenceName is the counter that issues bottle ids.
const BottleSequenceName = "bottle_id"

// SequenceCounter stores the last value issued for a named monotonic counter.
// Documents live in the counters collection keyed by sequence name.
type SequenceCounter struct {
	Name string `bson:"_id" json:"name"`
	Seq  int64  `bson:"seq" json:"seq"`
}
