package tagpack

// Suit is a small EnumValue used across the test suite (schema, encoder,
// decoder): a string-backed enum whose lookup method is defined on the
// member type itself, the idiom a caller is expected to implement for any
// ENUM schema field.
type Suit string

const (
	SuitClubs    Suit = "clubs"
	SuitDiamonds Suit = "diamonds"
	SuitHearts   Suit = "hearts"
	SuitSpades   Suit = "spades"
)

func (s Suit) EnumName() string { return string(s) }

func (s Suit) LookupEnumName(name string) (EnumValue, bool) {
	switch Suit(name) {
	case SuitClubs, SuitDiamonds, SuitHearts, SuitSpades:
		return Suit(name), true
	default:
		return nil, false
	}
}

// Priority is a small IntEnumValue used across the test suite.
type Priority int32

const (
	PriorityLow    Priority = 0
	PriorityMedium Priority = 1
	PriorityHigh   Priority = 2
)

func (p Priority) EnumName() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

func (p Priority) EnumOrdinal() int64 { return int64(p) }

func (p Priority) LookupEnumOrdinal(v int64) (IntEnumValue, bool) {
	switch Priority(v) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(v), true
	default:
		return nil, false
	}
}
