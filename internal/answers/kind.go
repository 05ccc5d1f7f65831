package answers

type Kind string

const (
	KindText           Kind = "Text"
	KindSingleChoice   Kind = "SingleChoice"
	KindMultipleChoice Kind = "MultipleChoice"
	KindRating         Kind = "Rating"
	KindNumber         Kind = "Number"
	KindDate           Kind = "Date"
	KindLocation       Kind = "Location"
)

var allKinds = []Kind{
	KindText,
	KindSingleChoice,
	KindMultipleChoice,
	KindRating,
	KindNumber,
	KindDate,
	KindLocation,
}

// Kinds returns every supported answer kind in display order.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

func (k Kind) Valid() bool {
	for _, known := range allKinds {
		if k == known {
			return true
		}
	}
	return false
}

// HasOptions reports whether questions of this kind carry a configured option list.
func (k Kind) HasOptions() bool {
	return k == KindSingleChoice || k == KindMultipleChoice || k == KindRating
}
