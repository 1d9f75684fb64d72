package config

import "fmt"

type ordered interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// CheckNotNegative checks that the value is not negative.
// If it is, an anomaly is added to the anomaly collector and the value is set to the fallback.
func CheckNotNegative[T ordered](ac *AnomalyCollector, field string, actual *T, fallback T) {
	if val := *actual; val < 0 {
		ac.Add(field, "cannot be negative", val, fallback)
		*actual = fallback
	}
}

// CheckPositive checks that the value is greater than zero.
// If it is not, an anomaly is added to the anomaly collector and the value is set to the fallback.
func CheckPositive[T ordered](ac *AnomalyCollector, field string, actual *T, fallback T) {
	if val := *actual; val <= 0 {
		ac.Add(field, "must be greater than zero", val, fallback)
		*actual = fallback
	}
}

// CheckNotLowerThan checks that the value is not lower than the one of the target field.
// If it is, an anomaly is added to the anomaly collector and the value is set to the target.
func CheckNotLowerThan[T ordered](ac *AnomalyCollector, field, targetField string, actual *T, target T) {
	if val := *actual; val < target {
		ac.Add(field, fmt.Sprintf("cannot be lower than %q", targetField), val, target)
		*actual = target
	}
}

// CheckUnchanged checks that a field that cannot be changed at runtime
// keeps its previous value. If it does not, an anomaly is added
// to the anomaly collector and the previous value is restored.
func CheckUnchanged[T comparable](ac *AnomalyCollector, field string, actual *T, previous T) {
	if val := *actual; val != previous {
		ac.Add(field, "cannot be changed at runtime", val, previous)
		*actual = previous
	}
}
