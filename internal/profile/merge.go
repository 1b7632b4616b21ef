package profile

// DefaultConfidenceThreshold is the minimum confidence for an inferred value
// to enter the merged profile.
const DefaultConfidenceThreshold = 0.7

// Merge overlays structured on the inferred values whose confidence is at
// least threshold. Structured values always win.
func Merge(structured Profile, inferred Inference, threshold float64) Profile {
	merged := Profile{}
	for field := range inferred.Confidence {
		if inferred.Confidence[field] < threshold {
			continue
		}
		if v, ok := inferred.Value(field); ok {
			merged[field] = v
		}
	}
	for field, v := range structured {
		merged[field] = v
	}
	return merged
}
