package domain

import "fmt"

// Distance is the similarity metric used by the vector index collection.
type Distance string

const (
	DistanceCosine    Distance = "cosine"
	DistanceEuclidean Distance = "euclidean"
	DistanceDot       Distance = "dot"
)

// ParseDistance maps a configuration string to a Distance.
func ParseDistance(s string) (Distance, error) {
	switch Distance(s) {
	case DistanceCosine, DistanceEuclidean, DistanceDot:
		return Distance(s), nil
	case "":
		return DistanceCosine, nil
	default:
		return "", fmt.Errorf("unknown distance metric %q", s)
	}
}
