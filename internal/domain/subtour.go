package domain

import "fmt"

// SubTour identifies one of the smaller onboarding flows tracked alongside
// the main tour.
type SubTour string

const (
	SubTourLocations SubTour = "locations"
	SubTourPeople    SubTour = "people"
)

// ParseSubTour validates a sub-tour name taken from a URL path.
func ParseSubTour(s string) (SubTour, error) {
	switch t := SubTour(s); t {
	case SubTourLocations, SubTourPeople:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown sub-tour %q", ErrValidation, s)
}
