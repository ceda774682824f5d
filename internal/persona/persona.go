// Package persona generates the fixed identity of a simulated user.
package persona

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/google/uuid"

	"trafficgen/internal/config"
	"trafficgen/internal/template"
)

// Segment is a coarse age bucket used for category preferences.
type Segment string

const (
	Young  Segment = "young"
	Middle Segment = "middle"
	Old    Segment = "old"
)

// Identity is created once per session and never changes.
type Identity struct {
	ID      string
	Gender  string
	Age     int
	Segment Segment
	Name    string
	Email   string
	// Extra holds rendered register_fields sent alongside the standard form.
	Extra map[string]string
}

// SegmentFor buckets age using the configured thresholds.
func SegmentFor(age int, th config.SegmentThresholds) Segment {
	switch {
	case age < th.YoungBelow:
		return Young
	case age < th.MiddleBelow:
		return Middle
	default:
		return Old
	}
}

// NewID returns "user_" followed by six hex characters of a random UUID.
func NewID() string {
	u := uuid.New()
	return fmt.Sprintf("user_%x", u[:3])
}

// New draws a random identity from the profile.
func New(r *rand.Rand, p config.ProfileConfig) (Identity, error) {
	id := Identity{
		ID:     NewID(),
		Gender: p.Genders[r.Intn(len(p.Genders))],
		Age:    p.Age.Min + r.Intn(p.Age.Max-p.Age.Min+1),
	}
	id.Segment = SegmentFor(id.Age, p.Segments)

	vars := id.Vars()
	var err error
	if id.Name, err = template.Substitute(p.NameTemplate, vars); err != nil {
		return Identity{}, fmt.Errorf("rendering name: %w", err)
	}
	if id.Email, err = template.Substitute(p.EmailTemplate, vars); err != nil {
		return Identity{}, fmt.Errorf("rendering email: %w", err)
	}
	if id.Extra, err = template.SubstituteMap(p.RegisterFields, vars); err != nil {
		return Identity{}, fmt.Errorf("rendering register fields: %w", err)
	}
	return id, nil
}

// Vars exposes identity fields to templates.
func (id Identity) Vars() template.Vars {
	return template.Vars{
		"user_id": id.ID,
		"gender":  id.Gender,
		"age":     strconv.Itoa(id.Age),
		"segment": string(id.Segment),
	}
}
