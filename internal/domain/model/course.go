package model

import "time"

// Hole is static reference data for one hole of a course.
type Hole struct {
	Number  int         `json:"number" koanf:"number"`
	Par     int         `json:"par" koanf:"par"`
	Yardage int         `json:"yardage" koanf:"yardage"`
	Pin     *Coordinate `json:"pin,omitempty" koanf:"pin"`
	Tee     *Coordinate `json:"tee,omitempty" koanf:"tee"`
}

// Course is a named, ordered set of holes.
type Course struct {
	Name  string `json:"name" koanf:"name"`
	Holes []Hole `json:"holes" koanf:"holes"`
}

// Hole returns the hole with the given number.
func (c Course) Hole(number int) (Hole, bool) {
	for _, h := range c.Holes {
		if h.Number == number {
			return h, true
		}
	}
	return Hole{}, false
}

// Aggregate holds statistics derived from a round's scores.
type Aggregate struct {
	TotalScore    int     `json:"total_score"`
	TotalPar      int     `json:"total_par"`
	RelativeToPar int     `json:"relative_to_par"`
	HolesPlayed   int     `json:"holes_played"`
	AverageScore  float64 `json:"average_score"`
}

// SavedRound is an immutable snapshot of a finished round.
type SavedRound struct {
	ID         string      `json:"id"`
	PlayerName string      `json:"player_name"`
	CourseName string      `json:"course_name"`
	Scores     map[int]int `json:"scores"`
	Stats      Aggregate   `json:"stats"`
	SavedAt    time.Time   `json:"saved_at"`
}
