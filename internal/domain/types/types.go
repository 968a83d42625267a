// Package types contains common types used across the application
package types

import (
	"time"

	"github.com/okian/jacktrack/internal/domain/model"
)

// BallsView partitions the registry for display.
type BallsView struct {
	Scanning  bool                `json:"scanning"`
	Connected []model.TrackedBall `json:"connected"`
	Available []model.TrackedBall `json:"available"`
}

// NavigationFeed is the live navigation view model. Distance and bearing
// are nil when Unavailable carries the reason.
type NavigationFeed struct {
	TargetID    string   `json:"target_id,omitempty"`
	Navigating  bool     `json:"navigating"`
	DistanceM   *float64 `json:"distance_m,omitempty"`
	DistanceYd  *float64 `json:"distance_yd,omitempty"`
	BearingDeg  *float64 `json:"bearing_deg,omitempty"`
	Unavailable string   `json:"unavailable,omitempty"`
}

// HoleView is one scorecard row.
type HoleView struct {
	Number        int `json:"number"`
	Par           int `json:"par"`
	Yardage       int `json:"yardage"`
	Strokes       int `json:"strokes"`
	RelativeToPar int `json:"relative_to_par"`
}

// ScorecardView is the round in progress with its aggregates.
type ScorecardView struct {
	PlayerName string          `json:"player_name"`
	CourseName string          `json:"course_name"`
	Holes      []HoleView      `json:"holes"`
	Stats      model.Aggregate `json:"stats"`
}

// HoleDistance is the distance from the current fix to a hole's pin.
type HoleDistance struct {
	Hole       int     `json:"hole"`
	DistanceM  float64 `json:"distance_m"`
	DistanceYd float64 `json:"distance_yd"`
	BearingDeg float64 `json:"bearing_deg"`
}

// Change topics published on the notification hub.
const (
	TopicBall       = "ball"
	TopicScan       = "scan"
	TopicNavigation = "navigation"
	TopicScorecard  = "scorecard"
	TopicLocation   = "location"
	TopicRounds     = "rounds"
)

// Change tells subscribers that a view model must be re-read.
type Change struct {
	Topic string    `json:"topic"`
	ID    string    `json:"id,omitempty"`
	State string    `json:"state,omitempty"`
	At    time.Time `json:"at"`
}
