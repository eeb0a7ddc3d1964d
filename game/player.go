package game

import (
	"math"
	"strings"
	"unicode/utf8"
)

const (
	MaxPlayers    = 10
	MaxNameLength = 20
)

var palette = [MaxPlayers]string{
	"#ef4444", "#3b82f6", "#22c55e", "#eab308", "#a855f7",
	"#f97316", "#06b6d4", "#ec4899", "#84cc16", "#f5f5f5",
}

// Vec3 is an (x, y, z) coordinate; y is elevation.
type Vec3 [3]float64

// PlanarDistance ignores elevation.
func (v Vec3) PlanarDistance(o Vec3) float64 {
	return math.Hypot(v[0]-o[0], v[2]-o[2])
}

type Player struct {
	id    string
	name  string
	color string

	position Vec3
	rotation float64
	distance float64

	ready             bool
	eliminated        bool
	submitted         bool
	program           Program
	finishedExecution bool
}

func newPlayer(id, name, color string) *Player {
	return &Player{id: id, name: name, color: color}
}

func (p *Player) ID() string { return p.id }
func (p *Player) Name() string { return p.name }
func (p *Player) Color() string { return p.color }

func (p *Player) IsReady() bool { return p.ready }
func (p *Player) IsEliminated() bool { return p.eliminated }
func (p *Player) HasSubmitted() bool { return p.submitted }
func (p *Player) Program() Program { return p.program }
func (p *Player) HasFinishedExecution() bool { return p.finishedExecution }
func (p *Player) Position() Vec3 { return p.position }
func (p *Player) Rotation() float64 { return p.rotation }
func (p *Player) DistanceToSatellite() float64 { return p.distance }

// active players are the only ones counted for start, submission and
// completion thresholds.
func (p *Player) active() bool {
	return p.ready && !p.eliminated
}

func (p *Player) clearRound() {
	p.submitted = false
	p.program = nil
	p.finishedExecution = false
}

func (p *Player) resetForLevel() {
	p.clearRound()
	p.eliminated = false
	p.position = Vec3{}
	p.rotation = 0
	p.distance = 0
}

func (p *Player) summary() PlayerSummary {
	return PlayerSummary{Id: p.id, Name: p.name, Color: p.color}
}

// SanitizeName trims the name and truncates it to MaxNameLength runes.
func SanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || !utf8.ValidString(name) {
		return "", ErrBadRequestFormat
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = strings.TrimSpace(string([]rune(name)[:MaxNameLength]))
	}
	return name, nil
}
