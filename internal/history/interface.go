package history

import (
	"context"
	"time"

	"codeberg.org/mutker/waysensor/internal/gpumetrics"
)

// Recorder stores sensor readings.
type Recorder interface {
	Record(ctx context.Context, snapshot *Snapshot) error
	Close() error
}

// Repository defines the interface for reading storage
type Repository interface {
	Record(snapshot *Snapshot) error
	Close() error
}

// Snapshot is one stored reading.
type Snapshot struct {
	Timestamp   time.Time
	Card        string
	Version     string
	Temperature int
	Power       int
	Activity    int
	Frequency   int
	FanSpeed    int
	Throttle    uint64
}

// NewSnapshot captures the headline values of a reading.
func NewSnapshot(card string, m gpumetrics.Metrics, at time.Time) *Snapshot {
	temp, _ := m.GetTemperature()
	fan, _ := m.GetFanSpeed()

	return &Snapshot{
		Timestamp:   at,
		Card:        card,
		Version:     m.GetHeader().Version(),
		Temperature: int(temp),
		Power:       int(m.GetPower()),
		Activity:    int(m.GetActivity()),
		Frequency:   int(m.GetFrequency()),
		FanSpeed:    int(fan),
		Throttle:    m.GetThrottleStatus(),
	}
}
