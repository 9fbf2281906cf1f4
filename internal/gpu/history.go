package gpu

import "sync"

const (
	temperatureWindowSize = 5
	powerWindowSize       = 5
)

// Smoother keeps short moving-average windows of temperature and power.
type Smoother struct {
	temperatureHistory []Temperature
	powerHistory       []Power
	mu                 sync.RWMutex
}

func NewSmoother() *Smoother {
	return &Smoother{
		temperatureHistory: make([]Temperature, 0, temperatureWindowSize),
		powerHistory:       make([]Power, 0, powerWindowSize),
	}
}

// UpdateTemperatureHistory records a reading and returns the window average.
func (s *Smoother) UpdateTemperatureHistory(current Temperature) Temperature {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.temperatureHistory = append(s.temperatureHistory, current)
	if len(s.temperatureHistory) > temperatureWindowSize {
		s.temperatureHistory = s.temperatureHistory[1:]
	}

	var sum Temperature
	for _, temp := range s.temperatureHistory {
		sum += temp
	}

	return sum / Temperature(len(s.temperatureHistory))
}

// UpdatePowerHistory records a reading and returns the window average.
func (s *Smoother) UpdatePowerHistory(current Power) Power {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.powerHistory = append(s.powerHistory, current)
	if len(s.powerHistory) > powerWindowSize {
		s.powerHistory = s.powerHistory[1:]
	}

	var sum Power
	for _, p := range s.powerHistory {
		sum += p
	}

	return sum / Power(len(s.powerHistory))
}

// Samples returns how many temperature readings are in the window.
func (s *Smoother) Samples() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.temperatureHistory)
}

func (s *Smoother) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.temperatureHistory = s.temperatureHistory[:0]
	s.powerHistory = s.powerHistory[:0]
}
