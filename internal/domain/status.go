package domain

// Status is the quota health classification of a single counter.
type Status string

// Status values.
const (
	StatusHealthy  Status = "HEALTHY"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
)

// RemainingPercent returns remaining/limit as a percentage, 0 when limit is not positive.
func RemainingPercent(remaining, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(remaining) * 100 / float64(limit)
}

// UsedPercent returns used/limit as a percentage, 0 when limit is not positive.
func UsedPercent(used, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(used) * 100 / float64(limit)
}

// Classify maps remaining/limit to a Status. Both thresholds are exclusive.
func Classify(remaining, limit int) Status {
	pct := RemainingPercent(remaining, limit)
	switch {
	case pct > 50:
		return StatusHealthy
	case pct > 20:
		return StatusWarning
	default:
		return StatusCritical
	}
}
