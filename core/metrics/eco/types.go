package eco

// Entry is the distance and emission footprint of one vehicle movement.
type Entry struct {
	VehicleID string  `json:"vehicle_id"`
	Class     string  `json:"class"`
	Km        float64 `json:"km"`
	Loaded    bool    `json:"loaded"`
	CO2       float64 `json:"co2"`
	Money     float64 `json:"money"`
}

// VehicleKPI aggregates the entries of a single vehicle.
type VehicleKPI struct {
	VehicleID string  `json:"vehicle_id"`
	Class     string  `json:"class"`
	EmptyKm   float64 `json:"empty_km"`
	LoadedKm  float64 `json:"loaded_km"`
	CO2       float64 `json:"co2"`
	Money     float64 `json:"money"`
}

// EmptyRatio is the share of distance driven without passengers.
func (k VehicleKPI) EmptyRatio() float64 {
	total := k.EmptyKm + k.LoadedKm
	if total == 0 {
		return 0
	}
	return k.EmptyKm / total
}
