package model

// FitnessMetrics is the health-tracking sub-document persisted on a user
// record as a JSON column. All fields are optional; bmiHistory is
// append-only.
type FitnessMetrics struct {
	LatestBMI      *BMIReading       `json:"latestBMI,omitempty"`
	BMIHistory     []BMIHistoryEntry `json:"bmiHistory,omitempty"`
	Height         *float64          `json:"height,omitempty"`
	Weight         *float64          `json:"weight,omitempty"`
	Unit           string            `json:"unit,omitempty"` // "metric" | "imperial"
	GoalWeight     *float64          `json:"goalWeight,omitempty"`
	LastCalculated string            `json:"lastCalculated,omitempty"` // ISO timestamp
}

// BMIReading is a full BMI calculation snapshot.
type BMIReading struct {
	Value    float64 `json:"value"`
	Category string  `json:"category"`
	Height   float64 `json:"height"`
	Weight   float64 `json:"weight"`
	Unit     string  `json:"unit"`
	Date     string  `json:"date"`
}

// BMIHistoryEntry is the compact form kept in the history list.
type BMIHistoryEntry struct {
	Value    float64 `json:"value"`
	Category string  `json:"category"`
	Date     string  `json:"date"`
}

// MetricsPatch is a partial metrics update. Nil fields are left untouched;
// HistoryEntry, when present, is appended to the history rather than
// replacing it.
type MetricsPatch struct {
	LatestBMI      *BMIReading      `json:"latestBMI,omitempty"`
	Height         *float64         `json:"height,omitempty"`
	Weight         *float64         `json:"weight,omitempty"`
	Unit           string           `json:"unit,omitempty"`
	GoalWeight     *float64         `json:"goalWeight,omitempty"`
	LastCalculated string           `json:"lastCalculated,omitempty"`
	HistoryEntry   *BMIHistoryEntry `json:"bmiHistoryEntry,omitempty"`
}

// Empty reports whether the patch carries no change at all.
func (p MetricsPatch) Empty() bool {
	return p.LatestBMI == nil && p.Height == nil && p.Weight == nil &&
		p.Unit == "" && p.GoalWeight == nil && p.LastCalculated == "" &&
		p.HistoryEntry == nil
}

// Apply merges the patch into m.
func (p MetricsPatch) Apply(m *FitnessMetrics) {
	if p.LatestBMI != nil {
		m.LatestBMI = p.LatestBMI
	}
	if p.Height != nil {
		m.Height = p.Height
	}
	if p.Weight != nil {
		m.Weight = p.Weight
	}
	if p.Unit != "" {
		m.Unit = p.Unit
	}
	if p.GoalWeight != nil {
		m.GoalWeight = p.GoalWeight
	}
	if p.LastCalculated != "" {
		m.LastCalculated = p.LastCalculated
	}
	if p.HistoryEntry != nil {
		m.BMIHistory = append(m.BMIHistory, *p.HistoryEntry)
	}
}
