package analysis

// MacroPoint is one month of activity joined with a macro index value.
type MacroPoint struct {
	Month        string  `json:"month"`
	Volume       float64 `json:"volume"`
	Count        float64 `json:"count"`
	Index        float64 `json:"index"`
	VolumeScaled float64 `json:"volume_scaled"`
	CountScaled  float64 `json:"count_scaled"`
	IndexScaled  float64 `json:"index_scaled"`
}

// MacroComparison relates monthly activity to one macro series.
type MacroComparison struct {
	Series            string       `json:"series"`
	Points            []MacroPoint `json:"points"`
	VolumeCorrelation *float64     `json:"volume_correlation,omitempty"`
	CountCorrelation  *float64     `json:"count_correlation,omitempty"`
}

// CompareMacro joins monthly activity with index on YYYY-MM. Months the
// index does not cover are dropped before scaling and correlation.
func CompareMacro(series string, monthly []MonthlyVolume, index map[string]float64) MacroComparison {
	c := MacroComparison{Series: series}
	var vol, cnt, idx []float64
	for _, m := range monthly {
		v, ok := index[m.Month]
		if !ok {
			continue
		}
		c.Points = append(c.Points, MacroPoint{
			Month:  m.Month,
			Volume: m.Volume.InexactFloat64(),
			Count:  float64(m.Count),
			Index:  v,
		})
		vol = append(vol, m.Volume.InexactFloat64())
		cnt = append(cnt, float64(m.Count))
		idx = append(idx, v)
	}
	vs, cs, is := MinMax(vol), MinMax(cnt), MinMax(idx)
	for i := range c.Points {
		c.Points[i].VolumeScaled = vs[i]
		c.Points[i].CountScaled = cs[i]
		c.Points[i].IndexScaled = is[i]
	}
	if r, ok := Pearson(vol, idx); ok {
		c.VolumeCorrelation = &r
	}
	if r, ok := Pearson(cnt, idx); ok {
		c.CountCorrelation = &r
	}
	return c
}

// AddMacro appends a comparison against each named series, in the given order.
func (r *Report) AddMacro(names []string, series map[string]map[string]float64) {
	for _, name := range names {
		r.Macro = append(r.Macro, CompareMacro(name, r.Monthly, series[name]))
	}
}
