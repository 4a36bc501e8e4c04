package model

// SendSummary is the aggregate outcome of one bulk send pass.
// Skipped counts both invalid recipients and already-sent ones.
type SendSummary struct {
	BatchID     string `json:"batchId"`
	Sent        int    `json:"sent"`
	Skipped     int    `json:"skipped"`
	Failed      int    `json:"failed"`
	Total       int    `json:"total"`
	Invalid     int    `json:"invalid"`
	AlreadySent int    `json:"alreadySent"`
}

// Processed is the number of recipients handled so far
func (s SendSummary) Processed() int {
	return s.Sent + s.Skipped + s.Failed
}

// SendProgress is a point-in-time view of a running batch
type SendProgress struct {
	BatchID   string  `json:"batchId"`
	Processed int     `json:"processed"`
	Total     int     `json:"total"`
	Sent      int     `json:"sent"`
	Skipped   int     `json:"skipped"`
	Failed    int     `json:"failed"`
	Fraction  float64 `json:"fraction"`
	Done      bool    `json:"done"`
}

// Progress derives a progress snapshot from the running summary
func (s SendSummary) Progress(done bool) SendProgress {
	p := SendProgress{
		BatchID:   s.BatchID,
		Processed: s.Processed(),
		Total:     s.Total,
		Sent:      s.Sent,
		Skipped:   s.Skipped,
		Failed:    s.Failed,
		Done:      done,
	}
	if s.Total > 0 {
		p.Fraction = float64(p.Processed) / float64(s.Total)
	} else {
		p.Fraction = 1
	}
	return p
}
